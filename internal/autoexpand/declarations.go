package autoexpand

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
)

// declEntry is one synthesised declaration line, before indentation and
// terminator are applied.
type declEntry struct {
	decl    string // "input [15:0] o1"
	comment string // "// From b of bar", empty for AUTOREG
}

var banners = map[extractor.PlaceholderKind]string{
	extractor.AutoInput:  "// Beginning of automatic inputs (from autoinst inputs)",
	extractor.AutoOutput: "// Beginning of automatic outputs (from autoinst outputs)",
	extractor.AutoInout:  "// Beginning of automatic inouts (from autoinst inouts)",
	extractor.AutoWire:   "// Beginning of automatic wires (for undeclared instantiated-module outputs)",
	extractor.AutoReg:    "// Beginning of automatic regs (for this module's undeclared outputs)",
}

const endBanner = "// End of automatics"

// expandPortDecls expands AUTOINPUT, AUTOOUTPUT and AUTOINOUT markers. Each
// derives declarations from the matching-direction ports of every
// instantiated child, skipping names the module already declares, and adds
// the synthesised ports to the module's working port list so that a
// following AUTOARG (and any parent's AUTOINST) sees them.
func (e *engine) expandPortDecls(wm *workModule) {
	var header []headerPending

	for _, ph := range wm.src.Placeholders {
		dir, ok := declDirection(ph.Kind)
		if !ok || ph.Ctx == extractor.CtxInstance {
			continue
		}
		if !e.kindEnabled(ph.Kind) {
			continue
		}
		entries := e.synthPortEntries(wm, dir, ph)
		if ph.Ctx == extractor.CtxHeader {
			header = append(header, headerPending{ph: ph, entries: entries})
			continue
		}
		e.emitBodyBlock(ph, entries)
	}

	// Header blocks are comma-separated; the final entry of the last
	// non-empty block ahead of the closing parenthesis drops its comma.
	lastNonEmpty := -1
	for i, hp := range header {
		if len(hp.entries) > 0 {
			lastNonEmpty = i
		}
	}
	for i, hp := range header {
		final := i == lastNonEmpty && !e.headerContentAfter(wm, hp.ph, header[i+1:])
		e.emitHeaderBlock(hp.ph, hp.entries, final)
	}
}

func declDirection(k extractor.PlaceholderKind) (extractor.Direction, bool) {
	switch k {
	case extractor.AutoInput:
		return extractor.DirInput, true
	case extractor.AutoOutput:
		return extractor.DirOutput, true
	case extractor.AutoInout:
		return extractor.DirInout, true
	}
	return extractor.DirNone, false
}

// synthPortEntries collects the child ports a port-declaration marker must
// declare, first occurrence wins across instances, and registers each as a
// port of the enclosing module at the marker's position. A template rule on
// the instance renames the declaration the way it renames the connection:
// ".o1(out_a[])" makes the parent declare out_a with o1's shape.
func (e *engine) synthPortEntries(wm *workModule, dir extractor.Direction, ph *extractor.Placeholder) []declEntry {
	var out []declEntry
	for _, inst := range wm.src.Instances {
		ports, ok := e.targetPorts(inst.ModuleName)
		if !ok {
			continue
		}
		rule, hasRule := wm.store.lookup(inst.ModuleName, inst.Offset)
		for _, p := range ports {
			if p.Dir != dir {
				continue
			}
			name := p.Name
			if hasRule {
				if t, okMap := rule[p.Name]; okMap {
					name = strings.TrimSuffix(t, "[]")
				}
			}
			if wm.declared[name] {
				continue
			}
			decl := extractor.Port{
				Name:     name,
				Dir:      dir,
				Packed:   p.Packed,
				Unpacked: p.Unpacked,
				Offset:   ph.MarkerStart,
				Line:     ph.Line,
			}
			out = append(out, declEntry{
				decl:    declText(dir.String(), decl),
				comment: dirComment(dir, inst.Name, inst.ModuleName),
			})
			wm.insertPort(workPort{
				Port:     decl,
				fromInst: inst.Name,
				fromMod:  inst.ModuleName,
			})
		}
	}
	return out
}

// expandVarDecls expands AUTOWIRE and AUTOREG markers. Both are ignored
// inside a header port list.
func (e *engine) expandVarDecls(wm *workModule) {
	for _, ph := range wm.src.Placeholders {
		if ph.Ctx != extractor.CtxBody || !e.kindEnabled(ph.Kind) {
			continue
		}
		switch ph.Kind {
		case extractor.AutoWire:
			e.emitBodyBlock(ph, e.synthWires(wm))
		case extractor.AutoReg:
			e.emitBodyBlock(ph, e.synthRegs(wm))
		}
	}
}

// synthWires declares a wire for every output and inout port of every
// instantiated child whose name the module does not already declare.
func (e *engine) synthWires(wm *workModule) []declEntry {
	var out []declEntry
	seen := make(map[string]bool)
	for _, inst := range wm.src.Instances {
		ports, ok := e.targetPorts(inst.ModuleName)
		if !ok {
			continue
		}
		for _, p := range ports {
			if p.Dir != extractor.DirOutput && p.Dir != extractor.DirInout {
				continue
			}
			if wm.declared[p.Name] || seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			out = append(out, declEntry{
				decl:    declText("wire", p.Port),
				comment: dirComment(p.Dir, inst.Name, inst.ModuleName),
			})
		}
	}
	return out
}

// synthRegs declares a reg for every output of the module itself that has no
// net/variable declaration and is not driven by an instantiated child.
func (e *engine) synthRegs(wm *workModule) []declEntry {
	instDriven := make(map[string]bool)
	for _, inst := range wm.src.Instances {
		ports, ok := e.targetPorts(inst.ModuleName)
		if !ok {
			continue
		}
		for _, p := range ports {
			if p.Dir == extractor.DirOutput || p.Dir == extractor.DirInout {
				instDriven[p.Name] = true
			}
		}
	}

	var out []declEntry
	seen := make(map[string]bool)
	for _, p := range wm.ports {
		if p.Dir != extractor.DirOutput {
			continue
		}
		if wm.varStorage[p.Name] || instDriven[p.Name] || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, declEntry{decl: declText("reg", p.Port)})
	}
	return out
}

// emitBodyBlock writes a banner-framed declaration block below a body-level
// marker, replacing any block a previous run generated. An empty entry list
// leaves the marker alone unless stale output has to be cleared.
func (e *engine) emitBodyBlock(ph *extractor.Placeholder, entries []declEntry) {
	marker := e.marker(ph)
	if len(entries) == 0 {
		if ph.RegionEnd > ph.MarkerEnd {
			e.addEdit(ph.MarkerStart, ph.RegionEnd, marker)
		}
		return
	}
	ind := e.mapper.IndentAt(ph.MarkerStart)
	var b strings.Builder
	b.WriteString(marker + "\n")
	b.WriteString(ind + banners[ph.Kind] + "\n")
	for _, en := range entries {
		b.WriteString(ind + en.decl + ";")
		if en.comment != "" {
			b.WriteString("  " + en.comment)
		}
		b.WriteString("\n")
	}
	b.WriteString(ind + endBanner)
	e.addEdit(ph.MarkerStart, ph.RegionEnd, b.String())
}

// emitHeaderBlock is emitBodyBlock for markers inside the header port list:
// entries are comma-separated, and when the block is the last content before
// the closing parenthesis its final entry carries no comma.
func (e *engine) emitHeaderBlock(ph *extractor.Placeholder, entries []declEntry, final bool) {
	marker := e.marker(ph)
	if len(entries) == 0 {
		if ph.RegionEnd > ph.MarkerEnd {
			e.addEdit(ph.MarkerStart, ph.RegionEnd, marker)
		}
		return
	}
	ind := e.mapper.IndentAt(ph.MarkerStart)
	var b strings.Builder
	b.WriteString(marker + "\n")
	b.WriteString(ind + banners[ph.Kind] + "\n")
	for i, en := range entries {
		sep := ","
		if final && i == len(entries)-1 {
			sep = ""
		}
		b.WriteString(ind + en.decl + sep)
		if en.comment != "" {
			b.WriteString("  " + en.comment)
		}
		b.WriteString("\n")
	}
	b.WriteString(ind + endBanner)
	e.addEdit(ph.MarkerStart, ph.RegionEnd, b.String())
}

// headerPending is a header-context declaration block awaiting the
// final-comma decision.
type headerPending struct {
	ph      *extractor.Placeholder
	entries []declEntry
}

// headerContentAfter reports whether manual port text follows the
// placeholder inside the header, ignoring the spans of sibling placeholders
// (their own expansions account for themselves).
func (e *engine) headerContentAfter(wm *workModule, ph *extractor.Placeholder, siblings []headerPending) bool {
	if wm.src.HeaderClose < 0 || ph.RegionEnd >= wm.src.HeaderClose {
		return false
	}
	frag := []byte(e.text[ph.RegionEnd:wm.src.HeaderClose])
	for _, s := range siblings {
		start := s.ph.MarkerStart - ph.RegionEnd
		end := s.ph.RegionEnd - ph.RegionEnd
		if start < 0 {
			start = 0
		}
		if end > len(frag) {
			end = len(frag)
		}
		for i := start; i < end; i++ {
			frag[i] = ' '
		}
	}
	return len(extractor.IdentTokens(string(frag))) > 0
}

// declText renders "keyword [packed] name[unpacked]".
func declText(keyword string, p extractor.Port) string {
	var b strings.Builder
	b.WriteString(keyword)
	if len(p.Packed) > 0 {
		b.WriteString(" " + extractor.RangesString(p.Packed))
	}
	b.WriteString(" " + p.Name + extractor.RangesString(p.Unpacked))
	return b.String()
}

func dirComment(dir extractor.Direction, inst, mod string) string {
	switch dir {
	case extractor.DirInput:
		return fmt.Sprintf("// To %s of %s", inst, mod)
	case extractor.DirOutput:
		return fmt.Sprintf("// From %s of %s", inst, mod)
	case extractor.DirInout:
		return fmt.Sprintf("// To/From %s of %s", inst, mod)
	}
	return ""
}
