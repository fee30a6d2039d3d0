// Package autoexpand implements AUTO meta-comment expansion for
// Verilog/SystemVerilog: /*AUTOARG*/, /*AUTOINST*/, /*AUTOINPUT*/,
// /*AUTOOUTPUT*/, /*AUTOINOUT*/, /*AUTOWIRE*/, /*AUTOREG*/ and
// /* MOD AUTO_TEMPLATE ... */ comments.
//
// Expansion is a pure function of the edited buffer and the project file
// contents. It returns LSP text edits that replace the region following each
// marker with generated port lists, instance connections and declarations.
// The result is idempotent: expanding already-expanded text yields edits that
// reproduce it. Failures never surface as errors; a placeholder that cannot
// be expanded (unknown target module, marker in a context where its kind
// means nothing) is left untouched, and a malformed AUTO_TEMPLATE comment
// contributes no rules while the instances it would cover expand as usual.
package autoexpand

import (
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/indexer"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/lsp"
)

// ProjectFile is one project source the engine may resolve modules from.
type ProjectFile struct {
	URI  string
	Text string
}

// Request is one expansion request over a buffer snapshot.
type Request struct {
	BufferURI  string
	BufferText string

	// Range, when set, scopes the result to placeholders whose replace
	// region intersects it. Dependencies are still expanded internally.
	Range *lsp.Range

	// ProjectFiles are scanned after the buffer for module definitions.
	ProjectFiles []ProjectFile

	// DisabledKinds lists marker names (e.g. "AUTOWIRE") to skip.
	DisabledKinds []string
}

// Expand computes the text edits for every enabled AUTO placeholder in the
// buffer. Modules are expanded child-before-parent across the buffer's
// instantiation graph so that a parent's AUTOINPUT/AUTOOUTPUT/AUTOINOUT and
// AUTOINST see the port lists its children gain from their own AUTOs. On an
// instantiation cycle each module is expanded once, using the port list
// known when it is first visited.
func Expand(req Request) []lsp.TextEdit {
	ext := extractor.New()
	buffer := ext.ExtractText(req.BufferURI, req.BufferText)
	project := make([]extractor.FileFacts, 0, len(req.ProjectFiles))
	for _, f := range req.ProjectFiles {
		project = append(project, ext.ExtractText(f.URI, f.Text))
	}

	e := &engine{
		text:     req.BufferText,
		mapper:   lsp.NewMapper(req.BufferText),
		index:    indexer.BuildIndex(buffer, project),
		byName:   make(map[string]*workModule),
		disabled: make(map[extractor.PlaceholderKind]bool),
	}
	for _, name := range req.DisabledKinds {
		for k := extractor.AutoArg; k <= extractor.AutoReg; k++ {
			if k.String() == name {
				e.disabled[k] = true
			}
		}
	}
	for _, m := range buffer.Modules {
		wm := newWorkModule(m)
		e.mods = append(e.mods, wm)
		if _, ok := e.byName[m.Name]; !ok {
			e.byName[m.Name] = wm
		}
	}
	for _, wm := range e.mods {
		e.expandModule(wm)
	}
	return e.textEdits(req.Range)
}

type moduleState int

const (
	stateNew moduleState = iota
	stateInProgress
	stateDone
)

// workPort is a port in a module's working port list. Ports synthesised by
// AUTOINPUT/AUTOOUTPUT/AUTOINOUT carry the instance they were derived from.
type workPort struct {
	extractor.Port
	fromInst string
	fromMod  string
}

// workModule tracks one buffer module's evolving state during expansion.
type workModule struct {
	src   *extractor.Module
	state moduleState

	// ports is the effective port list, in declaration order, including
	// ports synthesised so far.
	ports []workPort

	// declared holds every name already declared in the module: header and
	// body ports, variables, and synthesised declarations as they are added.
	declared map[string]bool

	// varStorage holds names with a net/variable declaration in the body.
	varStorage map[string]bool

	store templateStore
}

func newWorkModule(m *extractor.Module) *workModule {
	wm := &workModule{
		src:        m,
		declared:   make(map[string]bool),
		varStorage: make(map[string]bool),
		store:      parseTemplates(m.Templates),
	}
	// Synthetic entries (declarations a previous expansion generated) stay
	// in the port list so dependents see the module's current shape, but
	// they never count as manually declared: their blocks are replaced.
	for _, p := range m.EffectivePorts() {
		wm.ports = append(wm.ports, workPort{Port: p})
		if !p.Synthetic {
			wm.declared[p.Name] = true
		}
	}
	for _, v := range m.Vars {
		if !v.Synthetic {
			wm.declared[v.Name] = true
			wm.varStorage[v.Name] = true
		}
	}
	return wm
}

// insertPort adds a synthesised port at its declaration site, keeping the
// working list in source order.
func (wm *workModule) insertPort(p workPort) {
	i := sort.Search(len(wm.ports), func(i int) bool {
		return wm.ports[i].Offset > p.Offset
	})
	wm.ports = append(wm.ports, workPort{})
	copy(wm.ports[i+1:], wm.ports[i:])
	wm.ports[i] = p
	wm.declared[p.Name] = true
}

type edit struct {
	start, end int
	newText    string
}

type engine struct {
	text     string
	mapper   *lsp.Mapper
	index    *indexer.Index
	mods     []*workModule
	byName   map[string]*workModule
	disabled map[extractor.PlaceholderKind]bool
	edits    []edit
}

func (e *engine) kindEnabled(k extractor.PlaceholderKind) bool {
	return !e.disabled[k]
}

// targetPorts resolves an instantiated module's effective port list. Buffer
// modules contribute their working list (which may include ports their own
// AUTOs produced); project modules contribute their parsed ports as-is.
func (e *engine) targetPorts(name string) ([]workPort, bool) {
	if wm, ok := e.byName[name]; ok {
		return wm.ports, true
	}
	if m, ok := e.index.Lookup(name); ok {
		ports := make([]workPort, 0, len(m.HeaderPorts)+len(m.BodyPorts))
		for _, p := range m.EffectivePorts() {
			ports = append(ports, workPort{Port: p})
		}
		return ports, true
	}
	return nil, false
}

// expandModule runs a depth-first expansion of the module's instantiated
// children, then its own placeholders. A child already being expanded is a
// cycle back-edge: its port list as known right now is used.
func (e *engine) expandModule(wm *workModule) {
	if wm.state != stateNew {
		return
	}
	wm.state = stateInProgress
	for _, inst := range wm.src.Instances {
		if child, ok := e.byName[inst.ModuleName]; ok {
			e.expandModule(child)
		}
	}
	e.expandPortDecls(wm)
	e.expandAutoArg(wm)
	e.expandVarDecls(wm)
	e.expandInstances(wm)
	wm.state = stateDone
}

func (e *engine) addEdit(start, end int, newText string) {
	e.edits = append(e.edits, edit{start: start, end: end, newText: newText})
}

// textEdits converts the collected byte-span edits to protocol edits,
// dropping any edit that would overlap an earlier one and, when a selection
// is given, any edit whose region does not intersect it.
func (e *engine) textEdits(sel *lsp.Range) []lsp.TextEdit {
	sort.Slice(e.edits, func(i, j int) bool {
		if e.edits[i].start != e.edits[j].start {
			return e.edits[i].start < e.edits[j].start
		}
		return e.edits[i].end < e.edits[j].end
	})
	out := []lsp.TextEdit{}
	prevEnd := -1
	for _, ed := range e.edits {
		if ed.start < prevEnd {
			continue
		}
		prevEnd = ed.end
		r := e.mapper.Range(ed.start, ed.end)
		// Selection scoping is line-granular: a cursor anywhere on a
		// marker's line selects it.
		if sel != nil && (r.End.Line < sel.Start.Line || r.Start.Line > sel.End.Line) {
			continue
		}
		out = append(out, lsp.TextEdit{Range: r, NewText: ed.newText})
	}
	return out
}

func (e *engine) marker(ph *extractor.Placeholder) string {
	return e.text[ph.MarkerStart:ph.MarkerEnd]
}

const indentStep = "    "

// expandAutoArg expands the first /*AUTOARG*/ inside the module header's
// port list. Identifier tokens already present in the header ahead of the
// marker are manual and are neither re-emitted nor disturbed; everything
// between the marker and the closing parenthesis is regenerated.
func (e *engine) expandAutoArg(wm *workModule) {
	if !e.kindEnabled(extractor.AutoArg) {
		return
	}
	var ph *extractor.Placeholder
	for _, c := range wm.src.Placeholders {
		if c.Kind == extractor.AutoArg && c.Ctx == extractor.CtxHeader {
			ph = c
			break
		}
	}
	if ph == nil || wm.src.HeaderClose < 0 {
		return
	}

	exclude := make(map[string]bool)
	for _, name := range extractor.IdentTokens(e.text[wm.src.HeaderOpen+1 : ph.MarkerStart]) {
		exclude[name] = true
	}

	var groups [3][]string
	seen := make(map[string]bool)
	for _, p := range wm.ports {
		g, ok := groupOf(p.Dir)
		if !ok || exclude[p.Name] || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		groups[g] = append(groups[g], p.Name)
	}

	if groups[0] == nil && groups[1] == nil && groups[2] == nil {
		e.addEdit(ph.MarkerStart, wm.src.HeaderClose, e.marker(ph))
		return
	}

	moduleIndent := e.mapper.IndentAt(wm.src.Offset)
	ind := moduleIndent + indentStep
	var lines []string
	for g, label := range groupLabels {
		if len(groups[g]) == 0 {
			continue
		}
		lines = append(lines, ind+label)
		for _, name := range groups[g] {
			lines = append(lines, ind+name+",")
		}
	}
	last := len(lines) - 1
	lines[last] = strings.TrimSuffix(lines[last], ",")

	text := e.marker(ph) + "\n" + strings.Join(lines, "\n") + "\n" + moduleIndent
	e.addEdit(ph.MarkerStart, wm.src.HeaderClose, text)
}

var groupLabels = [3]string{"// Inputs", "// Inouts", "// Outputs"}

func groupOf(d extractor.Direction) (int, bool) {
	switch d {
	case extractor.DirInput:
		return 0, true
	case extractor.DirInout:
		return 1, true
	case extractor.DirOutput:
		return 2, true
	}
	return 0, false
}

// expandInstances expands every /*AUTOINST*/ in the module. A formal already
// connected by a manual ".formal(actual)" ahead of the marker is skipped; an
// unresolved target module produces no edit at all.
func (e *engine) expandInstances(wm *workModule) {
	if !e.kindEnabled(extractor.AutoInst) {
		return
	}
	for _, inst := range wm.src.Instances {
		ph := inst.Auto
		if ph == nil {
			continue
		}
		ports, ok := e.targetPorts(inst.ModuleName)
		if !ok {
			continue
		}

		manual := make(map[string]bool)
		for _, c := range inst.Conns {
			manual[c.Formal] = true
		}
		rule, hasRule := wm.store.lookup(inst.ModuleName, inst.Offset)

		var groups [3][]string
		seen := make(map[string]bool)
		for _, p := range ports {
			g, okDir := groupOf(p.Dir)
			if !okDir || manual[p.Name] || seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			actual, decorate := p.Name, true
			if hasRule {
				if t, okMap := rule[p.Name]; okMap {
					if strings.HasSuffix(t, "[]") {
						actual = strings.TrimSuffix(t, "[]")
					} else {
						actual, decorate = t, false
					}
				}
			}
			groups[g] = append(groups[g], "."+p.Name+"("+connActual(actual, p.Port, decorate)+")")
		}

		if groups[0] == nil && groups[1] == nil && groups[2] == nil {
			e.addEdit(ph.MarkerStart, inst.CloseOffset, e.marker(ph))
			continue
		}

		instIndent := e.mapper.IndentAt(inst.Offset)
		ind := instIndent + indentStep
		var lines []string
		for g, label := range groupLabels {
			if len(groups[g]) == 0 {
				continue
			}
			lines = append(lines, ind+label)
			for _, conn := range groups[g] {
				lines = append(lines, ind+conn+",")
			}
		}
		last := len(lines) - 1
		lines[last] = strings.TrimSuffix(lines[last], ",")

		text := e.marker(ph) + "\n" + strings.Join(lines, "\n") + "\n" + instIndent
		e.addEdit(ph.MarkerStart, inst.CloseOffset, text)
	}
}

// connActual renders the actual expression for a connection, appending the
// width hint the port's shape calls for. A template actual without [] is
// emitted verbatim and undecorated.
func connActual(base string, p extractor.Port, decorate bool) string {
	if !decorate {
		return base
	}
	switch {
	case len(p.Packed) == 0 && len(p.Unpacked) == 0:
		return base
	case len(p.Packed) == 1 && len(p.Unpacked) == 0:
		return base + p.Packed[0].String()
	}
	hint := extractor.RangesString(p.Packed)
	if len(p.Unpacked) > 0 {
		hint += "." + extractor.RangesString(p.Unpacked)
	}
	return base + "  /*" + hint + "*/"
}
