// Package extractor parses Verilog/SystemVerilog source into the structural
// facts the AUTO expansion engine works from: modules, their ports and
// variables, instantiations, AUTO markers and AUTO_TEMPLATE comments.
//
// The parser is deliberately shallow. It understands module shells, ANSI and
// non-ANSI port declarations, net/variable declarations and named module
// instantiations; behavioural code passes through untouched. Declarations
// found inside a previously generated "// Beginning of automatic ..." block
// stay in the model but are flagged Synthetic, because expansion replaces
// those blocks wholesale on every run.
package extractor

import (
	"fmt"
	"os"
	"strings"
)

// Direction of a port.
type Direction int

const (
	DirNone Direction = iota
	DirInput
	DirOutput
	DirInout
)

// String returns the Verilog keyword for the direction.
func (d Direction) String() string {
	switch d {
	case DirInput:
		return "input"
	case DirOutput:
		return "output"
	case DirInout:
		return "inout"
	}
	return "none"
}

// Range is one dimension, kept textual so named constants and macros
// re-serialise exactly as written. A packed range has both bounds ("[15:0]");
// a size-only unpacked dimension has just Msb ("[8]").
type Range struct {
	Msb string `json:"msb"`
	Lsb string `json:"lsb,omitempty"`
}

// String re-serialises the range.
func (r Range) String() string {
	if r.Lsb == "" {
		return "[" + r.Msb + "]"
	}
	return "[" + r.Msb + ":" + r.Lsb + "]"
}

// RangesString concatenates dimensions without separators, e.g. "[7:0][7:0]".
func RangesString(rs []Range) string {
	var b strings.Builder
	for _, r := range rs {
		b.WriteString(r.String())
	}
	return b.String()
}

// Port is a normalised port descriptor. Synthetic marks declarations found
// inside a previously generated banner block: they are part of the module's
// current port list, but expansion replaces them, so they must not suppress
// re-synthesis.
type Port struct {
	Name      string
	Dir       Direction
	Packed    []Range
	Unpacked  []Range
	Datatype  string // optional datatype token, e.g. "logic"
	Offset    int    // byte offset of the declaring token
	Line      int
	Synthetic bool
}

// Var is a net or variable declaration in a module body.
type Var struct {
	Name      string
	Storage   string // wire, reg, logic, ...
	Packed    []Range
	Unpacked  []Range
	Offset    int
	Line      int
	Synthetic bool
}

// Conn is a named connection in an instance's port list.
type Conn struct {
	Formal string
	Actual string
	Offset int
}

// Instance is a named module instantiation.
type Instance struct {
	Name       string
	ModuleName string
	Conns      []Conn // manual connections only; previous AUTOINST output is dropped
	OpenOffset int    // byte offset of the connection list's '('
	CloseOffset int   // byte offset of the matching ')'
	Auto       *Placeholder // the /*AUTOINST*/ marker, if present
	Offset     int
	Line       int
}

// PlaceholderKind identifies an AUTO marker.
type PlaceholderKind int

const (
	AutoArg PlaceholderKind = iota
	AutoInst
	AutoInput
	AutoOutput
	AutoInout
	AutoWire
	AutoReg
)

var kindNames = map[string]PlaceholderKind{
	"/*AUTOARG*/":    AutoArg,
	"/*AUTOINST*/":   AutoInst,
	"/*AUTOINPUT*/":  AutoInput,
	"/*AUTOOUTPUT*/": AutoOutput,
	"/*AUTOINOUT*/":  AutoInout,
	"/*AUTOWIRE*/":   AutoWire,
	"/*AUTOREG*/":    AutoReg,
}

var kindStrings = map[PlaceholderKind]string{
	AutoArg:    "AUTOARG",
	AutoInst:   "AUTOINST",
	AutoInput:  "AUTOINPUT",
	AutoOutput: "AUTOOUTPUT",
	AutoInout:  "AUTOINOUT",
	AutoWire:   "AUTOWIRE",
	AutoReg:    "AUTOREG",
}

// String returns the marker name without comment delimiters.
func (k PlaceholderKind) String() string { return kindStrings[k] }

// Marker returns the bit-exact marker comment for the kind.
func (k PlaceholderKind) Marker() string { return "/*" + kindStrings[k] + "*/" }

// Context tells where a marker appeared.
type Context int

const (
	CtxHeader Context = iota // inside the module header's port parenthesis
	CtxBody                  // at module body level
	CtxInstance              // inside an instance connection list
)

// Placeholder is an AUTO marker found in a module, with the byte span of the
// marker itself and of the previously generated block that follows it (if
// any). RegionEnd equals MarkerEnd when there is nothing to re-expand yet.
type Placeholder struct {
	Kind        PlaceholderKind
	Ctx         Context
	MarkerStart int
	MarkerEnd   int
	RegionEnd   int
	Line        int
}

// TemplateComment is a block comment containing AUTO_TEMPLATE text, kept raw
// for the template store to parse.
type TemplateComment struct {
	Text   string
	Offset int
	Line   int
}

// Module is the structural model of one module definition.
type Module struct {
	Name        string
	File        string
	Offset      int // byte offset of the "module" keyword
	End         int // byte offset just past "endmodule"
	Line        int
	HeaderOpen  int // byte offset of the header port list '(' or -1
	HeaderClose int // byte offset of the matching ')' or -1
	HeaderPorts []Port
	BodyPorts   []Port
	Vars        []Var
	Instances   []*Instance
	Placeholders []*Placeholder
	Templates   []TemplateComment
}

// EffectivePorts returns header ports followed by body ports, in source order.
func (m *Module) EffectivePorts() []Port {
	out := make([]Port, 0, len(m.HeaderPorts)+len(m.BodyPorts))
	out = append(out, m.HeaderPorts...)
	out = append(out, m.BodyPorts...)
	return out
}

// FileFacts is everything extracted from one file.
type FileFacts struct {
	File    string
	Modules []*Module
}

// Extractor parses Verilog files into FileFacts.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor { return &Extractor{} }

// Extract reads and parses a file.
func (e *Extractor) Extract(path string) (FileFacts, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileFacts{File: path}, fmt.Errorf("reading file: %w", err)
	}
	return e.ExtractText(path, string(content)), nil
}

// ExtractText parses source text that is already in memory (an editor buffer).
func (e *Extractor) ExtractText(file, text string) FileFacts {
	p := &parser{file: file, text: text, items: Lex(text)}
	return p.parseFile()
}

const bannerPrefix = "// Beginning of automatic"
const bannerEnd = "// End of automatics"

type parser struct {
	file  string
	text  string
	items []Item
	pos   int

	// suppressUntil marks the end of the current previously-generated block;
	// declarations starting before it are regeneration output, not source.
	suppressUntil int
}

func (p *parser) cur() Item  { return p.items[p.pos] }
func (p *parser) next() Item { it := p.items[p.pos]; p.pos++; return it }

func (p *parser) peekAt(n int) Item {
	if p.pos+n >= len(p.items) {
		return p.items[len(p.items)-1]
	}
	return p.items[p.pos+n]
}

// peekCode looks ahead n non-comment tokens (0 = current).
func (p *parser) peekCode(n int) Item {
	seen := 0
	for i := p.pos; i < len(p.items); i++ {
		if p.items[i].Typ == ItemComment {
			continue
		}
		if seen == n {
			return p.items[i]
		}
		seen++
	}
	return p.items[len(p.items)-1]
}

func (p *parser) parseFile() FileFacts {
	facts := FileFacts{File: p.file}
	for p.cur().Typ != ItemEOF {
		it := p.cur()
		if it.Typ == ItemIdent && (it.Val == "module" || it.Val == "macromodule") {
			if m := p.parseModule(); m != nil {
				facts.Modules = append(facts.Modules, m)
			}
			continue
		}
		p.pos++
	}
	return facts
}

func (p *parser) parseModule() *Module {
	kw := p.next() // module
	if p.cur().Typ != ItemIdent {
		return nil
	}
	name := p.next()
	m := &Module{
		Name:        name.Val,
		File:        p.file,
		Offset:      kw.Offset,
		Line:        kw.Line,
		HeaderOpen:  -1,
		HeaderClose: -1,
	}
	p.suppressUntil = 0

	// Optional parameter port list: # ( ... )
	if p.cur().Typ == ItemSym && p.cur().Val == "#" {
		p.pos++
		p.skipBalancedParens()
	}
	if p.cur().Typ == ItemSym && p.cur().Val == "(" {
		p.parseHeader(m)
	}
	p.skipPast(";")
	p.parseBody(m)
	return m
}

func (p *parser) skipBalancedParens() {
	if !(p.cur().Typ == ItemSym && p.cur().Val == "(") {
		return
	}
	depth := 0
	for p.cur().Typ != ItemEOF {
		it := p.next()
		if it.Typ != ItemSym {
			continue
		}
		switch it.Val {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

func (p *parser) skipPast(sym string) {
	for p.cur().Typ != ItemEOF {
		it := p.next()
		if it.Typ == ItemSym && it.Val == sym {
			return
		}
		if it.Typ == ItemIdent && it.Val == "endmodule" {
			p.pos--
			return
		}
	}
}

// parseHeader scans the ANSI port list between the header parentheses.
// Direction, datatype and packed dimensions persist across comma-separated
// entries until a new direction keyword appears. Bare identifiers (non-ANSI
// port name lists) carry no declaration information and are skipped.
func (p *parser) parseHeader(m *Module) {
	open := p.next() // '('
	m.HeaderOpen = open.Offset

	dir := DirNone
	datatype := ""
	var packed []Range

	for p.cur().Typ != ItemEOF {
		it := p.cur()
		if it.Typ == ItemComment {
			p.handleComment(m, it, CtxHeader)
			if it.Val == AutoArg.Marker() {
				// Names following an AUTOARG marker are generated list
				// content, not ANSI declarations continuing the last
				// direction.
				dir = DirNone
				datatype = ""
				packed = nil
			}
			p.pos++
			continue
		}
		if it.Typ == ItemSym {
			switch it.Val {
			case ")":
				m.HeaderClose = it.Offset
				p.pos++
				return
			case ",", "(":
				p.pos++
				continue
			}
		}
		if it.Typ == ItemIdent {
			if d, ok := directionOf(it.Val); ok {
				dir = d
				datatype = ""
				packed = nil
				p.pos++
				// Optional datatype and packed dimensions ahead of the name.
				datatype, packed = p.parseTypePrefix()
				continue
			}
			if it.Val == "endmodule" {
				return
			}
			// A name entry; packed dims may also appear here when the
			// datatype was consumed as part of an earlier entry.
			port := p.parseNameEntry(dir, datatype, packed, it)
			if port != nil && dir != DirNone {
				port.Synthetic = it.Offset < p.suppressUntil
				m.HeaderPorts = append(m.HeaderPorts, *port)
			}
			continue
		}
		p.pos++
	}
}

// parseTypePrefix consumes an optional datatype keyword chain and packed
// dimensions, stopping at the token that must be the declared name.
func (p *parser) parseTypePrefix() (string, []Range) {
	datatype := ""
	var packed []Range
	for {
		it := p.cur()
		if it.Typ == ItemComment {
			p.pos++
			continue
		}
		if it.Typ == ItemIdent && isTypeWord(it.Val) {
			if datatype == "" {
				datatype = it.Val
			} else {
				datatype += " " + it.Val
			}
			p.pos++
			continue
		}
		if it.Typ == ItemSym && it.Val == "[" {
			packed = append(packed, p.parseRange())
			continue
		}
		// A user-defined type name followed by another identifier is a
		// datatype as well ("mytype_t x").
		if it.Typ == ItemIdent && !IsKeyword(it.Val) {
			if nxt := p.peekCode(1); nxt.Typ == ItemIdent && !IsKeyword(nxt.Val) {
				if datatype == "" {
					datatype = it.Val
				} else {
					datatype += " " + it.Val
				}
				p.pos++
				continue
			}
		}
		return datatype, packed
	}
}

// parseNameEntry parses "name[unpacked]..." plus an optional "= default".
func (p *parser) parseNameEntry(dir Direction, datatype string, packed []Range, nameTok Item) *Port {
	p.pos++ // the name
	var unpacked []Range
	for {
		it := p.cur()
		if it.Typ == ItemSym && it.Val == "[" {
			unpacked = append(unpacked, p.parseRange())
			continue
		}
		if it.Typ == ItemSym && it.Val == "=" {
			// Default value: skip to the entry separator.
			for p.cur().Typ != ItemEOF {
				t := p.cur()
				if t.Typ == ItemSym && (t.Val == "," || t.Val == ")" || t.Val == ";") {
					break
				}
				p.pos++
			}
		}
		break
	}
	return &Port{
		Name:     nameTok.Val,
		Dir:      dir,
		Packed:   append([]Range(nil), packed...),
		Unpacked: unpacked,
		Datatype: datatype,
		Offset:   nameTok.Offset,
		Line:     nameTok.Line,
	}
}

// parseRange consumes "[ ... ]" and splits it at the top-level colon.
func (p *parser) parseRange() Range {
	open := p.next() // '['
	depth := 1
	colon := -1
	end := open.Offset + 1
	for p.cur().Typ != ItemEOF {
		it := p.next()
		if it.Typ == ItemSym {
			switch it.Val {
			case "[":
				depth++
			case "]":
				depth--
				if depth == 0 {
					end = it.Offset
					msbLsb := p.text[open.Offset+1 : end]
					if colon >= 0 {
						return Range{
							Msb: strings.TrimSpace(p.text[open.Offset+1 : colon]),
							Lsb: strings.TrimSpace(p.text[colon+1 : end]),
						}
					}
					return Range{Msb: strings.TrimSpace(msbLsb)}
				}
			case ":":
				if depth == 1 && colon < 0 {
					colon = it.Offset
				}
			}
		}
	}
	return Range{}
}

func (p *parser) parseBody(m *Module) {
	for p.cur().Typ != ItemEOF {
		it := p.cur()
		switch {
		case it.Typ == ItemComment:
			p.handleComment(m, it, CtxBody)
			p.pos++
		case it.Typ == ItemIdent && it.Val == "endmodule":
			p.pos++
			m.End = it.Offset + len(it.Val)
			return
		case it.Typ == ItemIdent:
			if d, ok := directionOf(it.Val); ok {
				p.parsePortDecl(m, d, it)
				continue
			}
			if isStorageWord(it.Val) {
				p.parseVarDecl(m, it)
				continue
			}
			if !IsKeyword(it.Val) && p.looksLikeInstance() {
				p.parseInstance(m)
				continue
			}
			p.pos++
		default:
			p.pos++
		}
	}
	m.End = p.cur().Offset
}

// looksLikeInstance matches "Mod inst (" and "Mod #(...) inst (" shapes.
func (p *parser) looksLikeInstance() bool {
	one := p.peekCode(1)
	two := p.peekCode(2)
	if one.Typ == ItemIdent && !IsKeyword(one.Val) && two.Typ == ItemSym && two.Val == "(" {
		return true
	}
	if one.Typ == ItemSym && one.Val == "#" {
		return true
	}
	return false
}

// parsePortDecl parses a non-ANSI body port declaration:
// "input [7:0] a, b[4];". Entries inside a generated block are flagged
// synthetic.
func (p *parser) parsePortDecl(m *Module, dir Direction, kw Item) {
	p.pos++ // direction keyword
	datatype, packed := p.parseTypePrefix()
	synthetic := kw.Offset < p.suppressUntil
	for p.cur().Typ != ItemEOF {
		it := p.cur()
		if it.Typ == ItemComment {
			p.pos++
			continue
		}
		if it.Typ == ItemIdent && !IsKeyword(it.Val) {
			port := p.parseNameEntry(dir, datatype, packed, it)
			port.Synthetic = synthetic
			m.BodyPorts = append(m.BodyPorts, *port)
			continue
		}
		if it.Typ == ItemSym {
			switch it.Val {
			case ",":
				p.pos++
				continue
			case ";":
				p.pos++
				return
			}
		}
		// Unexpected token: bail out of the declaration.
		return
	}
}

// parseVarDecl parses "wire [7:0] w, v;" style net/variable declarations.
func (p *parser) parseVarDecl(m *Module, kw Item) {
	p.pos++ // storage keyword
	_, packed := p.parseTypePrefix()
	synthetic := kw.Offset < p.suppressUntil
	for p.cur().Typ != ItemEOF {
		it := p.cur()
		if it.Typ == ItemComment {
			p.pos++
			continue
		}
		if it.Typ == ItemIdent && !IsKeyword(it.Val) {
			port := p.parseNameEntry(DirNone, "", packed, it)
			m.Vars = append(m.Vars, Var{
				Name:      port.Name,
				Storage:   kw.Val,
				Packed:    port.Packed,
				Unpacked:  port.Unpacked,
				Offset:    kw.Offset,
				Line:      kw.Line,
				Synthetic: synthetic,
			})
			continue
		}
		if it.Typ == ItemSym {
			switch it.Val {
			case ",":
				p.pos++
				continue
			case ";":
				p.pos++
				return
			case "=":
				// Net with assignment: skip the initialiser.
				for p.cur().Typ != ItemEOF {
					t := p.cur()
					if t.Typ == ItemSym && (t.Val == "," || t.Val == ";") {
						break
					}
					p.pos++
				}
				continue
			}
		}
		return
	}
}

// parseInstance parses "Mod [#(...)] inst ( .f(actual), ... );" and the
// embedded /*AUTOINST*/ marker. Named connections that textually follow the
// marker are previous expansion output and are dropped from the model.
func (p *parser) parseInstance(m *Module) {
	modTok := p.next()
	if p.cur().Typ == ItemSym && p.cur().Val == "#" {
		p.pos++
		p.skipBalancedParens()
	}
	if p.cur().Typ != ItemIdent {
		return
	}
	nameTok := p.next()
	if !(p.cur().Typ == ItemSym && p.cur().Val == "(") {
		return
	}
	inst := &Instance{
		Name:       nameTok.Val,
		ModuleName: modTok.Val,
		Offset:     modTok.Offset,
		Line:       modTok.Line,
	}
	open := p.next()
	inst.OpenOffset = open.Offset
	depth := 1
	for p.cur().Typ != ItemEOF {
		it := p.cur()
		if it.Typ == ItemComment {
			if kind, ok := kindNames[it.Val]; ok && kind == AutoInst {
				ph := &Placeholder{
					Kind:        AutoInst,
					Ctx:         CtxInstance,
					MarkerStart: it.Offset,
					MarkerEnd:   it.Offset + len(it.Val),
					RegionEnd:   it.Offset + len(it.Val),
					Line:        it.Line,
				}
				inst.Auto = ph
				m.Placeholders = append(m.Placeholders, ph)
			}
			p.pos++
			continue
		}
		if it.Typ == ItemSym {
			switch it.Val {
			case "(":
				depth++
				p.pos++
				continue
			case ")":
				depth--
				p.pos++
				if depth == 0 {
					inst.CloseOffset = it.Offset
					p.skipPast(";")
					p.finishInstance(m, inst)
					return
				}
				continue
			case ".":
				if depth == 1 {
					if conn, ok := p.parseConn(it); ok {
						inst.Conns = append(inst.Conns, conn)
						continue
					}
				}
				p.pos++
				continue
			}
		}
		p.pos++
	}
}

func (p *parser) finishInstance(m *Module, inst *Instance) {
	if inst.Auto != nil {
		manual := inst.Conns[:0]
		for _, c := range inst.Conns {
			if c.Offset < inst.Auto.MarkerStart {
				manual = append(manual, c)
			}
		}
		inst.Conns = manual
	}
	m.Instances = append(m.Instances, inst)
}

// parseConn parses ".formal(actual)". The actual expression is captured as
// raw text between the matched parentheses.
func (p *parser) parseConn(dot Item) (Conn, bool) {
	p.pos++ // '.'
	if p.cur().Typ != ItemIdent {
		return Conn{}, false
	}
	formal := p.next()
	if !(p.cur().Typ == ItemSym && p.cur().Val == "(") {
		return Conn{}, false
	}
	open := p.next()
	depth := 1
	for p.cur().Typ != ItemEOF {
		it := p.next()
		if it.Typ != ItemSym {
			continue
		}
		switch it.Val {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				actual := strings.TrimSpace(p.text[open.Offset+1 : it.Offset])
				return Conn{Formal: formal.Val, Actual: actual, Offset: dot.Offset}, true
			}
		}
	}
	return Conn{}, false
}

// handleComment records AUTO markers, AUTO_TEMPLATE comments and generated
// block spans found at header or body level.
func (p *parser) handleComment(m *Module, it Item, ctx Context) {
	if !it.Block {
		return
	}
	if kind, ok := kindNames[it.Val]; ok {
		ph := &Placeholder{
			Kind:        kind,
			Ctx:         ctx,
			MarkerStart: it.Offset,
			MarkerEnd:   it.Offset + len(it.Val),
			RegionEnd:   it.Offset + len(it.Val),
			Line:        it.Line,
		}
		switch kind {
		case AutoInput, AutoOutput, AutoInout, AutoWire, AutoReg:
			if end := bannerRegionEnd(p.text, ph.MarkerEnd); end > 0 {
				ph.RegionEnd = end
				if end > p.suppressUntil {
					p.suppressUntil = end
				}
			}
		}
		m.Placeholders = append(m.Placeholders, ph)
		return
	}
	if strings.Contains(it.Val, "AUTO_TEMPLATE") {
		m.Templates = append(m.Templates, TemplateComment{Text: it.Val, Offset: it.Offset, Line: it.Line})
	}
}

// bannerRegionEnd locates a previously generated block directly below a
// marker: the next line must open with the banner comment, and the block runs
// through the "// End of automatics" line. Returns the byte offset just past
// that line's content, or 0 when there is no generated block.
func bannerRegionEnd(text string, markerEnd int) int {
	i := markerEnd
	// Skip the remainder of the marker's own line.
	for i < len(text) && text[i] != '\n' {
		if text[i] != ' ' && text[i] != '\t' && text[i] != ',' && text[i] != '\r' {
			return 0
		}
		i++
	}
	if i >= len(text) {
		return 0
	}
	i++ // the newline
	lineStart := i
	for lineStart < len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		abs := len(text)
		if lineEnd >= 0 {
			abs = lineStart + lineEnd
		}
		line := strings.TrimSpace(text[lineStart:abs])
		if lineStart == i {
			if !strings.HasPrefix(line, bannerPrefix) {
				return 0
			}
		} else if line == bannerEnd {
			return abs
		} else if line == "" {
			return 0
		}
		if lineEnd < 0 {
			return 0
		}
		lineStart = abs + 1
	}
	return 0
}

func directionOf(s string) (Direction, bool) {
	switch s {
	case "input":
		return DirInput, true
	case "output":
		return DirOutput, true
	case "inout":
		return DirInout, true
	}
	return DirNone, false
}

func isTypeWord(s string) bool {
	switch s {
	case "wire", "reg", "logic", "bit", "tri", "signed", "unsigned", "var", "integer", "int":
		return true
	}
	return false
}

func isStorageWord(s string) bool {
	switch s {
	case "wire", "reg", "logic", "tri":
		return true
	}
	return false
}
