package extractor

// ItemType classifies a lexed token.
type ItemType int

const (
	ItemError ItemType = iota
	ItemEOF
	ItemIdent   // identifier or keyword
	ItemNumber  // 1234, 'hFF fragments
	ItemString  // "..."
	ItemComment // // ... or /* ... */, delimiters included
	ItemSym     // single punctuation byte
)

// Item is one lexed token with its location in the source text.
type Item struct {
	Typ    ItemType
	Val    string
	Offset int
	Line   int  // 0-based
	Block  bool // comment kind: true for /* */
}

// Lex scans Verilog source into a flat token stream. The lexer is
// structure-free: it only has to be precise about identifiers, comments,
// strings and punctuation so the parser can recognise module shells, port
// declarations and instantiations. Everything inside expressions passes
// through as symbol and number tokens.
func Lex(input string) []Item {
	var items []Item
	line := 0
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < len(input) && input[i+1] == '/':
			start := i
			for i < len(input) && input[i] != '\n' {
				i++
			}
			items = append(items, Item{Typ: ItemComment, Val: input[start:i], Offset: start, Line: line})
		case c == '/' && i+1 < len(input) && input[i+1] == '*':
			start := i
			startLine := line
			i += 2
			for i < len(input) {
				if input[i] == '\n' {
					line++
				}
				if input[i] == '*' && i+1 < len(input) && input[i+1] == '/' {
					i += 2
					break
				}
				i++
			}
			items = append(items, Item{Typ: ItemComment, Val: input[start:i], Offset: start, Line: startLine, Block: true})
		case c == '"':
			start := i
			i++
			for i < len(input) && input[i] != '"' {
				if input[i] == '\\' && i+1 < len(input) {
					i++
				}
				if input[i] == '\n' {
					line++
				}
				i++
			}
			if i < len(input) {
				i++
			}
			items = append(items, Item{Typ: ItemString, Val: input[start:i], Offset: start, Line: line})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			items = append(items, Item{Typ: ItemIdent, Val: input[start:i], Offset: start, Line: line})
		case c == '\\':
			// Escaped identifier: backslash through the next whitespace.
			start := i
			i++
			for i < len(input) && input[i] != ' ' && input[i] != '\t' && input[i] != '\n' {
				i++
			}
			items = append(items, Item{Typ: ItemIdent, Val: input[start:i], Offset: start, Line: line})
		case c >= '0' && c <= '9':
			start := i
			for i < len(input) && (isIdentPart(input[i]) || input[i] == '\'') {
				i++
			}
			items = append(items, Item{Typ: ItemNumber, Val: input[start:i], Offset: start, Line: line})
		case c == '\'':
			// Based literal body such as 'hDEAD_beef; lex as one number token.
			start := i
			i++
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			items = append(items, Item{Typ: ItemNumber, Val: input[start:i], Offset: start, Line: line})
		default:
			items = append(items, Item{Typ: ItemSym, Val: input[i : i+1], Offset: i, Line: line})
			i++
		}
	}
	items = append(items, Item{Typ: ItemEOF, Offset: len(input), Line: line})
	return items
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// IdentTokens returns the identifier tokens of a text fragment, excluding
// Verilog keywords. Used to collect manually authored port names in a module
// header so AUTOARG does not re-emit them.
func IdentTokens(fragment string) []string {
	var names []string
	for _, it := range Lex(fragment) {
		if it.Typ == ItemIdent && !IsKeyword(it.Val) {
			names = append(names, it.Val)
		}
	}
	return names
}

var keywords = map[string]bool{
	"module": true, "macromodule": true, "endmodule": true,
	"input": true, "output": true, "inout": true,
	"wire": true, "reg": true, "logic": true, "tri": true,
	"bit": true, "byte": true, "int": true, "integer": true, "longint": true,
	"shortint": true, "real": true, "time": true, "signed": true, "unsigned": true,
	"var": true, "parameter": true, "localparam": true, "genvar": true, "supply0": true, "supply1": true,
	"assign": true, "always": true, "always_ff": true, "always_comb": true,
	"always_latch": true, "initial": true, "final": true, "generate": true,
	"endgenerate": true, "begin": true, "end": true, "if": true, "else": true,
	"for": true, "while": true, "repeat": true, "forever": true, "case": true,
	"casex": true, "casez": true, "endcase": true, "default": true,
	"function": true, "endfunction": true, "task": true, "endtask": true,
	"posedge": true, "negedge": true, "or": true, "and": true, "not": true,
	"typedef": true, "struct": true, "enum": true, "union": true, "packed": true,
}

// IsKeyword reports whether the identifier is a reserved word the parser
// must not treat as a module or instance name. Verilog keywords are
// case-sensitive.
func IsKeyword(s string) bool {
	return keywords[s]
}
