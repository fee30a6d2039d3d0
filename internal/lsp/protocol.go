// Package lsp holds the small slice of the Language Server Protocol the
// expansion engine speaks: positions, ranges, text edits and code actions.
// Lines are 0-indexed; characters count UTF-16 code units, per the protocol.
package lsp

// Position is a zero-based line/character pair. Character offsets are UTF-16
// code units into the line.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span in a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// TextEdit replaces the text covered by Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// WorkspaceEdit maps document URIs to the edits to apply there.
type WorkspaceEdit struct {
	Changes map[string][]TextEdit `json:"changes"`
}

// CodeAction is an editor-invocable action carrying a workspace edit.
type CodeAction struct {
	Title string        `json:"title"`
	Kind  string        `json:"kind,omitempty"`
	Edit  WorkspaceEdit `json:"edit"`
}

// Before reports whether p is strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Character < q.Character
}

// Overlaps reports whether two ranges share at least one position. Touching
// ranges (one ends where the other starts) do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Intersects is like Overlaps but treats empty ranges and shared boundaries
// as intersecting, so a cursor sitting on a range counts as selecting it.
func (r Range) Intersects(o Range) bool {
	if o.End.Before(r.Start) || r.End.Before(o.Start) {
		return false
	}
	return true
}
