package lsp

import "sort"

// ApplyEdits applies a set of non-overlapping text edits to a document and
// returns the resulting text. Edits are applied from the end of the document
// towards the beginning so earlier ranges stay valid while later ones are
// rewritten; this mirrors how an LSP client is expected to apply them.
func ApplyEdits(text string, edits []TextEdit) string {
	if len(edits) == 0 {
		return text
	}
	m := NewMapper(text)

	type span struct {
		start, end int
		newText    string
	}
	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		spans = append(spans, span{
			start:   m.Offset(e.Range.Start),
			end:     m.Offset(e.Range.End),
			newText: e.NewText,
		})
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start > spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	out := text
	for _, s := range spans {
		out = out[:s.start] + s.newText + out[s.end:]
	}
	return out
}
