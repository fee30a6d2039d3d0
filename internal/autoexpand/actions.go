package autoexpand

import "github.com/robert-at-pretension-io/sv-autoexpand/internal/lsp"

// Titles of the code actions advertised to the editor.
const (
	TitleExpandAll   = "Expand all AUTOs in file"
	TitleExpandRange = "Expand all AUTOs in selected range"
)

// CodeActions builds the action catalogue for a buffer: one action expanding
// every AUTO in the file, and one scoped to the placeholders whose regions
// intersect the given selection.
func CodeActions(req Request, selection lsp.Range) []lsp.CodeAction {
	full := req
	full.Range = nil
	scoped := req
	scoped.Range = &selection

	return []lsp.CodeAction{
		{
			Title: TitleExpandAll,
			Kind:  "refactor.rewrite",
			Edit: lsp.WorkspaceEdit{
				Changes: map[string][]lsp.TextEdit{req.BufferURI: Expand(full)},
			},
		},
		{
			Title: TitleExpandRange,
			Kind:  "refactor.rewrite",
			Edit: lsp.WorkspaceEdit{
				Changes: map[string][]lsp.TextEdit{req.BufferURI: Expand(scoped)},
			},
		},
	}
}
