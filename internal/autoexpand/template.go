package autoexpand

import (
	"strings"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
)

// templateRule is one parsed AUTO_TEMPLATE clause: the module names it
// applies to and the formal-to-actual connection map. The pattern string is
// accepted but not interpreted; every rule whose module name matches the
// instantiated module applies.
type templateRule struct {
	names    map[string]bool
	pattern  string
	mappings map[string]string // formal -> actual, possibly suffixed with []
	offset   int
}

// templateStore holds a module's template rules in source order. Rules apply
// to instances that textually follow them; a later rule for the same module
// name overrides an earlier one.
type templateStore struct {
	rules []templateRule
}

// lookup returns the connection map in effect for an instance of modName at
// the given byte offset.
func (s *templateStore) lookup(modName string, instOffset int) (map[string]string, bool) {
	var found map[string]string
	ok := false
	for _, r := range s.rules {
		if r.offset < instOffset && r.names[modName] {
			found = r.mappings
			ok = true
		}
	}
	return found, ok
}

// parseTemplates parses every AUTO_TEMPLATE block comment of a module.
// A malformed comment contributes no rules; other AUTOs are unaffected.
func parseTemplates(comments []extractor.TemplateComment) templateStore {
	var store templateStore
	for _, c := range comments {
		store.rules = append(store.rules, parseTemplateComment(c)...)
	}
	return store
}

// parseTemplateComment handles one block comment of the form
//
//	/* mod [mod2 ...] AUTO_TEMPLATE [ "pattern" ] (
//	       .formal(actual[]);
//	       ...
//	   ); */
//
// Several "MOD AUTO_TEMPLATE" headers may stack; headers without their own
// parenthesised body share the next body that appears.
func parseTemplateComment(c extractor.TemplateComment) []templateRule {
	body := strings.TrimSuffix(strings.TrimPrefix(c.Text, "/*"), "*/")
	items := extractor.Lex(body)

	var rules []templateRule
	pending := map[string]bool{}
	pattern := ""
	pos := 0

	cur := func() extractor.Item { return items[pos] }
	for cur().Typ != extractor.ItemEOF {
		it := cur()
		switch {
		case it.Typ == extractor.ItemIdent && it.Val == "AUTO_TEMPLATE":
			pos++
			if cur().Typ == extractor.ItemString {
				pattern = strings.Trim(cur().Val, `"`)
				pos++
			}
		case it.Typ == extractor.ItemIdent && !extractor.IsKeyword(it.Val):
			// Only accept a name directly ahead of AUTO_TEMPLATE.
			if next := peekNonComment(items, pos+1); next.Typ == extractor.ItemIdent && next.Val == "AUTO_TEMPLATE" {
				pending[it.Val] = true
				pos++
				continue
			}
			pos++
		case it.Typ == extractor.ItemSym && it.Val == "(":
			mappings, next, ok := parseTemplateBody(items, pos)
			pos = next
			if !ok || len(pending) == 0 {
				continue
			}
			rules = append(rules, templateRule{
				names:    pending,
				pattern:  pattern,
				mappings: mappings,
				offset:   c.Offset,
			})
			pending = map[string]bool{}
			pattern = ""
		default:
			pos++
		}
	}
	return rules
}

// parseTemplateBody parses "( .f(actual); .g(actual2), ... )" starting at the
// opening parenthesis and returns the mappings plus the index just past the
// closing parenthesis.
func parseTemplateBody(items []extractor.Item, pos int) (map[string]string, int, bool) {
	mappings := map[string]string{}
	pos++ // '('
	depth := 1
	for items[pos].Typ != extractor.ItemEOF {
		it := items[pos]
		if it.Typ == extractor.ItemSym {
			switch it.Val {
			case "(":
				depth++
				pos++
				continue
			case ")":
				depth--
				pos++
				if depth == 0 {
					return mappings, pos, true
				}
				continue
			case ".":
				if depth == 1 {
					formal, actual, next, ok := parseTemplateEntry(items, pos)
					if ok {
						mappings[formal] = actual
						pos = next
						continue
					}
				}
			}
		}
		pos++
	}
	return nil, pos, false
}

// parseTemplateEntry parses ".formal(actual)"; the actual is joined from raw
// token text, so "in_a[]" and "bus[3:0]" both round-trip.
func parseTemplateEntry(items []extractor.Item, pos int) (string, string, int, bool) {
	pos++ // '.'
	if items[pos].Typ != extractor.ItemIdent {
		return "", "", pos, false
	}
	formal := items[pos].Val
	pos++
	if !(items[pos].Typ == extractor.ItemSym && items[pos].Val == "(") {
		return "", "", pos, false
	}
	pos++
	depth := 1
	var parts []string
	for items[pos].Typ != extractor.ItemEOF {
		it := items[pos]
		if it.Typ == extractor.ItemSym {
			switch it.Val {
			case "(":
				depth++
			case ")":
				depth--
				if depth == 0 {
					return formal, strings.Join(parts, ""), pos + 1, true
				}
			}
		}
		if it.Typ != extractor.ItemComment {
			parts = append(parts, it.Val)
		}
		pos++
	}
	return "", "", pos, false
}

func peekNonComment(items []extractor.Item, pos int) extractor.Item {
	for pos < len(items) {
		if items[pos].Typ != extractor.ItemComment {
			return items[pos]
		}
		pos++
	}
	return items[len(items)-1]
}
