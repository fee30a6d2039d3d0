package lsp

import (
	"strings"
)

// Mapper converts between byte offsets into a document and protocol
// positions. It is immutable once built; a new document needs a new Mapper.
type Mapper struct {
	text       string
	lineStarts []int // byte offset of the first byte of each line
}

// NewMapper builds a Mapper for the given document text.
func NewMapper(text string) *Mapper {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Mapper{text: text, lineStarts: starts}
}

// Text returns the document text the mapper was built from.
func (m *Mapper) Text() string { return m.text }

// LineCount returns the number of lines in the document.
func (m *Mapper) LineCount() int { return len(m.lineStarts) }

// LineStart returns the byte offset of the first byte of the given line.
// Out-of-range lines clamp to the document bounds.
func (m *Mapper) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(m.lineStarts) {
		return len(m.text)
	}
	return m.lineStarts[line]
}

// lineFor returns the line index containing the byte offset.
func (m *Mapper) lineFor(offset int) int {
	lo, hi := 0, len(m.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if m.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Position converts a byte offset to a protocol position.
func (m *Mapper) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(m.text) {
		offset = len(m.text)
	}
	line := m.lineFor(offset)
	prefix := m.text[m.lineStarts[line]:offset]
	return Position{Line: line, Character: utf16Len(prefix)}
}

// Offset converts a protocol position back to a byte offset. Positions past
// the end of a line clamp to the line end.
func (m *Mapper) Offset(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(m.lineStarts) {
		return len(m.text)
	}
	start := m.lineStarts[p.Line]
	end := len(m.text)
	if p.Line+1 < len(m.lineStarts) {
		end = m.lineStarts[p.Line+1] - 1 // before the newline
	}
	line := m.text[start:end]
	units := 0
	for i, r := range line {
		if units >= p.Character {
			return start + i
		}
		units += utf16RuneLen(r)
	}
	return end
}

// Range converts a byte span to a protocol range.
func (m *Mapper) Range(start, end int) Range {
	return Range{Start: m.Position(start), End: m.Position(end)}
}

// IndentAt returns the leading whitespace of the line containing offset.
func (m *Mapper) IndentAt(offset int) string {
	line := m.lineFor(offset)
	text := m.text[m.lineStarts[line]:]
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	end := 0
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return text[:end]
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16RuneLen(r)
	}
	return n
}

func utf16RuneLen(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}
