package indexer

import (
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
)

// Index is the project-wide module table: name to definition, first
// definition wins. The edited buffer is scanned ahead of project files, so a
// module defined in both resolves to the buffer's copy. Duplicate names are
// recorded but never overwrite the first entry.
//
// The index is read-only after Build; concurrent lookups are safe.
type Index struct {
	modules map[string]*extractor.Module
	order   []string

	// Duplicates lists every later definition of an already-known name.
	Duplicates []Duplicate
}

// Duplicate records a module definition shadowed by an earlier one.
type Duplicate struct {
	Name      string
	File      string
	Line      int
	FirstFile string
	FirstLine int
}

// BuildIndex indexes the buffer's modules first, then every project file.
func BuildIndex(buffer extractor.FileFacts, project []extractor.FileFacts) *Index {
	x := &Index{modules: make(map[string]*extractor.Module)}
	x.addFile(buffer)
	for _, f := range project {
		x.addFile(f)
	}
	return x
}

func (x *Index) addFile(f extractor.FileFacts) {
	for _, m := range f.Modules {
		if first, ok := x.modules[m.Name]; ok {
			x.Duplicates = append(x.Duplicates, Duplicate{
				Name:      m.Name,
				File:      m.File,
				Line:      m.Line + 1,
				FirstFile: first.File,
				FirstLine: first.Line + 1,
			})
			continue
		}
		x.modules[m.Name] = m
		x.order = append(x.order, m.Name)
	}
}

// Lookup returns the first-seen definition of the named module.
func (x *Index) Lookup(name string) (*extractor.Module, bool) {
	m, ok := x.modules[name]
	return m, ok
}

// Names returns module names in insertion order.
func (x *Index) Names() []string {
	return x.order
}

// Len returns the number of distinct module names indexed.
func (x *Index) Len() int {
	return len(x.modules)
}
