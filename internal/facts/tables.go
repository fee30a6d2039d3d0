// Package facts flattens extracted Verilog structure into relational tables.
// The tables are the contract surface shared by the CUE validator, the OPA
// policy rules and the JSON fact export: flat rows, no nesting beyond what a
// Datalog-style rule can join on.
package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/indexer"
)

// Tables is the relational fact model. Each slice is a relation with flat rows.
type Tables struct {
	Files            []FileRow        `json:"files"`
	Modules          []ModuleRow      `json:"modules"`
	Ports            []PortRow        `json:"ports"`
	Instances        []InstanceRow    `json:"instances"`
	Placeholders     []PlaceholderRow `json:"placeholders"`
	Templates        []TemplateRow    `json:"templates"`
	DuplicateModules []DuplicateRow   `json:"duplicate_modules"`
}

type FileRow struct {
	Path    string `json:"path"`
	Modules int    `json:"modules"`
}

type ModuleRow struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Ports     int    `json:"ports"`
	Instances int    `json:"instances"`
}

type PortRow struct {
	Module    string `json:"module"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Packed    string `json:"packed"`
	Unpacked  string `json:"unpacked"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type InstanceRow struct {
	Module      string `json:"module"`
	Name        string `json:"name"`
	Target      string `json:"target"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Resolved    bool   `json:"resolved"`
	HasAutoinst bool   `json:"has_autoinst"`
}

type PlaceholderRow struct {
	Module    string `json:"module"`
	Kind      string `json:"kind"`
	Context   string `json:"context"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Misplaced bool   `json:"misplaced"`
}

type TemplateRow struct {
	Module string `json:"module"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

type DuplicateRow struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	FirstFile string `json:"first_file"`
	FirstLine int    `json:"first_line"`
}

// Build flattens the extracted files into fact tables, resolving instance
// targets against the project index. Rows come out in file order so the
// result is deterministic for a given input set.
func Build(files []extractor.FileFacts, idx *indexer.Index) Tables {
	sorted := append([]extractor.FileFacts(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	t := Tables{
		Files:            []FileRow{},
		Modules:          []ModuleRow{},
		Ports:            []PortRow{},
		Instances:        []InstanceRow{},
		Placeholders:     []PlaceholderRow{},
		Templates:        []TemplateRow{},
		DuplicateModules: []DuplicateRow{},
	}
	for _, f := range sorted {
		t.Files = append(t.Files, FileRow{Path: f.File, Modules: len(f.Modules)})
		for _, m := range f.Modules {
			t.Modules = append(t.Modules, ModuleRow{
				Name:      m.Name,
				File:      m.File,
				Line:      m.Line + 1,
				Ports:     len(m.HeaderPorts) + len(m.BodyPorts),
				Instances: len(m.Instances),
			})
			for _, p := range m.EffectivePorts() {
				t.Ports = append(t.Ports, PortRow{
					Module:    m.Name,
					Name:      p.Name,
					Direction: p.Dir.String(),
					Packed:    extractor.RangesString(p.Packed),
					Unpacked:  extractor.RangesString(p.Unpacked),
					File:      m.File,
					Line:      p.Line + 1,
				})
			}
			for _, inst := range m.Instances {
				_, resolved := idx.Lookup(inst.ModuleName)
				t.Instances = append(t.Instances, InstanceRow{
					Module:      m.Name,
					Name:        inst.Name,
					Target:      inst.ModuleName,
					File:        m.File,
					Line:        inst.Line + 1,
					Resolved:    resolved,
					HasAutoinst: inst.Auto != nil,
				})
			}
			for _, ph := range m.Placeholders {
				t.Placeholders = append(t.Placeholders, PlaceholderRow{
					Module:    m.Name,
					Kind:      ph.Kind.String(),
					Context:   contextName(ph.Ctx),
					File:      m.File,
					Line:      ph.Line + 1,
					Misplaced: misplaced(ph),
				})
			}
			for _, tc := range m.Templates {
				t.Templates = append(t.Templates, TemplateRow{
					Module: m.Name,
					File:   m.File,
					Line:   tc.Line + 1,
				})
			}
		}
	}
	for _, d := range idx.Duplicates {
		t.DuplicateModules = append(t.DuplicateModules, DuplicateRow{
			Name:      d.Name,
			File:      d.File,
			Line:      d.Line,
			FirstFile: d.FirstFile,
			FirstLine: d.FirstLine,
		})
	}
	return t
}

func contextName(c extractor.Context) string {
	switch c {
	case extractor.CtxHeader:
		return "header"
	case extractor.CtxInstance:
		return "instance"
	}
	return "body"
}

// misplaced reports markers sitting where their kind is never expanded.
func misplaced(ph *extractor.Placeholder) bool {
	switch ph.Kind {
	case extractor.AutoArg:
		return ph.Ctx != extractor.CtxHeader
	case extractor.AutoInst:
		return ph.Ctx != extractor.CtxInstance
	case extractor.AutoWire, extractor.AutoReg:
		return ph.Ctx == extractor.CtxHeader
	}
	return false
}
