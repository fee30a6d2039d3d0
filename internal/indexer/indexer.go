// Package indexer builds the project-wide view the expansion engine and the
// lint pipeline query: which modules exist, where, with what ports.
//
// Two entry points share the Index type. BuildIndex (index.go) is the
// synchronous, in-memory path the language-server request uses: buffer
// first, then project snapshots, no I/O. Run is the CLI path: it resolves
// the configured source globs, extracts files in parallel (optionally
// through the on-disk facts cache) and indexes the result. Schema
// validation and policy evaluation are left to the callers.
package indexer

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/config"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
)

// Indexer drives project indexing for the CLI.
type Indexer struct {
	// Configuration loaded from sv_autoexpand.json
	Config *config.Config

	// Verbose output
	Verbose bool

	// JSON output mode (suppresses progress chatter)
	JSONOutput bool

	// Optional extractor factory (for tests)
	extractorFactory func() FactsExtractor
}

// FactsExtractor abstracts extraction for caching tests.
type FactsExtractor interface {
	Extract(path string) (extractor.FileFacts, error)
}

// ParseError represents a file that failed to read or parse.
type ParseError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ProjectFacts is the outcome of indexing a project tree.
type ProjectFacts struct {
	Files       []string
	Facts       []extractor.FileFacts
	Index       *Index
	ParseErrors []ParseError
}

// New creates an Indexer with default configuration.
func New() *Indexer {
	return &Indexer{Config: config.DefaultConfig()}
}

// NewWithConfig creates an Indexer with the given configuration.
func NewWithConfig(cfg *config.Config) *Indexer {
	return &Indexer{Config: cfg}
}

func (idx *Indexer) newExtractor() FactsExtractor {
	if idx.extractorFactory != nil {
		return idx.extractorFactory()
	}
	return extractor.New()
}

// Run scans rootPath for Verilog sources and builds the project index.
// Extraction runs in parallel, bounded by Analysis.MaxParallelFiles, and
// goes through the content-hash facts cache when it is enabled.
func (idx *Indexer) Run(rootPath string) (*ProjectFacts, error) {
	files, err := idx.Config.ResolveFiles(rootPath)
	if err != nil {
		return nil, fmt.Errorf("scanning files: %w", err)
	}

	var filtered []string
	for _, f := range files {
		if !idx.Config.ShouldIgnoreFile(f) {
			filtered = append(filtered, f)
		}
	}
	files = filtered

	if idx.Verbose && !idx.JSONOutput {
		fmt.Printf("Found %d Verilog files\n", len(files))
	}

	var cache *factsCache
	if cacheEnabled(idx.Config) {
		cache = newFactsCache(resolveCacheDir(rootPath, idx.Config), cacheSchemaVersion)
		if err := cache.Load(); err != nil {
			// A broken cache must never break indexing.
			cache = nil
		}
	}

	ext := idx.newExtractor()
	limit := idx.Config.Analysis.MaxParallelFiles
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	var mu sync.Mutex
	factsByFile := make(map[string]extractor.FileFacts, len(files))
	var parseErrors []ParseError

	var g errgroup.Group
	g.SetLimit(limit)
	for _, file := range files {
		f := file
		g.Go(func() error {
			var contentHash string
			if cache != nil {
				h, err := hashFile(f)
				if err != nil {
					mu.Lock()
					parseErrors = append(parseErrors, ParseError{File: f, Message: err.Error()})
					mu.Unlock()
					return nil
				}
				contentHash = h
				if facts, ok, err := cache.Get(f, contentHash); err == nil && ok {
					mu.Lock()
					factsByFile[f] = facts
					mu.Unlock()
					return nil
				}
			}

			facts, err := ext.Extract(f)
			if err != nil {
				mu.Lock()
				parseErrors = append(parseErrors, ParseError{File: f, Message: err.Error()})
				mu.Unlock()
				return nil
			}
			if cache != nil && contentHash != "" {
				// Cache write failures are non-fatal by design of the cache.
				_ = cache.Put(f, contentHash, facts)
			}
			mu.Lock()
			factsByFile[f] = facts
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if cache != nil {
		_ = cache.Save()
	}

	// Deterministic order: sorted file paths.
	paths := make([]string, 0, len(factsByFile))
	for p := range factsByFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	result := &ProjectFacts{Files: paths, ParseErrors: parseErrors}
	x := &Index{modules: make(map[string]*extractor.Module)}
	for _, p := range paths {
		facts := factsByFile[p]
		result.Facts = append(result.Facts, facts)
		x.addFile(facts)
	}
	result.Index = x

	if idx.Verbose && !idx.JSONOutput {
		fmt.Printf("Indexed %d modules\n", x.Len())
	}
	return result, nil
}

func cacheEnabled(cfg *config.Config) bool {
	return cfg.Analysis.Cache.Enabled == nil || *cfg.Analysis.Cache.Enabled
}
