package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/autoexpand"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/config"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/lsp"
)

var expandCmd = &cobra.Command{
	Use:   "expand <file>",
	Short: "Expand AUTO comments in a Verilog file",
	Long: `Expand replaces every AUTO marker in the file with generated text,
resolving instantiated modules against the surrounding project.

By default the expanded source is printed to stdout. With --write the file
is updated in place; with --json the raw LSP text edits are printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().String("project", "", "project root to resolve modules from (default: the file's directory)")
	expandCmd.Flags().Bool("write", false, "rewrite the file in place")
	expandCmd.Flags().Bool("json", false, "print LSP text edits as JSON instead of applying them")
}

func runExpand(cmd *cobra.Command, args []string) error {
	file := args[0]
	root, _ := cmd.Flags().GetString("project")
	if root == "" {
		root = filepath.Dir(file)
	}
	cfg := loadConfig(cmd, root)

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	text := string(content)

	req := autoexpand.Request{
		BufferURI:     file,
		BufferText:    text,
		ProjectFiles:  projectFiles(cfg, root, file),
		DisabledKinds: disabledKinds(cfg),
	}

	edits := autoexpand.Expand(req)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		out, err := json.MarshalIndent(edits, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling edits: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	// A cyclic instantiation graph needs a second pass to settle: each
	// module is expanded with the ports known on first visit, and the
	// rerun picks up what the first pass added. Two passes always reach
	// the fixed point.
	result := lsp.ApplyEdits(text, edits)
	if result != text {
		req.BufferText = result
		result = lsp.ApplyEdits(result, autoexpand.Expand(req))
	}

	if write, _ := cmd.Flags().GetBool("write"); write {
		if result == text {
			return nil
		}
		if err := os.WriteFile(file, []byte(result), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", file, err)
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			fmt.Fprintf(os.Stderr, "expanded %s\n", file)
		}
		return nil
	}

	fmt.Print(result)
	return nil
}

// projectFiles loads every configured source file except the buffer itself.
func projectFiles(cfg *config.Config, root, exclude string) []autoexpand.ProjectFile {
	paths, err := cfg.ResolveFiles(root)
	if err != nil {
		return nil
	}
	absExclude, _ := filepath.Abs(exclude)
	var out []autoexpand.ProjectFile
	for _, p := range paths {
		if abs, _ := filepath.Abs(p); abs == absExclude {
			continue
		}
		content, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		out = append(out, autoexpand.ProjectFile{URI: p, Text: string(content)})
	}
	return out
}

func disabledKinds(cfg *config.Config) []string {
	var out []string
	for kind, enabled := range cfg.Expand.Kinds {
		if !enabled {
			out = append(out, kind)
		}
	}
	return out
}
