// =============================================================================
// sv-autoexpand - Main Entry Point
// =============================================================================
//
// This tool expands Verilog-Mode style AUTO meta-comments (/*AUTOARG*/,
// /*AUTOINST*/, /*AUTOINPUT*/, ...) into concrete source text, the way Emacs
// Verilog-Mode does, driven by a project-wide module index.
//
// THE PIPELINE:
//   1. Extractor parses Verilog into structural facts (modules, ports,
//      instances, AUTO markers, AUTO_TEMPLATEs)
//   2. Indexer builds the cross-file module table (first definition wins)
//   3. The expansion engine walks the instantiation graph child-first and
//      synthesises text edits for every marker
//   4. For lint runs, the CUE validator enforces the fact-table contract and
//      OPA evaluates AUTO-hygiene rules against it
// =============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "sv-autoexpand",
	Short: "Verilog AUTO meta-comment expander",
	Long: `sv-autoexpand expands Verilog-Mode AUTO comments into concrete source
text and lints AUTO usage across a project.`,
}

func main() {
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default: sv_autoexpand.json search path)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig honours an explicit --config path and falls back to the default
// search order rooted at rootPath.
func loadConfig(cmd *cobra.Command, rootPath string) *config.Config {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", path, err)
			os.Exit(1)
		}
		return cfg
	}
	cfg, err := config.Load(rootPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v (using defaults)\n", err)
		return config.DefaultConfig()
	}
	return cfg
}
