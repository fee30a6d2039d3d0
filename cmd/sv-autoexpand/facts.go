package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/facts"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/indexer"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/validator"
)

var factsCmd = &cobra.Command{
	Use:   "facts [path]",
	Short: "Export the project's relational fact tables as JSON",
	Long: `Facts indexes the project and prints the relational fact tables
(modules, ports, instances, AUTO markers, templates, duplicates) as JSON,
after validating them against the embedded CUE schema.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFacts,
}

func runFacts(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	cfg := loadConfig(cmd, root)
	verbose, _ := cmd.Flags().GetBool("verbose")

	idx := indexer.NewWithConfig(cfg)
	idx.Verbose = verbose
	idx.JSONOutput = true
	project, err := idx.Run(root)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", root, err)
	}

	tables := facts.Build(project.Facts, project.Index)

	v, err := validator.NewFactsValidator()
	if err != nil {
		return fmt.Errorf("creating facts validator: %w", err)
	}
	if err := v.Validate(tables); err != nil {
		return fmt.Errorf("fact tables violate the schema contract: %w", err)
	}

	out, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tables: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
