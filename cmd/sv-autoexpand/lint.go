package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/config"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/facts"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/indexer"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/policy"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/validator"
)

var lintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Check AUTO usage across a project",
	Long: `Lint indexes the project, validates the extracted fact tables against
the CUE schema contract, and evaluates the OPA AUTO-hygiene rules:
unresolved AUTOINST targets, duplicate module definitions, and markers in
contexts where they are ignored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().Bool("json", false, "print the result as JSON")
}

// lintResult is the structured result of a lint run.
type lintResult struct {
	Violations  []policy.Violation   `json:"violations"`
	Summary     policy.Summary       `json:"summary"`
	Stats       lintStats            `json:"stats"`
	ParseErrors []indexer.ParseError `json:"parse_errors,omitempty"`
}

type lintStats struct {
	Files        int `json:"files"`
	Modules      int `json:"modules"`
	Instances    int `json:"instances"`
	Placeholders int `json:"placeholders"`
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

func runLint(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	cfg := loadConfig(cmd, root)
	asJSON, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")

	idx := indexer.NewWithConfig(cfg)
	idx.Verbose = verbose
	idx.JSONOutput = asJSON
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

	engine, err := policy.New()
	if err != nil {
		return fmt.Errorf("creating policy engine: %w", err)
	}
	evaluated, err := engine.Evaluate(tables)
	if err != nil {
		return fmt.Errorf("evaluating policies: %w", err)
	}

	result := lintResult{
		Violations: evaluated.Violations,
		Summary:    evaluated.Summary,
		Stats: lintStats{
			Files:        len(tables.Files),
			Modules:      len(tables.Modules),
			Instances:    len(tables.Instances),
			Placeholders: len(tables.Placeholders),
		},
		ParseErrors: project.ParseErrors,
	}

	if asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		fmt.Println(string(out))
	} else {
		printLintResult(cfg, result)
	}

	if result.Summary.Errors > 0 {
		os.Exit(1)
	}
	return nil
}

func printLintResult(cfg *config.Config, result lintResult) {
	for _, v := range result.Violations {
		if !cfg.IsRuleEnabled(v.Rule) {
			continue
		}
		var c *color.Color
		switch v.Severity {
		case "error":
			c = errorColor
		case "warning":
			c = warningColor
		default:
			c = infoColor
		}
		fmt.Printf("%s:%d: %s [%s] %s\n", v.File, v.Line, c.Sprint(v.Severity), v.Rule, v.Message)
	}
	for _, pe := range result.ParseErrors {
		fmt.Printf("%s: %s parse failed: %s\n", pe.File, errorColor.Sprint("error"), pe.Message)
	}
	fmt.Printf("\n%d files, %d modules, %d instances, %d AUTO markers\n",
		result.Stats.Files, result.Stats.Modules, result.Stats.Instances, result.Stats.Placeholders)
	fmt.Printf("%d violations (%d errors, %d warnings)\n",
		result.Summary.TotalViolations, result.Summary.Errors, result.Summary.Warnings)
}
