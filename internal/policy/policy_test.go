package policy

import (
	"testing"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/extractor"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/facts"
	"github.com/robert-at-pretension-io/sv-autoexpand/internal/indexer"
)

func evaluate(t *testing.T, src string) *Result {
	t.Helper()
	buffer := extractor.New().ExtractText("a.sv", src)
	idx := indexer.BuildIndex(buffer, nil)
	tables := facts.Build([]extractor.FileFacts{buffer}, idx)

	engine, err := New()
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}
	result, err := engine.Evaluate(tables)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return result
}

func hasRule(result *Result, rule string) bool {
	for _, v := range result.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

func TestUnresolvedInstanceRule(t *testing.T) {
	result := evaluate(t, `
module foo;
  ghost g (  /*AUTOINST*/);
endmodule
`)
	if !hasRule(result, "unresolved-instance") {
		t.Errorf("expected unresolved-instance, got %+v", result.Violations)
	}
	if result.Summary.Errors == 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestUnresolvedWithoutAutoinstNotFlagged(t *testing.T) {
	// Plain instances of unknown modules are not the expander's concern.
	result := evaluate(t, `
module foo;
  ghost g ();
endmodule
`)
	if hasRule(result, "unresolved-instance") {
		t.Errorf("plain instance should not be flagged: %+v", result.Violations)
	}
}

func TestDuplicateModuleRule(t *testing.T) {
	result := evaluate(t, `
module m;
endmodule

module m;
endmodule
`)
	if !hasRule(result, "duplicate-module") {
		t.Errorf("expected duplicate-module, got %+v", result.Violations)
	}
	if result.Summary.Warnings == 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
}

func TestMisplacedMarkerRule(t *testing.T) {
	result := evaluate(t, `
module m (  /*AUTOWIRE*/);
  /*AUTOARG*/
endmodule
`)
	if !hasRule(result, "misplaced-marker") {
		t.Errorf("expected misplaced-marker, got %+v", result.Violations)
	}
}

func TestCleanProject(t *testing.T) {
	result := evaluate(t, `
module bar (
    input clk
);
endmodule

module foo (  /*AUTOARG*/);
  /*AUTOINPUT*/
  bar b (  /*AUTOINST*/);
endmodule
`)
	if len(result.Violations) != 0 {
		t.Errorf("clean project has violations: %+v", result.Violations)
	}
	if result.Summary.TotalViolations != 0 {
		t.Errorf("summary = %+v", result.Summary)
	}
}
