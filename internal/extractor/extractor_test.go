package extractor

import (
	"os"
	"path/filepath"
	"testing"
)

func extractOne(t *testing.T, src string) *Module {
	t.Helper()
	facts := New().ExtractText("test.sv", src)
	if len(facts.Modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(facts.Modules))
	}
	return facts.Modules[0]
}

func TestExtractAnsiHeader(t *testing.T) {
	m := extractOne(t, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule
`)
	if m.Name != "bar" {
		t.Errorf("name = %q, want bar", m.Name)
	}
	if len(m.HeaderPorts) != 2 {
		t.Fatalf("header ports = %d, want 2", len(m.HeaderPorts))
	}
	if m.HeaderPorts[0].Name != "i1" || m.HeaderPorts[0].Dir != DirInput {
		t.Errorf("port 0 = %+v", m.HeaderPorts[0])
	}
	o1 := m.HeaderPorts[1]
	if o1.Name != "o1" || o1.Dir != DirOutput || RangesString(o1.Packed) != "[15:0]" {
		t.Errorf("port 1 = %+v", o1)
	}

	if len(m.BodyPorts) != 3 {
		t.Fatalf("body ports = %d, want 3", len(m.BodyPorts))
	}
	i2 := m.BodyPorts[0]
	if i2.Name != "i2" || RangesString(i2.Unpacked) != "[4][8]" || len(i2.Packed) != 0 {
		t.Errorf("i2 = %+v", i2)
	}
	io := m.BodyPorts[1]
	if io.Dir != DirInout || RangesString(io.Packed) != "[7:0][7:0]" {
		t.Errorf("io = %+v", io)
	}
	o2 := m.BodyPorts[2]
	if RangesString(o2.Packed) != "[31:0]" || RangesString(o2.Unpacked) != "[8]" {
		t.Errorf("o2 = %+v", o2)
	}
}

func TestExtractDirectionPersistsAcrossCommas(t *testing.T) {
	m := extractOne(t, `
module t (
    input a,
    b,
    output c
);
endmodule
`)
	if len(m.HeaderPorts) != 3 {
		t.Fatalf("header ports = %d, want 3", len(m.HeaderPorts))
	}
	if m.HeaderPorts[1].Name != "b" || m.HeaderPorts[1].Dir != DirInput {
		t.Errorf("b = %+v", m.HeaderPorts[1])
	}
	if m.HeaderPorts[2].Dir != DirOutput {
		t.Errorf("c = %+v", m.HeaderPorts[2])
	}
}

func TestExtractDatatypeToken(t *testing.T) {
	m := extractOne(t, `
module t;
  input logic clk;
  output reg [7:0] q;
endmodule
`)
	if m.BodyPorts[0].Datatype != "logic" {
		t.Errorf("clk datatype = %q, want logic", m.BodyPorts[0].Datatype)
	}
	q := m.BodyPorts[1]
	if q.Datatype != "reg" || RangesString(q.Packed) != "[7:0]" {
		t.Errorf("q = %+v", q)
	}
}

func TestExtractVars(t *testing.T) {
	m := extractOne(t, `
module t;
  wire [3:0] w, v;
  reg r;
endmodule
`)
	if len(m.Vars) != 3 {
		t.Fatalf("vars = %d, want 3", len(m.Vars))
	}
	if m.Vars[0].Name != "w" || m.Vars[0].Storage != "wire" || RangesString(m.Vars[0].Packed) != "[3:0]" {
		t.Errorf("w = %+v", m.Vars[0])
	}
	if m.Vars[2].Name != "r" || m.Vars[2].Storage != "reg" {
		t.Errorf("r = %+v", m.Vars[2])
	}
}

func TestExtractInstance(t *testing.T) {
	m := extractOne(t, `
module t;
  bar b (
      .i1(x),
      .i2(y[3:0]),  /*AUTOINST*/
      .o1(z)
  );
endmodule
`)
	if len(m.Instances) != 1 {
		t.Fatalf("instances = %d, want 1", len(m.Instances))
	}
	inst := m.Instances[0]
	if inst.Name != "b" || inst.ModuleName != "bar" {
		t.Errorf("instance = %+v", inst)
	}
	if inst.Auto == nil {
		t.Fatal("AUTOINST marker not attached")
	}
	// Connections after the marker are previous expansion output.
	if len(inst.Conns) != 2 {
		t.Fatalf("manual conns = %d, want 2", len(inst.Conns))
	}
	if inst.Conns[1].Formal != "i2" || inst.Conns[1].Actual != "y[3:0]" {
		t.Errorf("conn 1 = %+v", inst.Conns[1])
	}
}

func TestExtractParameterizedInstance(t *testing.T) {
	m := extractOne(t, `
module t;
  fifo #(.DEPTH(16), .WIDTH(W)) f (  /*AUTOINST*/);
endmodule
`)
	if len(m.Instances) != 1 {
		t.Fatalf("instances = %d, want 1", len(m.Instances))
	}
	if m.Instances[0].ModuleName != "fifo" || m.Instances[0].Name != "f" {
		t.Errorf("instance = %+v", m.Instances[0])
	}
}

func TestExtractPlaceholders(t *testing.T) {
	m := extractOne(t, `
module t (  /*AUTOARG*/);
  /*AUTOINPUT*/
  /*AUTOWIRE*/
endmodule
`)
	if len(m.Placeholders) != 3 {
		t.Fatalf("placeholders = %d, want 3", len(m.Placeholders))
	}
	if m.Placeholders[0].Kind != AutoArg || m.Placeholders[0].Ctx != CtxHeader {
		t.Errorf("placeholder 0 = %+v", m.Placeholders[0])
	}
	if m.Placeholders[1].Kind != AutoInput || m.Placeholders[1].Ctx != CtxBody {
		t.Errorf("placeholder 1 = %+v", m.Placeholders[1])
	}
}

func TestExtractGeneratedBlockIsSynthetic(t *testing.T) {
	src := `
module t;
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i1;  // To b of bar
  // End of automatics

  input i2;
endmodule
`
	m := extractOne(t, src)
	if len(m.BodyPorts) != 2 {
		t.Fatalf("body ports = %d, want 2", len(m.BodyPorts))
	}
	if !m.BodyPorts[0].Synthetic {
		t.Errorf("i1 should be synthetic: %+v", m.BodyPorts[0])
	}
	if m.BodyPorts[1].Synthetic {
		t.Errorf("i2 should not be synthetic: %+v", m.BodyPorts[1])
	}

	ph := m.Placeholders[0]
	if ph.RegionEnd <= ph.MarkerEnd {
		t.Error("placeholder region should cover the generated block")
	}
	if got := src[ph.MarkerStart:ph.MarkerEnd]; got != "/*AUTOINPUT*/" {
		t.Errorf("marker text = %q", got)
	}
}

func TestExtractBehaviouralCodeIgnored(t *testing.T) {
	m := extractOne(t, `
module t;
  input clk;
  output reg q;

  always @(posedge clk) begin
    if (q) q <= ~q;
    else q <= 1'b1;
  end

  assign w = q ? a : b;

  bar b (  /*AUTOINST*/);
endmodule
`)
	if len(m.Instances) != 1 || m.Instances[0].ModuleName != "bar" {
		t.Fatalf("instances = %+v", m.Instances)
	}
	if len(m.BodyPorts) != 2 {
		t.Errorf("body ports = %d, want 2", len(m.BodyPorts))
	}
}

func TestExtractMultipleModules(t *testing.T) {
	facts := New().ExtractText("test.sv", `
module a;
endmodule

module b;
  a a0 ();
endmodule
`)
	if len(facts.Modules) != 2 {
		t.Fatalf("modules = %d, want 2", len(facts.Modules))
	}
	if facts.Modules[1].Instances[0].ModuleName != "a" {
		t.Errorf("instance = %+v", facts.Modules[1].Instances[0])
	}
}

func TestExtractTemplateComment(t *testing.T) {
	m := extractOne(t, `
module t;
  /* bar AUTO_TEMPLATE (
         .i1(in_a[])); */
  bar b (  /*AUTOINST*/);
endmodule
`)
	if len(m.Templates) != 1 {
		t.Fatalf("templates = %d, want 1", len(m.Templates))
	}
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.sv")
	if err := os.WriteFile(path, []byte("module m;\nendmodule\n"), 0644); err != nil {
		t.Fatal(err)
	}
	facts, err := New().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts.Modules) != 1 || facts.Modules[0].Name != "m" {
		t.Errorf("facts = %+v", facts)
	}

	if _, err := New().Extract(filepath.Join(dir, "missing.sv")); err == nil {
		t.Error("expected error for missing file")
	}
}
