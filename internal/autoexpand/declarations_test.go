package autoexpand

import (
	"testing"

	"github.com/robert-at-pretension-io/sv-autoexpand/internal/lsp"
)

func TestAutoInputExpandEmpty(t *testing.T) {
	testTextEdits(t, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo;
  /*AUTOINPUT*/

  input i3;

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo;
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i1;  // To b of bar
  input i2[4][8];  // To b of bar
  // End of automatics

  input i3;

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule
`)
}

func TestAutoInputNoExpand(t *testing.T) {
	testTextEdits(t, `
module bar;
endmodule

module foo;
  /*AUTOINPUT*/

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar;
endmodule

module foo;
  /*AUTOINPUT*/

  bar b (  /*AUTOINST*/);
endmodule
`)
}

func TestAutoInputReplace(t *testing.T) {
	testTextEdits(t, `
module bar (
    input  i1,
    output o1
);
  input i2;
  inout [7:0][7:0] io;
  output o2;
endmodule

module foo;
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input in_1;  // To b of bar
  input in_2;  // To b of bar
  // End of automatics

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input  i1,
    output o1
);
  input i2;
  inout [7:0][7:0] io;
  output o2;
endmodule

module foo;
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i1;  // To b of bar
  input i2;  // To b of bar
  // End of automatics

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1),
      .o2(o2)
  );
endmodule
`)
}

func TestAutoInoutExpandEmpty(t *testing.T) {
	testTextEdits(t, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout io1;
  output [31:0] o2[8];
endmodule

module foo;
  /*AUTOINOUT*/

  inout io2;

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout io1;
  output [31:0] o2[8];
endmodule

module foo;
  /*AUTOINOUT*/
  // Beginning of automatic inouts (from autoinst inouts)
  inout io1;  // To/From b of bar
  // End of automatics

  inout io2;

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io1(io1),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule
`)
}

func TestAutoInoutReplace(t *testing.T) {
	testTextEdits(t, `
module bar (
    input  i1,
    output o1
);
  input i2;
  inout [7:0][7:0] io;
  output o2;
endmodule

module foo;
  /*AUTOINOUT*/
  // Beginning of automatic inouts (from autoinst inouts)
  input in_out;  // To/From b of bar
  // End of automatics

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input  i1,
    output o1
);
  input i2;
  inout [7:0][7:0] io;
  output o2;
endmodule

module foo;
  /*AUTOINOUT*/
  // Beginning of automatic inouts (from autoinst inouts)
  inout [7:0][7:0] io;  // To/From b of bar
  // End of automatics

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1),
      .o2(o2)
  );
endmodule
`)
}

func TestAutoOutputExpandEmpty(t *testing.T) {
	testTextEdits(t, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo;
  /*AUTOOUTPUT*/

  output o3;

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo;
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output [15:0] o1;  // From b of bar
  output [31:0] o2[8];  // From b of bar
  // End of automatics

  output o3;

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule
`)
}

func TestAutoOutputReplace(t *testing.T) {
	testTextEdits(t, `
module bar (
    input  i1,
    output o1
);
  input i2;
  inout [7:0][7:0] io;
  output o2;
endmodule

module foo;
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output out_1;  // From b of bar
  output out_2;  // From b of bar
  // End of automatics

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input  i1,
    output o1
);
  input i2;
  inout [7:0][7:0] io;
  output o2;
endmodule

module foo;
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output o1;  // From b of bar
  output o2;  // From b of bar
  // End of automatics

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1),
      .o2(o2)
  );
endmodule
`)
}

func TestExpandPorts(t *testing.T) {
	testTextEdits(t, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo (  /*AUTOARG*/);
  /*AUTOINPUT*/
  /*AUTOOUTPUT*/
  /*AUTOINOUT*/

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo (  /*AUTOARG*/
    // Inputs
    i1,
    i2,
    // Inouts
    io,
    // Outputs
    o1,
    o2
);
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i1;  // To b of bar
  input i2[4][8];  // To b of bar
  // End of automatics
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output [15:0] o1;  // From b of bar
  output [31:0] o2[8];  // From b of bar
  // End of automatics
  /*AUTOINOUT*/
  // Beginning of automatic inouts (from autoinst inouts)
  inout [7:0][7:0] io;  // To/From b of bar
  // End of automatics

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule
`)
}

func TestExpandPortsInHeader(t *testing.T) {
	testTextEdits(t, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo (
    /*AUTOINPUT*/
    /*AUTOOUTPUT*/
    /*AUTOINOUT*/
);

  bar b (  /*AUTOINST*/);
endmodule
`, `
module bar (
    input i1,
    output [15:0] o1
);
  input i2[4][8];
  inout [7:0][7:0] io;
  output [31:0] o2[8];
endmodule

module foo (
    /*AUTOINPUT*/
    // Beginning of automatic inputs (from autoinst inputs)
    input i1,  // To b of bar
    input i2[4][8],  // To b of bar
    // End of automatics
    /*AUTOOUTPUT*/
    // Beginning of automatic outputs (from autoinst outputs)
    output [15:0] o1,  // From b of bar
    output [31:0] o2[8],  // From b of bar
    // End of automatics
    /*AUTOINOUT*/
    // Beginning of automatic inouts (from autoinst inouts)
    inout [7:0][7:0] io  // To/From b of bar
    // End of automatics
);

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule
`)
}

func TestExpandPortsOutOfOrderModules(t *testing.T) {
	testTextEdits(t, `
module foo (  /*AUTOARG*/);
  /*AUTOINPUT*/
  /*AUTOOUTPUT*/
  /*AUTOINOUT*/

  bar b (  /*AUTOINST*/);
endmodule

module bar (
    input i1,
    output [15:0] o1
);
  /*AUTOINPUT*/
  /*AUTOOUTPUT*/

  inout [7:0][7:0] io;
  qux q (  /*AUTOINST*/);
endmodule

module qux (
    input i1,
    input i2[4][8],
    output [15:0] o1,
    output [31:0] o2[8]
);
endmodule
`, `
module foo (  /*AUTOARG*/
    // Inputs
    i1,
    i2,
    // Inouts
    io,
    // Outputs
    o1,
    o2
);
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i1;  // To b of bar
  input i2[4][8];  // To b of bar
  // End of automatics
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output [15:0] o1;  // From b of bar
  output [31:0] o2[8];  // From b of bar
  // End of automatics
  /*AUTOINOUT*/
  // Beginning of automatic inouts (from autoinst inouts)
  inout [7:0][7:0] io;  // To/From b of bar
  // End of automatics

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule

module bar (
    input i1,
    output [15:0] o1
);
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i2[4][8];  // To q of qux
  // End of automatics
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output [31:0] o2[8];  // From q of qux
  // End of automatics

  inout [7:0][7:0] io;
  qux q (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule

module qux (
    input i1,
    input i2[4][8],
    output [15:0] o1,
    output [31:0] o2[8]
);
endmodule
`)
}

// Three modules instantiating each other in a loop. The expander terminates,
// each AUTOINST expands once with the ports known at visit time, and a second
// pass over the applied result reaches the fixed point.
func TestExpandPortsDependencyLoop(t *testing.T) {
	before := `
module foo (  /*AUTOARG*/);
  /*AUTOINPUT*/
  /*AUTOOUTPUT*/
  /*AUTOINOUT*/

  bar b (  /*AUTOINST*/);
endmodule

module bar (
    input i1,
    output [15:0] o1
);
  /*AUTOINPUT*/
  /*AUTOOUTPUT*/

  inout [7:0][7:0] io;
  qux q (  /*AUTOINST*/);
endmodule

module qux (
    input i1,
    input i2[4][8],
    output [15:0] o1,
    output [31:0] o2[8]
);

  foo f (  /*AUTOINST*/);
endmodule
`
	golden := `
module foo (  /*AUTOARG*/
    // Inputs
    i1,
    i2,
    // Inouts
    io,
    // Outputs
    o1,
    o2
);
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i1;  // To b of bar
  input i2[4][8];  // To b of bar
  // End of automatics
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output [15:0] o1;  // From b of bar
  output [31:0] o2[8];  // From b of bar
  // End of automatics
  /*AUTOINOUT*/
  // Beginning of automatic inouts (from autoinst inouts)
  inout [7:0][7:0] io;  // To/From b of bar
  // End of automatics

  bar b (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule

module bar (
    input i1,
    output [15:0] o1
);
  /*AUTOINPUT*/
  // Beginning of automatic inputs (from autoinst inputs)
  input i2[4][8];  // To q of qux
  // End of automatics
  /*AUTOOUTPUT*/
  // Beginning of automatic outputs (from autoinst outputs)
  output [31:0] o2[8];  // From q of qux
  // End of automatics

  inout [7:0][7:0] io;
  qux q (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule

module qux (
    input i1,
    input i2[4][8],
    output [15:0] o1,
    output [31:0] o2[8]
);

  foo f (  /*AUTOINST*/
      // Inputs
      .i1(i1),
      .i2(i2  /*.[4][8]*/),
      // Inouts
      .io(io  /*[7:0][7:0]*/),
      // Outputs
      .o1(o1[15:0]),
      .o2(o2  /*[31:0].[8]*/)
  );
endmodule
`
	// First pass: terminates, expands every marker once with the ports
	// known at visit time (foo has none yet when qux is visited).
	req := Request{BufferURI: "<<tested-file>>", BufferText: before}
	once := lsp.ApplyEdits(before, Expand(req))

	// Second pass reaches the fixed point.
	req.BufferText = once
	twice := lsp.ApplyEdits(once, Expand(req))
	if twice != golden {
		t.Errorf("second pass mismatch\n--- got ---\n%s\n--- want ---\n%s", twice, golden)
	}

	// And the fixed point is stable.
	testTextEdits(t, golden, golden)
}
