// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package taint

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"rvtaint.dev/cfg"
	"rvtaint.dev/riscv"
	"rvtaint.dev/snippet"
)

var compareOptions = []cmp.Option{
	cmpopts.EquateComparable(riscv.RegisterSet{}),
	cmpopts.IgnoreFields(Finding{}, "Path"),
}

func analyze(t *testing.T, listing string) (*cfg.Graph, snippet.Bounds, []Transmitter) {
	t.Helper()

	insts, err := riscv.ParseListing(strings.NewReader(listing))
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}

	b, err := snippet.Locate(insts, snippet.DefaultCSR)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if err := snippet.CheckSelfContained(insts, b); err != nil {
		t.Fatalf("CheckSelfContained: %v", err)
	}

	g := cfg.Build(insts)
	transmitters := FindTransmitters(g, b)

	return g, b, transmitters
}

// Scenario 1: empty snippet. No transmitters, no findings.
func TestEmptySnippet(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	if len(transmitters) != 0 {
		t.Fatalf("transmitters = %v, want none", transmitters)
	}

	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Findings) != 0 || len(result.ExposedRegisters) != 0 {
		t.Fatalf("Result = %+v, want no findings and no exposed registers", result)
	}
}

// Scenario 2: a0 is defined locally inside the snippet from an
// immediate before the load uses it as an address, so nothing initial
// leaks.
func TestTrivialLoadNoLeak(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		addi	a0,zero,0x10
    1008:	feedface		ld	a1,0(a0)
    100c:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	if len(transmitters) != 1 {
		t.Fatalf("transmitters = %v, want exactly one (the ld)", transmitters)
	}
	if transmitters[0].Inst.Address != 0x1008 {
		t.Fatalf("transmitter address = 0x%x, want 0x1008", transmitters[0].Inst.Address)
	}

	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want exactly one", result.Findings)
	}
	if !result.Findings[0].DepReg.Empty() {
		t.Errorf("finding dep_reg = %v, want empty (a0 is defined inside the snippet)", result.Findings[0].DepReg)
	}
	if len(result.ExposedRegisters) != 0 {
		t.Errorf("exposed registers = %v, want none", result.ExposedRegisters)
	}
}

// Scenario 3: a0 flows in from the snippet entry untouched, so it is
// exposed.
func TestLeakOfInitialRegister(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		ld	a1,0(a0)
    1008:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	if len(transmitters) != 1 {
		t.Fatalf("transmitters = %v, want exactly one", transmitters)
	}

	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want exactly one", result.Findings)
	}

	want := riscv.NewRegisterSet("a0")
	if result.Findings[0].DepReg != want {
		t.Errorf("finding dep_reg = %v, want %v", result.Findings[0].DepReg, want)
	}
	if len(result.ExposedRegisters) != 1 || result.ExposedRegisters[0] != "a0" {
		t.Errorf("exposed registers = %v, want [a0]", result.ExposedRegisters)
	}

	path := result.Findings[0].Path
	if len(path) == 0 || path[0].Opcode != "csrrs" {
		t.Errorf("path does not start at the entry marker: %v", path)
	}
	if len(path) == 0 || path[len(path)-1] != transmitters[0].Inst {
		t.Errorf("path does not end at the transmitter: %v", path)
	}
}

// Scenario 4: a backward branch forms a cycle whose body only touches a
// register outside dep_reg; exploration must still terminate and agree
// with the straight-line path.
func TestLoopThatDoesNotGrowDependencySet(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		addi	t0,t0,-1
    1008:	feedface		bnez	t0,1004 <loop>
    100c:	feedface		ld	a1,0(a0)
    1010:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	if len(transmitters) != 2 { // the bnez and the ld are both transmitters
		t.Fatalf("transmitters = %v, want two", transmitters)
	}

	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var loadFinding *Finding
	for i := range result.Findings {
		if result.Findings[i].Transmitter.Opcode == "ld" {
			loadFinding = &result.Findings[i]
		}
	}
	if loadFinding == nil {
		t.Fatalf("no finding for the load transmitter: %+v", result.Findings)
	}

	want := riscv.NewRegisterSet("a0")
	if loadFinding.DepReg != want {
		t.Errorf("load finding dep_reg = %v, want %v", loadFinding.DepReg, want)
	}
}

// Scenario 5: a register exposed by a transmitter is itself defined by
// an earlier load: a Spectre gadget.
func TestSpectreGadgetDetected(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		ld	a2,0(a0)
    1008:	feedface		ld	a3,0(a2)
    100c:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)

	_, err := Run(g, transmitters)
	var gadget *GadgetError
	if !errors.As(err, &gadget) {
		t.Fatalf("Run error = %v, want *GadgetError", err)
	}
	if gadget.Register != "a2" {
		t.Errorf("gadget register = %q, want a2", gadget.Register)
	}
	if gadget.Definer.Address != 0x1004 {
		t.Errorf("gadget definer address = 0x%x, want 0x1004", gadget.Definer.Address)
	}
}

func TestMoveTransfersDependency(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		mv	a1,a0
    1008:	feedface		ld	a2,0(a1)
    100c:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want one", result.Findings)
	}

	want := riscv.NewRegisterSet("a0")
	if result.Findings[0].DepReg != want {
		t.Errorf("finding dep_reg = %v, want %v (mv propagates taint from a1 to a0)", result.Findings[0].DepReg, want)
	}
}

func TestAddiReplacesDestinationWithSource(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		addi	a1,a0,4
    1008:	feedface		ld	a2,0(a1)
    100c:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want one", result.Findings)
	}

	want := riscv.NewRegisterSet("a0")
	if result.Findings[0].DepReg != want {
		t.Errorf("finding dep_reg = %v, want %v (addi replaces a1 with a0 in dep_reg)", result.Findings[0].DepReg, want)
	}
}

func TestBranchOperandsSurviveSeedPropagation(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		beq	a0,a1,1004 <self>
    1008:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Findings) == 0 {
		t.Fatalf("no findings for branch transmitter")
	}

	want := riscv.NewRegisterSet("a0", "a1")
	found := false
	for _, f := range result.Findings {
		if f.DepReg == want {
			found = true
		}
	}
	if !found {
		t.Errorf("no finding retained both branch operands {a0, a1} (branch operands must not be pruned on propagation): %+v", result.Findings)
	}
}

func TestTransmitterImmediatelyAfterEntry(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		ld	a1,0(a0)
    1008:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)
	result, err := Run(g, transmitters)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want one", result.Findings)
	}
	if diff := cmp.Diff(riscv.NewRegisterSet("a0"), result.Findings[0].DepReg, compareOptions...); diff != "" {
		t.Errorf("dep_reg mismatch (-want +got):\n%s", diff)
	}
}

func TestRunWithTraceCallsBackOncePerPop(t *testing.T) {
	listing := `
    1000:	feedface		csrrs	zero,0x802
    1004:	feedface		mv	a1,a0
    1008:	feedface		ld	a2,0(a1)
    100c:	feedface		csrrc	zero,0x802
`
	g, _, transmitters := analyze(t, listing)

	var popped []*riscv.Instruction
	trace := func(inst *riscv.Instruction, depReg riscv.RegisterSet) {
		popped = append(popped, inst)
	}

	result, err := RunWithTrace(g, transmitters, trace)
	if err != nil {
		t.Fatalf("RunWithTrace: %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %v, want one", result.Findings)
	}

	// The walk pops the ld (seed), the mv, and the csrrs entry marker,
	// in that order, on its single path back to the snippet entry.
	wantOpcodes := []string{"ld", "mv", "csrrs"}
	if len(popped) != len(wantOpcodes) {
		t.Fatalf("trace saw %d pops, want %d: %v", len(popped), len(wantOpcodes), popped)
	}
	for i, op := range wantOpcodes {
		if popped[i].Opcode != op {
			t.Errorf("pop %d opcode = %q, want %q", i, popped[i].Opcode, op)
		}
	}
}
