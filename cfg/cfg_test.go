// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package cfg

import (
	"testing"

	"rvtaint.dev/riscv"
)

func mustParse(t *testing.T, lines ...string) []*riscv.Instruction {
	t.Helper()

	var insts []*riscv.Instruction
	for _, line := range lines {
		inst, err := riscv.ParseLine(line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		if inst == nil {
			t.Fatalf("ParseLine(%q) produced no instruction", line)
		}
		insts = append(insts, inst)
	}
	return insts
}

func TestBuildFallThrough(t *testing.T) {
	insts := mustParse(t,
		"    1000:\tfeedface\t\taddi\ta0,zero,0x10",
		"    1004:\tfeedface\t\tld\ta1,0(a0)",
	)

	g := Build(insts)
	if g.FallThrough(insts[0]) != nil {
		t.Errorf("first instruction has a fall-through predecessor")
	}
	if g.FallThrough(insts[1]) != insts[0] {
		t.Errorf("second instruction's fall-through = %v, want first instruction", g.FallThrough(insts[1]))
	}
}

func TestBuildBackEdge(t *testing.T) {
	insts := mustParse(t,
		"    1000:\tfeedface\t\taddi\ta0,zero,0x1",
		"    1004:\tfeedface\t\tbeq\ta0,zero,1000 <loop>",
		"    1008:\tfeedface\t\tret",
	)

	g := Build(insts)
	sources := g.Sources(insts[0])
	if len(sources) != 1 || sources[0] != insts[1] {
		t.Errorf("Sources(first) = %v, want [branch]", sources)
	}
}

func TestBuildIndirectJumpNoBackEdge(t *testing.T) {
	insts := mustParse(t,
		"    1000:\tfeedface\t\taddi\ta0,zero,0x1",
		"    1004:\tfeedface\t\tjalr\tra,a0",
	)

	g := Build(insts)
	if len(g.Sources(insts[0])) != 0 {
		t.Errorf("indirect jalr contributed a back-edge: %v", g.Sources(insts[0]))
	}
}

func TestPredecessorsOrder(t *testing.T) {
	insts := mustParse(t,
		"    1000:\tfeedface\t\taddi\ta0,zero,0x1",
		"    1004:\tfeedface\t\tbeq\ta0,zero,1000 <loop>",
		"    1008:\tfeedface\t\taddi\ta0,a0,-1",
	)

	g := Build(insts)
	preds := g.Predecessors(insts[0])
	if len(preds) != 1 || preds[0] != insts[1] {
		t.Errorf("Predecessors(first) = %v, want [branch] (no fall-through: it's the first instruction)", preds)
	}

	preds = g.Predecessors(insts[2])
	if len(preds) != 1 || preds[0] != insts[1] {
		t.Errorf("Predecessors(third) = %v, want [fall-through to branch]", preds)
	}
}
