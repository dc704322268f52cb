// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package cfg builds the implicit control-flow graph used by the
// backward taint engine: for every instruction, its fall-through
// predecessor and the set of branch/jump instructions whose literal
// target resolves to it.
//
// No basic-block abstraction is built; the taint engine only ever needs
// per-instruction predecessor lookups.
package cfg

import "rvtaint.dev/riscv"

// node holds the predecessor relations for a single instruction.
type node struct {
	fallThrough *riscv.Instruction
	sources     []*riscv.Instruction
}

// Graph is the address-indexed instruction arena plus predecessor
// relations built from one disassembly listing.
//
// Instructions are never mutated after Build returns; Graph's methods
// hand back references into the same arena the caller passed in.
type Graph struct {
	byAddress map[uint64]*riscv.Instruction
	nodes     map[*riscv.Instruction]*node
	order     []*riscv.Instruction
}

// Build constructs a Graph from instructions in textual order.
//
// For each instruction, the textually preceding instruction becomes its
// fall-through predecessor. For each branch or jump with a literal
// target that resolves to a known address, the instruction is recorded
// as a predecessor ("source") of the target. Indirect jumps (jalr with
// no literal immediate) contribute no back-edge: a documented
// unsoundness that the snippet self-containment check is meant to
// screen for.
func Build(insts []*riscv.Instruction) *Graph {
	g := &Graph{
		byAddress: make(map[uint64]*riscv.Instruction, len(insts)),
		nodes:     make(map[*riscv.Instruction]*node, len(insts)),
		order:     insts,
	}

	for _, inst := range insts {
		g.byAddress[inst.Address] = inst
		g.nodes[inst] = &node{}
	}

	for i, inst := range insts {
		if i > 0 {
			g.nodes[inst].fallThrough = insts[i-1]
		}

		if !inst.IsBranch && !inst.IsJump {
			continue
		}
		if !inst.HasImm {
			continue
		}

		target, ok := g.byAddress[uint64(inst.Imm)]
		if !ok {
			continue
		}

		g.nodes[target].sources = append(g.nodes[target].sources, inst)
	}

	return g
}

// ByAddress looks up the instruction at the given address, if any.
func (g *Graph) ByAddress(addr uint64) (*riscv.Instruction, bool) {
	inst, ok := g.byAddress[addr]
	return inst, ok
}

// FallThrough returns the textual predecessor of inst, or nil if inst is
// the listing's first instruction.
func (g *Graph) FallThrough(inst *riscv.Instruction) *riscv.Instruction {
	n := g.nodes[inst]
	if n == nil {
		return nil
	}
	return n.fallThrough
}

// Sources returns every branch/jump instruction whose literal target
// resolves to inst's address, in textual order.
func (g *Graph) Sources(inst *riscv.Instruction) []*riscv.Instruction {
	n := g.nodes[inst]
	if n == nil {
		return nil
	}
	return n.sources
}

// Predecessors returns every instruction the backward taint engine may
// step to from inst: its branch/jump sources, followed by its
// fall-through predecessor if one exists.
func (g *Graph) Predecessors(inst *riscv.Instruction) []*riscv.Instruction {
	preds := append([]*riscv.Instruction(nil), g.Sources(inst)...)
	if ft := g.FallThrough(inst); ft != nil {
		preds = append(preds, ft)
	}
	return preds
}

// Instructions returns every instruction in the graph, in textual
// order.
func (g *Graph) Instructions() []*riscv.Instruction {
	return g.order
}
