// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package taint implements the path-sensitive backward taint engine:
// starting from each speculative transmitter inside a snippet, it walks
// the control-flow graph backward, tracking which initial (snippet-entry)
// register values the transmitter's leaked operand still depends on,
// until either the snippet entry is reached on every path, a cycle that
// does not grow the dependency set closes it, or a Spectre gadget is
// found.
package taint

import (
	"errors"
	"fmt"

	"rvtaint.dev/cfg"
	"rvtaint.dev/riscv"
	"rvtaint.dev/snippet"
)

// Transmitter is a load, store, or conditional branch inside the
// snippet window, together with the operand set it leaks under
// speculative execution.
type Transmitter struct {
	Inst   *riscv.Instruction
	Leaked riscv.RegisterSet
}

// FindTransmitters returns every load, store, or conditional branch
// whose address lies within the snippet window, in textual order.
func FindTransmitters(g *cfg.Graph, b snippet.Bounds) []Transmitter {
	var transmitters []Transmitter
	for _, inst := range g.Instructions() {
		if !b.Contains(inst.Address) {
			continue
		}
		if !inst.IsTransmitter() {
			continue
		}
		transmitters = append(transmitters, Transmitter{Inst: inst, Leaked: inst.LeakedOperands()})
	}
	return transmitters
}

// GadgetError reports that a speculative gadget was detected: a
// register exposed by a transmitter is itself defined, further back on
// some path, by a load or store. Its detection is itself the principal
// negative finding of a run, and per the analyzer's error taxonomy it
// is fatal: the whole run stops as soon as one is found.
type GadgetError struct {
	Transmitter *riscv.Instruction // The transmitter whose leaked operand is exposed.
	Definer     *riscv.Instruction // The load/store that defines the gadget register.
	Register    riscv.Register     // The register carrying the leak.
}

func (e *GadgetError) Error() string {
	return fmt.Sprintf("taint: Spectre gadget detected: 0x%x (%s) leaks %s, defined by memory access at 0x%x (%s)",
		e.Transmitter.Address, e.Transmitter.Opcode, e.Register, e.Definer.Address, e.Definer.Opcode)
}

// pathNode is one link of an immutable, tail-sharing history of visited
// instructions, most-recent first. Sharing tails across the branching
// worklist avoids the O(path-length) slice copy per successor that a
// plain []Instruction history would require; the loop-closure rule,
// not this representation, is what bounds exploration (see spec notes
// on path explosion).
type pathNode struct {
	inst       *riscv.Instruction
	depAtVisit riscv.RegisterSet // dep_reg recorded for this instruction at the time it was visited
	prev       *pathNode
}

// visited reports whether inst appears in the history headed by n, and
// if so, the dep_reg recorded for it.
func (n *pathNode) visited(inst *riscv.Instruction) (riscv.RegisterSet, bool) {
	for cur := n; cur != nil; cur = cur.prev {
		if cur.inst == inst {
			return cur.depAtVisit, true
		}
	}
	return riscv.RegisterSet{}, false
}

// slice materializes the history as a slice, most-recent first,
// matching spec.md's executed_inst ordering. It is only called once per
// finding, not on every worklist step.
func (n *pathNode) slice() []*riscv.Instruction {
	var out []*riscv.Instruction
	for cur := n; cur != nil; cur = cur.prev {
		out = append(out, cur.inst)
	}
	return out
}

// state is one frontier node of the backward search (spec.md's
// BackwardState).
type state struct {
	current   *riscv.Instruction
	firstInst bool // suppresses the seed's own address-operand pruning
	depReg    riscv.RegisterSet
	history   *pathNode // path walked so far, not including current
}

// Finding records one path from the snippet entry to a transmitter,
// along with the set of initial registers that path shows the
// transmitter's leaked operand depends on.
type Finding struct {
	Transmitter *riscv.Instruction
	DepReg      riscv.RegisterSet
	Path        []*riscv.Instruction // entry instruction first, transmitter last
}

// Result is the accumulated output of a full run across every
// transmitter in a snippet.
type Result struct {
	Findings         []Finding
	ExposedRegisters []riscv.Register // sorted, de-duplicated union of every finding's DepReg
}

// TraceFunc is called once per worklist pop during backward exploration,
// after loop closure is checked but before any of that step's dep_reg
// transforms are applied; a pop that loop closure discards is not
// traced. It exists purely for diagnostics (see
// cmd/riscv-spectre-scan's -trace flag) and must not be used to affect
// the analysis itself.
type TraceFunc func(inst *riscv.Instruction, depReg riscv.RegisterSet)

// Run explores, for every transmitter, every backward path to the
// snippet entry, returning the accumulated findings plus the unique
// sorted union of exposed initial registers.
//
// Run returns a *GadgetError the instant a Spectre gadget is
// detected on any path for any transmitter: per the analyzer's error
// taxonomy this is the one outcome that halts the whole run rather than
// simply being recorded as a finding.
func Run(g *cfg.Graph, transmitters []Transmitter) (Result, error) {
	return RunWithTrace(g, transmitters, nil)
}

// RunWithTrace behaves exactly as Run, additionally invoking trace once
// per worklist pop that survives loop closure, across every
// transmitter's exploration, if trace is non-nil.
func RunWithTrace(g *cfg.Graph, transmitters []Transmitter, trace TraceFunc) (Result, error) {
	var findings []Finding

	for _, t := range transmitters {
		tfindings, err := runOne(g, t, trace)
		if err != nil {
			return Result{}, err
		}
		findings = append(findings, tfindings...)
	}

	exposed := riscv.NewRegisterSet()
	for _, f := range findings {
		for _, r := range f.DepReg.Registers() {
			exposed = exposed.With(r)
		}
	}

	return Result{Findings: findings, ExposedRegisters: exposed.Registers()}, nil
}

func runOne(g *cfg.Graph, t Transmitter, trace TraceFunc) ([]Finding, error) {
	if !t.Inst.IsLoad && !t.Inst.IsStore && !t.Inst.IsBranch {
		return nil, fmt.Errorf("%w: 0x%x (%s) is not a valid transmitter", ErrInternal, t.Inst.Address, t.Inst.Opcode)
	}

	worklist := []state{{
		current:   t.Inst,
		firstInst: true,
		depReg:    t.Leaked,
	}}

	var findings []Finding

	for len(worklist) > 0 {
		st := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		inst := st.current

		// Step 1: loop closure. A revisit of the same instruction with
		// an identical dep_reg has closed a cycle that does not grow
		// the dependency set; this is the sole termination mechanism.
		if prevDep, ok := st.history.visited(inst); ok && prevDep == st.depReg {
			continue
		}

		// Step 2: record the visit, before any of this step's
		// transforms are applied.
		history := &pathNode{inst: inst, depAtVisit: st.depReg, prev: st.history}
		depReg := st.depReg

		if trace != nil {
			trace(inst, depReg)
		}

		// Step 3: address-operand pruning. The transmitter already
		// exposes its own address register; an earlier use of the same
		// register as a load/store address is a separate transmitter
		// and need not be propagated again. The seed instruction is
		// exempted so it cannot erase its own seeded dependency.
		if (inst.IsLoad || inst.IsStore) && depReg.Contains(inst.Rs1) && !st.firstInst {
			depReg = depReg.Without(inst.Rs1)
		}

		// Branch operands are deliberately NOT pruned here: unlike
		// load/store address registers, a branch's compared registers
		// stay in dep_reg on propagation. This asymmetry is inherited
		// from the upstream analysis and preserved intentionally.

		// Step 4: definition step.
		if inst.Rd != "" && depReg.Contains(inst.Rd) {
			depReg = depReg.Without(inst.Rd)

			if inst.IsLoad || inst.IsStore {
				return nil, &GadgetError{Transmitter: t.Inst, Definer: inst, Register: inst.Rd}
			}

			// Only register operands carry taint: csrrs/csrrc hold their
			// CSR number in Rs1, and that literal is not a register.
			if inst.Rs1 != "" && riscv.IsRegister(string(inst.Rs1)) {
				depReg = depReg.With(inst.Rs1)
			}
			if inst.Rs2 != "" && riscv.IsRegister(string(inst.Rs2)) {
				depReg = depReg.With(inst.Rs2)
			}
		}

		// Step 5: entry reached.
		if inst.Opcode == "csrrs" {
			findings = append(findings, Finding{
				Transmitter: t.Inst,
				DepReg:      depReg,
				Path:        history.slice(),
			})
			continue
		}

		// Step 6: propagation.
		if depReg.Empty() {
			continue
		}

		for _, pred := range g.Predecessors(inst) {
			worklist = append(worklist, state{
				current:   pred,
				firstInst: false,
				depReg:    depReg,
				history:   history,
			})
		}
	}

	return findings, nil
}

// ErrInternal marks a programmer error (an instruction of an unexpected
// class reaching the taint engine) rather than a property of the input
// listing. Callers that reach this should treat it as a fatal bug, not
// a reportable analysis outcome.
var ErrInternal = errors.New("taint: internal error")
