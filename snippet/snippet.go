// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package snippet locates the code region under analysis within a
// disassembly listing and verifies that it has no control-flow exits.
package snippet

import (
	"errors"
	"fmt"

	"rvtaint.dev/riscv"
)

// DefaultCSR is the control/status-register number used, by convention,
// to delimit the snippet under analysis.
const DefaultCSR = 0x802

// ErrMarkersNotFound is returned by Locate when the listing does not
// contain both a start and end marker. This is a semantic precondition
// failure, not a parse error: the caller should report it and emit no
// findings, rather than treat it as fatal.
var ErrMarkersNotFound = errors.New("snippet: start/end markers not found")

// Bounds identifies the snippet window: the start (csrrs) and end
// (csrrc) marker instructions, inclusive.
type Bounds struct {
	Start *riscv.Instruction
	End   *riscv.Instruction
	csr   string
}

// Contains reports whether addr lies within the snippet window,
// inclusive of both bounds.
func (b Bounds) Contains(addr uint64) bool {
	return addr >= b.Start.Address && addr <= b.End.Address
}

// Locate finds the snippet start and end markers per the csrNumber
// sentinel (conventionally 0x802): the start is the first csrrs whose
// Rs1 operand matches the literal CSR operand; the end is the first
// csrrc with the same operand at or after the start.
//
// This follows a documented quirk of the upstream disassembler's own
// operand placement: csrrs/csrrc carry their CSR operand in Rs1, while
// csrr/csrw carry it in Imm. The marker match intentionally keys off
// Rs1, not Imm, to match that convention exactly.
func Locate(insts []*riscv.Instruction, csrNumber uint64) (Bounds, error) {
	csr := fmt.Sprintf("0x%x", csrNumber)

	var start, end *riscv.Instruction
	for _, inst := range insts {
		switch {
		case start == nil && inst.Opcode == "csrrs" && string(inst.Rs1) == csr:
			start = inst
		case start != nil && end == nil && inst.Opcode == "csrrc" && string(inst.Rs1) == csr:
			end = inst
		}
	}

	if start == nil || end == nil {
		return Bounds{}, ErrMarkersNotFound
	}

	return Bounds{Start: start, End: end, csr: csr}, nil
}

// ErrNotSelfContained is the error type returned by CheckSelfContained
// when a branch or jump escapes the snippet window.
type ErrNotSelfContained struct {
	Inst   *riscv.Instruction // The escaping branch/jump.
	Target int64              // Its literal target, if any.
	Reason string             // Why it was treated as an escape.
}

func (e *ErrNotSelfContained) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("snippet: 0x%x: %s: %s", e.Inst.Address, e.Inst.Opcode, e.Reason)
	}
	return fmt.Sprintf("snippet: 0x%x: %s: target 0x%x escapes the snippet window", e.Inst.Address, e.Inst.Opcode, e.Target)
}

// CheckSelfContained walks every instruction in the snippet window
// [b.Start, b.End] and verifies that every branch/jump with a
// resolvable literal target stays within the window.
//
// Per the spec's strict-reimplementation choice (the original
// disassembler's own self-containment check silently passes a
// branch/jump whose literal target could not be resolved), any
// branch/jump inside the window whose target cannot be resolved to a
// literal address is itself treated as an escape, rather than ignored.
func CheckSelfContained(insts []*riscv.Instruction, b Bounds) error {
	for _, inst := range insts {
		if !b.Contains(inst.Address) {
			continue
		}
		if !inst.IsBranch && !inst.IsJump {
			continue
		}

		if !inst.HasImm {
			return &ErrNotSelfContained{Inst: inst, Reason: "literal target could not be resolved"}
		}

		target := uint64(inst.Imm)
		if target < b.Start.Address || target > b.End.Address {
			return &ErrNotSelfContained{Inst: inst, Target: inst.Imm}
		}
	}

	return nil
}
