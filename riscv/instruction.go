// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package riscv

import "fmt"

// Instruction is the decoded form of one line of a RISC-V disassembly
// listing.
//
// Exactly one of IsLoad, IsStore, IsBranch, IsJump may be true; none are
// true for pure arithmetic, CSR or move-pseudo-op instructions.
type Instruction struct {
	Address uint64 // Unique key within a listing.
	Opcode  string // Canonical mnemonic, e.g. "addi", "ld", "beq".

	Rd  Register // Destination register, if any.
	Rs1 Register // First source register, if any. For stores, the address base.
	Rs2 Register // Second source register, if any. For stores, the stored value.

	Imm    int64 // Signed/unsigned immediate or literal branch/jump target.
	HasImm bool  // Whether Imm is populated; Go has no optional int.

	IsLoad   bool
	IsStore  bool
	IsBranch bool
	IsJump   bool
}

// String renders the instruction roughly as it appeared in the listing,
// for reports and trace output.
func (inst *Instruction) String() string {
	s := fmt.Sprintf("0x%x: %s", inst.Address, inst.Opcode)
	if inst.Rd != "" {
		s += " " + string(inst.Rd)
	}
	if inst.Rs1 != "" {
		s += " " + string(inst.Rs1)
	}
	if inst.Rs2 != "" {
		s += " " + string(inst.Rs2)
	}
	if inst.HasImm {
		s += fmt.Sprintf(" 0x%x", inst.Imm)
	}
	return s
}

// IsTransmitter reports whether the instruction is a potential
// speculative transmitter: a load, a store, or a conditional branch.
func (inst *Instruction) IsTransmitter() bool {
	return inst.IsLoad || inst.IsStore || inst.IsBranch
}

// LeakedOperands returns the set of registers whose values the
// instruction leaks under speculative execution: the address base for
// a load/store, or the compared pair for a branch.
//
// It is only meaningful for instructions where IsTransmitter is true.
func (inst *Instruction) LeakedOperands() RegisterSet {
	switch {
	case inst.IsLoad, inst.IsStore:
		return NewRegisterSet(inst.Rs1)
	case inst.IsBranch:
		return NewRegisterSet(inst.Rs1, inst.Rs2)
	default:
		return RegisterSet{}
	}
}

var loadOpcodes = map[string]bool{
	"ld": true, "lw": true, "lh": true, "lb": true,
	"lbu": true, "lhu": true, "lwu": true, "flw": true,
}

var storeOpcodes = map[string]bool{
	"sd": true, "sw": true, "sh": true, "sb": true, "fsw": true,
}

var condBranchOpcodes = map[string]bool{
	"beq": true, "bne": true, "blt": true, "bge": true, "bltu": true, "bgeu": true,
}

var zeroBranchOpcodes = map[string]bool{
	"bnez": true, "beqz": true,
}

var jumpOpcodes = map[string]bool{
	"j": true, "jal": true, "jalr": true,
}

var csrROpcodes = map[string]bool{
	"csrr": true,
}

var csrWOpcodes = map[string]bool{
	"csrw": true,
}

var csrRSCOpcodes = map[string]bool{
	"csrrs": true, "csrrc": true,
}

var immDefOpcodes = map[string]bool{
	"li": true, "lui": true, "auipc": true,
}

var immArithOpcodes = map[string]bool{
	"addi": true, "slti": true, "sltiu": true, "xori": true,
	"ori": true, "andi": true, "slli": true, "srli": true, "srai": true,
}

var regArithOpcodes = map[string]bool{
	"add": true, "addw": true, "sub": true, "sll": true, "slt": true,
	"sltu": true, "xor": true, "srl": true, "sra": true, "or": true,
	"and": true, "fadd": true, "fsub": true, "fmul": true, "fdiv": true,
	"flt": true,
}

var moveOpcodes = map[string]bool{
	"mv": true, "fmv": true, "sext": true,
}
