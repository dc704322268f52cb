// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package riscv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrUnknownOpcode is the sentinel error wrapped by ParseLine when a
// recognised instruction header names a mnemonic this package has no
// operand grammar for. Per the analyzer's error taxonomy, an unknown
// mnemonic is a coverage error: silently treating it as a no-op would
// drop a dependency and make the taint analysis unsound, so parsing
// refuses to proceed.
var ErrUnknownOpcode = errors.New("riscv: unknown opcode")

// lineHeader matches the outer shape of a disassembly line:
//
//	  <hex-addr>: <hex-encoding> <mnemonic> <operands>
//
// A line that does not match this shape (blank lines, labels, section
// headers) is skipped rather than treated as an error.
var lineHeader = regexp.MustCompile(`^\s*([0-9a-fA-F]+):\s+[0-9a-fA-F]+\s+(\S+)\s*(.*)`)

// hexSubstring finds the first hex-looking substring of a string, used
// to recover a literal branch/jump target address from an operand that
// may carry a symbolic label alongside it (e.g. "140 <foo>").
var hexSubstring = regexp.MustCompile(`[0-9a-fA-F]+`)

// ParseLine decodes a single textual disassembly line into an
// Instruction.
//
// It returns (nil, nil) if the line does not match the outer header
// shape (blank lines, labels, section headers): these are recoverable
// and simply yield no instruction. It returns a non-nil error for a
// malformed operand list (too few operands, a malformed load/store
// address operand, or a bad required immediate) or an unrecognised
// mnemonic (wrapping ErrUnknownOpcode); per the analyzer's error
// taxonomy the caller should treat that as fatal.
func ParseLine(line string) (*Instruction, error) {
	m := lineHeader.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}

	addr, err := parseHexAddress(m[1])
	if err != nil {
		return nil, fmt.Errorf("riscv: malformed address %q: %w", m[1], err)
	}

	opcode := m[2]
	args := splitArgs(m[3])

	inst := &Instruction{Address: addr, Opcode: opcode}

	switch {
	case loadOpcodes[opcode]:
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 2 operands, got %d", addr, opcode, len(args))
		}
		inst.Rd = Register(strings.TrimSpace(args[0]))
		imm, base, err := parseOffsetBase(args[1])
		if err != nil {
			return nil, fmt.Errorf("riscv: 0x%x: %s: %w", addr, opcode, err)
		}
		inst.Imm, inst.HasImm = imm, true
		inst.Rs1 = base
		inst.IsLoad = true

	case storeOpcodes[opcode]:
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 2 operands, got %d", addr, opcode, len(args))
		}
		inst.Rs2 = Register(strings.TrimSpace(args[0]))
		imm, base, err := parseOffsetBase(args[1])
		if err != nil {
			return nil, fmt.Errorf("riscv: 0x%x: %s: %w", addr, opcode, err)
		}
		inst.Imm, inst.HasImm = imm, true
		inst.Rs1 = base
		inst.IsStore = true

	case condBranchOpcodes[opcode]:
		if len(args) < 3 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 3 operands, got %d", addr, opcode, len(args))
		}
		inst.Rs1 = Register(strings.TrimSpace(args[0]))
		inst.Rs2 = Register(strings.TrimSpace(args[1]))
		if target, ok := parseHexTarget(args[2]); ok {
			inst.Imm, inst.HasImm = target, true
		}
		inst.IsBranch = true

	case zeroBranchOpcodes[opcode]:
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 2 operands, got %d", addr, opcode, len(args))
		}
		inst.Rs1 = Register(strings.TrimSpace(args[0]))
		if target, ok := parseHexTarget(args[1]); ok {
			inst.Imm, inst.HasImm = target, true
		}
		inst.IsBranch = true

	case jumpOpcodes[opcode]:
		if opcode != "j" {
			if len(args) < 1 {
				return nil, fmt.Errorf("riscv: 0x%x: %s: expected at least 1 operand, got %d", addr, opcode, len(args))
			}
			inst.Rd = Register(strings.TrimSpace(args[0]))
		}
		if opcode == "jalr" {
			if len(args) < 2 {
				return nil, fmt.Errorf("riscv: 0x%x: jalr: expected 2 operands, got %d", addr, len(args))
			}
			inst.Rs1 = Register(strings.TrimSpace(args[1]))
		} else if len(args) > 0 {
			if target, ok := parseHexTarget(args[len(args)-1]); ok {
				inst.Imm, inst.HasImm = target, true
			}
		}
		inst.IsJump = true

	case csrROpcodes[opcode]: // csrr rd, csr
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: csrr: expected 2 operands, got %d", addr, len(args))
		}
		inst.Rd = Register(strings.TrimSpace(args[0]))
		imm, ok := parseImmediate(args[1])
		if !ok {
			return nil, fmt.Errorf("riscv: 0x%x: csrr: bad CSR number %q", addr, args[1])
		}
		inst.Imm, inst.HasImm = imm, true

	case csrWOpcodes[opcode]: // csrw csr, rs1
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: csrw: expected 2 operands, got %d", addr, len(args))
		}
		inst.Rs1 = Register(strings.TrimSpace(args[1]))
		imm, ok := parseImmediate(args[0])
		if !ok {
			return nil, fmt.Errorf("riscv: 0x%x: csrw: bad CSR number %q", addr, args[0])
		}
		inst.Imm, inst.HasImm = imm, true

	case csrRSCOpcodes[opcode]: // csrrs/csrrc rd, csr -- CSR number lands in both Rs1 and Imm
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 2 operands, got %d", addr, opcode, len(args))
		}
		inst.Rd = Register(strings.TrimSpace(args[0]))
		csrOperand := strings.TrimSpace(args[1])
		inst.Rs1 = Register(csrOperand)
		imm, ok := parseImmediate(csrOperand)
		if !ok {
			return nil, fmt.Errorf("riscv: 0x%x: %s: bad CSR number %q", addr, opcode, args[1])
		}
		inst.Imm, inst.HasImm = imm, true

	case immDefOpcodes[opcode]: // li/lui/auipc rd, imm
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 2 operands, got %d", addr, opcode, len(args))
		}
		inst.Rd = Register(strings.TrimSpace(args[0]))
		imm, ok := parseImmediate(args[1])
		if !ok {
			return nil, fmt.Errorf("riscv: 0x%x: %s: bad immediate %q", addr, opcode, args[1])
		}
		inst.Imm, inst.HasImm = imm, true

	case immArithOpcodes[opcode]: // addi rd, rs1, imm
		if len(args) < 3 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 3 operands, got %d", addr, opcode, len(args))
		}
		inst.Rd = Register(strings.TrimSpace(args[0]))
		inst.Rs1 = Register(strings.TrimSpace(args[1]))
		imm, ok := parseImmediate(args[2])
		if !ok {
			return nil, fmt.Errorf("riscv: 0x%x: %s: bad immediate %q", addr, opcode, args[2])
		}
		inst.Imm, inst.HasImm = imm, true

	case regArithOpcodes[opcode]: // add rd, rs1, rs2|imm (assembler-folded immediate form)
		if len(args) < 3 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 3 operands, got %d", addr, opcode, len(args))
		}
		inst.Rd = Register(strings.TrimSpace(args[0]))
		inst.Rs1 = Register(strings.TrimSpace(args[1]))
		third := args[2]
		if IsRegister(third) {
			inst.Rs2 = Register(strings.TrimRight(strings.TrimSpace(third), ","))
		} else {
			imm, ok := parseImmediate(third)
			if !ok {
				return nil, fmt.Errorf("riscv: 0x%x: %s: bad third operand %q", addr, opcode, third)
			}
			inst.Imm, inst.HasImm = imm, true
		}

	case moveOpcodes[opcode]: // mv/fmv/sext rd, rs1 -- normalized to rd := rs1, imm = 0
		if len(args) < 2 {
			return nil, fmt.Errorf("riscv: 0x%x: %s: expected 2 operands, got %d", addr, opcode, len(args))
		}
		inst.Rd = Register(strings.TrimSpace(args[0]))
		inst.Rs1 = Register(strings.TrimSpace(args[1]))
		inst.Imm, inst.HasImm = 0, true

	case opcode == "ret":
		inst.Rd = "zero"

	default:
		return nil, fmt.Errorf("riscv: 0x%x: %w: %q", addr, ErrUnknownOpcode, opcode)
	}

	return inst, nil
}

// ParseListing decodes every line read from r into an ordered sequence
// of instructions, in textual order. Lines that do not match the outer
// header shape are skipped; the first hard parse error (a malformed
// header or an unrecognised mnemonic) aborts the whole listing.
func ParseListing(r io.Reader) ([]*Instruction, error) {
	var insts []*Instruction

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		inst, err := ParseLine(scanner.Text())
		if err != nil {
			return nil, err
		}
		if inst != nil {
			insts = append(insts, inst)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("riscv: reading listing: %w", err)
	}

	return insts, nil
}

func splitArgs(operands string) []string {
	operands = strings.TrimSpace(operands)
	if operands == "" {
		return nil
	}
	return strings.Split(operands, ",")
}

func parseHexAddress(s string) (uint64, error) {
	var v uint64
	_, err := fmt.Sscanf(s, "%x", &v)
	return v, err
}

// parseOffsetBase parses a load/store address operand of the form
// "imm(base)".
func parseOffsetBase(operand string) (imm int64, base Register, err error) {
	operand = strings.TrimSpace(operand)
	open := strings.IndexByte(operand, '(')
	if open < 0 || !strings.HasSuffix(operand, ")") {
		return 0, "", fmt.Errorf("malformed address operand %q", operand)
	}

	immPart := operand[:open]
	basePart := operand[open+1 : len(operand)-1]

	if immPart == "" {
		imm = 0
	} else {
		v, ok := parseImmediate(immPart)
		if !ok {
			return 0, "", fmt.Errorf("bad offset %q", immPart)
		}
		imm = v
	}

	return imm, Register(strings.TrimSpace(basePart)), nil
}

// parseHexTarget recovers the literal branch/jump target address as the
// first hex-looking substring of the operand, matching the disassembler's
// convention of rendering a target as "<hex> <symbol>".
func parseHexTarget(operand string) (int64, bool) {
	m := hexSubstring.FindString(operand)
	if m == "" {
		return 0, false
	}

	var parsed uint64
	if _, err := fmt.Sscanf(m, "%x", &parsed); err != nil {
		return 0, false
	}

	return int64(parsed), true
}
