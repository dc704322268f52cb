// Copyright 2024 The RVTaint Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Command riscv-spectre-scan scans a RISC-V disassembly listing for
// speculative-execution register leaks within a marked code snippet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rsc.io/diff"

	"rvtaint.dev/cfg"
	"rvtaint.dev/riscv"
	"rvtaint.dev/snippet"
	"rvtaint.dev/taint"
)

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
	log.SetPrefix("")
}

var program = filepath.Base(os.Args[0])

func main() {
	err := Main(context.Background(), os.Stdout, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

// Main scans the disassembly listing named by args for speculative
// leaks and writes a report to w. It uses a flag set, a usage function
// that exits with status 2, and a plain error return for anything
// that goes wrong after flags are parsed.
func Main(ctx context.Context, w io.Writer, args []string) error {
	flags := flag.NewFlagSet(program, flag.ExitOnError)

	var help bool
	var verbose bool
	var trace bool
	var csrHex string
	var diffOld, diffNew string
	flags.BoolVar(&help, "h", false, "Show this message and exit.")
	flags.BoolVar(&verbose, "v", false, "Echo every parsed instruction before analysis.")
	flags.BoolVar(&trace, "trace", false, "Log each worklist step of the backward taint search to stderr.")
	flags.StringVar(&csrHex, "csr", fmt.Sprintf("0x%x", snippet.DefaultCSR), "CSR number that delimits the snippet, e.g. 0x802.")
	flags.StringVar(&diffOld, "diff", "", "Compare two previously generated reports instead of scanning (old file).")
	flags.StringVar(&diffNew, "diff-new", "", "The new report file, used together with -diff.")

	flags.Usage = func() {
		log.Printf("Usage:\n  %s [OPTIONS] FILE\n\n", program)
		flags.PrintDefaults()
		os.Exit(2)
	}

	err := flags.Parse(args)
	if err != nil || help {
		flags.Usage()
	}

	if diffOld != "" {
		return runDiff(w, diffOld, diffNew)
	}

	filenames := flags.Args()
	filename := "memcpy_shm.asm"
	switch len(filenames) {
	case 0:
		// Use the default listing name.
	case 1:
		filename = filenames[0]
	default:
		flags.Usage()
	}

	csrNumber, err := strconv.ParseUint(strings.TrimPrefix(csrHex, "0x"), 16, 64)
	if err != nil {
		return fmt.Errorf("invalid -csr value %q: %w", csrHex, err)
	}

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	insts, err := riscv.ParseListing(f)
	if err != nil {
		return err
	}

	if verbose {
		for _, inst := range insts {
			log.Printf("parsed: %s", inst)
		}
	}

	fmt.Fprintf(w, "scanning %s (%d instructions)\n", filename, len(insts))

	bounds, err := snippet.Locate(insts, csrNumber)
	if err != nil {
		if errors.Is(err, snippet.ErrMarkersNotFound) {
			fmt.Fprintf(w, "no snippet markers found for CSR 0x%x; nothing to analyze\n", csrNumber)
			return nil
		}
		return err
	}

	fmt.Fprintf(w, "snippet: [0x%x, 0x%x]\n", bounds.Start.Address, bounds.End.Address)

	if err := snippet.CheckSelfContained(insts, bounds); err != nil {
		var notContained *snippet.ErrNotSelfContained
		if errors.As(err, &notContained) {
			fmt.Fprintf(w, "snippet is not self-contained: %v\n", err)
			return nil
		}
		return err
	}
	fmt.Fprintln(w, "snippet is self-contained")

	g := cfg.Build(insts)
	transmitters := taint.FindTransmitters(g, bounds)
	fmt.Fprintf(w, "found %d transmitter(s)\n", len(transmitters))
	for _, t := range transmitters {
		fmt.Fprintf(w, "  %s leaks %s\n", t.Inst, t.Leaked)
	}

	var traceFn taint.TraceFunc
	if trace {
		traceFn = func(inst *riscv.Instruction, depReg riscv.RegisterSet) {
			log.Printf("trace: 0x%x %s dep_reg=%s", inst.Address, inst.Opcode, depReg)
		}
	}

	result, err := taint.RunWithTrace(g, transmitters, traceFn)
	if err != nil {
		var gadget *taint.GadgetError
		if errors.As(err, &gadget) {
			fmt.Fprintf(w, "FATAL: %v\n", gadget)
			return gadget
		}
		return err
	}

	writeFindings(w, result)

	return nil
}

func writeFindings(w io.Writer, result taint.Result) {
	fmt.Fprintf(w, "%d finding(s)\n", len(result.Findings))
	for i, f := range result.Findings {
		fmt.Fprintf(w, "  [%d] %s leaks %s\n", i, f.Transmitter, f.DepReg)
		for _, inst := range f.Path {
			fmt.Fprintf(w, "        %s\n", inst)
		}
	}

	if len(result.ExposedRegisters) == 0 {
		fmt.Fprintln(w, "no initial registers are exposed")
		return
	}

	names := make([]string, len(result.ExposedRegisters))
	for i, r := range result.ExposedRegisters {
		names[i] = string(r)
	}
	fmt.Fprintf(w, "exposed registers: %s\n", strings.Join(names, ", "))
}

// runDiff compares two previously generated reports, rather than
// scanning a listing. It exists so a change in analysis output between
// two disassembler revisions can be reviewed as an ordinary text diff.
func runDiff(w io.Writer, oldFile, newFile string) error {
	if newFile == "" {
		return fmt.Errorf("-diff requires -diff-new to name the report to compare against")
	}

	oldText, err := os.ReadFile(oldFile)
	if err != nil {
		return err
	}
	newText, err := os.ReadFile(newFile)
	if err != nil {
		return err
	}

	fmt.Fprint(w, diff.Format(string(oldText), string(newText)))
	return nil
}
