// Package config loads topology descriptions and program patches.
//
// Patches are written as ADDR=EXPR, where both sides are integer
// expressions evaluated with Starlark against a set of equates, for
// example "0=2" or "1=NOUN" or "PROGRAM_LENGTH-1=99".
package config

import (
	"maps"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/intcode/cpu"
)

// Equates are the named integers visible to expressions.
type Equates map[string]int64

// ProgramEquates returns the predefined equates for a program.
func ProgramEquates(prog cpu.Program) Equates {
	return Equates{
		"PROGRAM_LENGTH": int64(len(prog)),
	}
}

// With returns a copy of the equates, extended by more.
func (equ Equates) With(more Equates) (out Equates) {
	out = maps.Clone(equ)
	if out == nil {
		out = Equates{}
	}
	maps.Copy(out, more)
	return
}

// Evaluate computes an integer expression.
func Evaluate(expr string, equ Equates) (value int64, err error) {
	thread := starlark.Thread{Name: "expr"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, val := range equ {
		pred[key] = starlark.MakeInt64(val)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrExpression(expr)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrExpression(expr)
		return
	}

	return
}

// ParsePatch parses an ADDR=EXPR patch.
func ParsePatch(text string, equ Equates) (patch cpu.Patch, err error) {
	addr, expr, ok := strings.Cut(text, "=")
	addr = strings.TrimSpace(addr)
	expr = strings.TrimSpace(expr)
	if !ok || len(addr) == 0 || len(expr) == 0 {
		err = ErrPatchSyntax
		return
	}

	patch.Address, err = Evaluate(addr, equ)
	if err != nil {
		return
	}
	if patch.Address < 0 {
		err = cpu.ErrInvalidAddress
		return
	}

	patch.Value, err = Evaluate(expr, equ)
	return
}

// ParsePatches parses a list of ADDR=EXPR patches.
func ParsePatches(texts []string, equ Equates) (patches []cpu.Patch, err error) {
	for _, text := range texts {
		var patch cpu.Patch
		patch, err = ParsePatch(text, equ)
		if err != nil {
			patches = nil
			return
		}
		patches = append(patches, patch)
	}

	return
}
