package config

import (
	"errors"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Configuration errors
	ErrPatchSyntax     = errors.Join(cpu.ErrConfig, errors.New(f("patch syntax, expected ADDR=EXPR")))
	ErrTopologyKind    = errors.Join(cpu.ErrConfig, errors.New(f("topology kind unknown")))
	ErrTopologyProgram = errors.Join(cpu.ErrConfig, errors.New(f("topology needs exactly one of program or text")))
	ErrTopologyPhases  = errors.Join(cpu.ErrConfig, errors.New(f("pipeline needs at least one phase")))
	ErrSearchRange     = errors.Join(cpu.ErrConfig, errors.New(f("search range invalid")))
)

// ErrExpression is a patch expression that does not evaluate to an integer.
type ErrExpression string

func (err ErrExpression) Error() string {
	return f("'%v' is not a valid integer expression", string(err))
}

func (err ErrExpression) Is(target error) bool {
	return target == cpu.ErrConfig
}
