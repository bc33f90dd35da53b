package cpu

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Execution errors
	ErrUnknownOpcode  = errors.New(f("unknown opcode"))
	ErrInvalidAddress = errors.New(f("invalid address"))
	ErrUnexpectedHalt = errors.New(f("unexpected halt"))
	ErrImmediateWrite = errors.New(f("immediate mode write"))
	ErrConduitClosed  = errors.New(f("conduit closed"))
	ErrNotRunning     = errors.New(f("not running"))

	// Instruction decode errors
	ErrModeInvalid = errors.New(f("mode invalid"))

	// Program errors
	ErrConfig       = errors.New(f("config"))
	ErrProgramEmpty = errors.New(f("program empty"))
)

// ErrParseNumber is a program text token that is not a base-10 integer.
type ErrParseNumber struct {
	Index int    // Position of the token in the program.
	Token string // Offending text.
}

func (err ErrParseNumber) Error() string {
	return f("token %d '%v' is not a number", err.Index, err.Token)
}

func (err ErrParseNumber) Is(target error) bool {
	return target == ErrConfig
}

// ErrExecution is a fatal fault of a processor.
type ErrExecution struct {
	Ip   int64 // Instruction pointer of the faulting instruction.
	Word int64 // Instruction word at Ip, if it could be fetched.
	Err  error
}

func (err *ErrExecution) Error() string {
	return f("ip %d word %d: %v", err.Ip, err.Word, err.Err)
}

func (err *ErrExecution) Unwrap() error {
	return err.Err
}
