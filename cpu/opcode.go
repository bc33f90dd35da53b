package cpu

import (
	"errors"
	"fmt"
	"strings"
)

// Opcode is an Intcode operation.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_ADD  = Opcode(1)  // add
	OP_MUL  = Opcode(2)  // mul
	OP_IN   = Opcode(3)  // in
	OP_OUT  = Opcode(4)  // out
	OP_JT   = Opcode(5)  // jt
	OP_JF   = Opcode(6)  // jf
	OP_LT   = Opcode(7)  // lt
	OP_EQ   = Opcode(8)  // eq
	OP_ARB  = Opcode(9)  // arb
	OP_HALT = Opcode(99) // halt
)

// Mode is a parameter addressing mode.
type Mode int

//go:generate go tool stringer -linecomment -type=Mode
const (
	MODE_POSITION  = Mode(0) // position
	MODE_IMMEDIATE = Mode(1) // immediate
	MODE_RELATIVE  = Mode(2) // relative
)

// MODE_MAX is the number of parameter mode digits in an instruction word.
const MODE_MAX = 3

var _opcode_params = map[Opcode]int{
	OP_ADD:  3,
	OP_MUL:  3,
	OP_IN:   1,
	OP_OUT:  1,
	OP_JT:   2,
	OP_JF:   2,
	OP_LT:   3,
	OP_EQ:   3,
	OP_ARB:  1,
	OP_HALT: 0,
}

// Valid returns true if the opcode is a defined instruction.
func (op Opcode) Valid() (ok bool) {
	_, ok = _opcode_params[op]
	return
}

// Params returns the number of parameters taken by the opcode.
func (op Opcode) Params() int {
	return _opcode_params[op]
}

// Writes returns the index of the parameter the opcode writes to,
// or -1 if it writes to none.
func (op Opcode) Writes() int {
	switch op {
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		return 2
	case OP_IN:
		return 0
	}
	return -1
}

// Instruction is a decoded instruction word.
type Instruction struct {
	Word   int64
	Opcode Opcode
	Modes  [MODE_MAX]Mode
}

// Width returns the number of words occupied by the instruction.
func (ins Instruction) Width() int64 {
	return int64(1 + ins.Opcode.Params())
}

// String returns the opcode and the modes of its parameters, ie 'add.position.immediate.relative'.
func (ins Instruction) String() string {
	parts := []string{ins.Opcode.String()}
	for n := range ins.Opcode.Params() {
		parts = append(parts, ins.Modes[n].String())
	}
	return strings.Join(parts, ".")
}

// Decode splits an instruction word into its opcode and parameter modes.
// The two least significant decimal digits select the opcode, each
// following digit selects the mode of the next parameter. Parameters the
// opcode does not take must be in position mode.
func Decode(word int64) (ins Instruction, err error) {
	ins.Word = word

	if word < 0 {
		err = ErrUnknownOpcode
		return
	}

	ins.Opcode = Opcode(word % 100)
	if !ins.Opcode.Valid() {
		err = ErrUnknownOpcode
		return
	}

	digits := word / 100
	for n := range ins.Modes {
		mode := Mode(digits % 10)
		digits /= 10
		if mode > MODE_RELATIVE || (n >= ins.Opcode.Params() && mode != MODE_POSITION) {
			err = errors.Join(ErrUnknownOpcode, fmt.Errorf("%w: parameter %d", ErrModeInvalid, n+1))
			return
		}
		ins.Modes[n] = mode
	}

	if digits != 0 {
		err = errors.Join(ErrUnknownOpcode, ErrModeInvalid)
		return
	}

	if w := ins.Opcode.Writes(); w >= 0 && ins.Modes[w] == MODE_IMMEDIATE {
		err = ErrImmediateWrite
		return
	}

	return
}
