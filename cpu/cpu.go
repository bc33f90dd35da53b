package cpu

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/ezrec/intcode/channel"
)

// Input is the port a processor reads values from.
// Receive returns channel.ErrClosed once no more values will arrive.
type Input interface {
	Receive(ctx context.Context) (value int64, err error)
}

// Output is the port a processor writes values to.
type Output interface {
	Send(ctx context.Context, value int64) error
	Close()
}

// Control is the port a processor announces its transfers on.
type Control interface {
	Send(ctx context.Context, token channel.Token) error
	Close()
}

// State is the execution state of a processor.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
	STATE_STOPPED = State(2) // stopped
	STATE_FAULTED = State(3) // faulted
)

// Terminal returns true if the state can no longer change.
func (state State) Terminal() bool {
	return state != STATE_RUNNING
}

// Cpu is an Intcode processor.
type Cpu struct {
	Verbose bool // Set to enable per-instruction trace logging.

	Memory       *Memory // Exclusively owned memory store.
	Ip           int64   // Instruction pointer.
	RelativeBase int64   // Base of relative mode addresses.
	State        State   // Execution state.

	Input   Input   // Source of input values; nil behaves as closed.
	Output  Output  // Destination of output values.
	Control Control // Optional destination of control tokens.

	ticks atomic.Int64
}

// NewCpu creates a processor with a fresh memory loaded from the program,
// with the patches applied.
func NewCpu(prog Program, patches ...Patch) (cpu *Cpu, err error) {
	mem, err := prog.Memory(patches...)
	if err != nil {
		return
	}

	cpu = &Cpu{
		Memory: mem,
	}

	return
}

// Ticks returns the number of instructions executed.
// Safe to call while the processor is running.
func (cpu *Cpu) Ticks() int64 {
	return cpu.ticks.Load()
}

// String returns the current processor state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 6s: %v\n", "state", cpu.State)
	text += fmt.Sprintf("% 6s: %d\n", "ip", cpu.Ip)
	text += fmt.Sprintf("% 6s: %d\n", "rb", cpu.RelativeBase)
	text += fmt.Sprintf("% 6s: %d\n", "extent", cpu.Memory.Extent())
	text += fmt.Sprintf("% 6s: %d\n", "ticks", cpu.Ticks())
	return
}

// Close releases the ports the processor owns, so that downstream
// consumers observe the end of its output.
func (cpu *Cpu) Close() {
	if cpu.Output != nil {
		cpu.Output.Close()
	}
	if cpu.Control != nil {
		cpu.Control.Close()
	}
}

// Run steps the processor until it reaches a terminal state, then closes
// its ports. A processor stopped by a closed input is not an error.
func (cpu *Cpu) Run(ctx context.Context) (state State, err error) {
	defer cpu.Close()

	for cpu.State == STATE_RUNNING {
		err = cpu.Step(ctx)
		if err != nil {
			break
		}
	}

	state = cpu.State
	if cpu.Verbose {
		log.Print(f("cpu: %v at ip %d after %d ticks", state, cpu.Ip, cpu.Ticks()))
	}

	return
}

// Step executes a single instruction.
func (cpu *Cpu) Step(ctx context.Context) (err error) {
	if cpu.State != STATE_RUNNING {
		err = ErrNotRunning
		return
	}

	var word int64
	defer func() {
		if err != nil {
			cpu.State = STATE_FAULTED
			err = &ErrExecution{Ip: cpu.Ip, Word: word, Err: err}
		}
	}()

	if ctx.Err() != nil {
		err = context.Cause(ctx)
		return
	}

	if cpu.Ip < 0 {
		err = ErrInvalidAddress
		return
	}
	if cpu.Ip >= cpu.Memory.Extent() {
		err = ErrUnexpectedHalt
		return
	}

	word, err = cpu.Memory.Read(cpu.Ip)
	if err != nil {
		return
	}

	ins, err := Decode(word)
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("%04d: %v", cpu.Ip, ins)
	}

	next_ip := cpu.Ip + ins.Width()

	switch ins.Opcode {
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		var a, b int64
		a, err = cpu.load(ins, 0)
		if err != nil {
			return
		}
		b, err = cpu.load(ins, 1)
		if err != nil {
			return
		}
		var result int64
		switch ins.Opcode {
		case OP_ADD:
			result = a + b
		case OP_MUL:
			result = a * b
		case OP_LT:
			if a < b {
				result = 1
			}
		case OP_EQ:
			if a == b {
				result = 1
			}
		}
		err = cpu.store(ins, 2, result)
		if err != nil {
			return
		}
	case OP_IN:
		var value int64
		var ok bool
		value, ok, err = cpu.receive(ctx)
		if err != nil {
			return
		}
		if !ok {
			// Input closed: stop in place, without executing the instruction.
			cpu.State = STATE_STOPPED
			return
		}
		err = cpu.store(ins, 0, value)
		if err != nil {
			return
		}
	case OP_OUT:
		var value int64
		value, err = cpu.load(ins, 0)
		if err != nil {
			return
		}
		err = cpu.send(ctx, value)
		if err != nil {
			return
		}
	case OP_JT, OP_JF:
		var cond, target int64
		cond, err = cpu.load(ins, 0)
		if err != nil {
			return
		}
		target, err = cpu.load(ins, 1)
		if err != nil {
			return
		}
		if (cond != 0) == (ins.Opcode == OP_JT) {
			next_ip = target
		}
	case OP_ARB:
		var delta int64
		delta, err = cpu.load(ins, 0)
		if err != nil {
			return
		}
		cpu.RelativeBase += delta
	case OP_HALT:
		cpu.State = STATE_HALTED
		next_ip = cpu.Ip
	}

	cpu.Ip = next_ip
	cpu.ticks.Add(1)

	return
}

// address resolves the effective address of parameter n.
func (cpu *Cpu) address(ins Instruction, n int) (addr int64, err error) {
	operand := cpu.Ip + 1 + int64(n)

	switch ins.Modes[n] {
	case MODE_IMMEDIATE:
		addr = operand
	case MODE_POSITION:
		addr, err = cpu.Memory.Read(operand)
	case MODE_RELATIVE:
		addr, err = cpu.Memory.Read(operand)
		addr += cpu.RelativeBase
	default:
		err = ErrModeInvalid
	}
	if err == nil && addr < 0 {
		err = ErrInvalidAddress
	}

	return
}

// load returns the value of parameter n.
func (cpu *Cpu) load(ins Instruction, n int) (value int64, err error) {
	addr, err := cpu.address(ins, n)
	if err != nil {
		return
	}

	value, err = cpu.Memory.Read(addr)
	return
}

// store writes the value to parameter n.
func (cpu *Cpu) store(ins Instruction, n int, value int64) (err error) {
	if ins.Modes[n] == MODE_IMMEDIATE {
		err = ErrImmediateWrite
		return
	}

	addr, err := cpu.address(ins, n)
	if err != nil {
		return
	}

	err = cpu.Memory.Write(addr, value)
	return
}

// receive announces a read request and waits for an input value.
// ok is false if the input is closed.
func (cpu *Cpu) receive(ctx context.Context) (value int64, ok bool, err error) {
	if cpu.Control != nil {
		err = cpu.Control.Send(ctx, channel.TOKEN_READ_REQUEST)
		if errors.Is(err, channel.ErrClosed) {
			err = errors.Join(ErrConduitClosed, err)
		}
		if err != nil {
			return
		}
	}

	if cpu.Input == nil {
		return
	}

	value, err = cpu.Input.Receive(ctx)
	if errors.Is(err, channel.ErrClosed) {
		err = nil
		return
	}
	if err != nil {
		return
	}

	ok = true
	return
}

// send announces a write event and emits an output value.
func (cpu *Cpu) send(ctx context.Context, value int64) (err error) {
	if cpu.Control != nil {
		err = cpu.Control.Send(ctx, channel.TOKEN_WRITE_EVENT)
		if errors.Is(err, channel.ErrClosed) {
			err = errors.Join(ErrConduitClosed, err)
		}
		if err != nil {
			return
		}
	}

	if cpu.Output == nil {
		err = ErrConduitClosed
		return
	}

	err = cpu.Output.Send(ctx, value)
	if errors.Is(err, channel.ErrClosed) {
		err = errors.Join(ErrConduitClosed, err)
	}

	return
}
