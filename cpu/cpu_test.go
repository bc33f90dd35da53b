package cpu

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/intcode/channel"
)

// doRun runs a program to completion with a closed, prefilled input.
func doRun(t *testing.T, text string, inputs ...int64) (cpu *Cpu, outputs []int64, err error) {
	ctx := context.Background()

	prog, perr := ParseProgram(strings.NewReader(text))
	require.NoError(t, perr)

	cpu, perr = NewCpu(prog)
	require.NoError(t, perr)

	in := channel.New[int64](0)
	require.NoError(t, channel.Feed(ctx, in, inputs...))
	in.Close()

	out := channel.New[int64](0)
	cpu.Input = in
	cpu.Output = out

	_, err = cpu.Run(ctx)

	outputs, cerr := channel.Collect(ctx, out)
	require.NoError(t, cerr)

	return
}

func TestCpu_Scenarios(t *testing.T) {
	table := [](struct {
		name    string
		program string
		inputs  []int64
		outputs []int64
		memory  map[int64]int64
	}){
		{name: "add_mul", program: "1,9,10,3,2,3,11,0,99,30,40,50",
			memory: map[int64]int64{0: 3500, 3: 70}},
		{name: "add", program: "1,0,0,0,99",
			memory: map[int64]int64{0: 2}},
		{name: "mul", program: "2,3,0,3,99",
			memory: map[int64]int64{3: 6}},
		{name: "mul_far", program: "2,4,4,5,99,0",
			memory: map[int64]int64{5: 9801}},
		{name: "loop", program: "1,1,1,4,99,5,6,0,99",
			memory: map[int64]int64{0: 30, 4: 2}},
		{name: "echo", program: "3,0,4,0,99", inputs: []int64{7}, outputs: []int64{7}},
		{name: "negative", program: "1101,100,-1,4,0",
			memory: map[int64]int64{4: 99}},
		{name: "eq8_pos", program: "3,9,8,9,10,9,4,9,99,-1,8", inputs: []int64{8}, outputs: []int64{1}},
		{name: "eq8_pos_no", program: "3,9,8,9,10,9,4,9,99,-1,8", inputs: []int64{5}, outputs: []int64{0}},
		{name: "lt8_imm", program: "3,3,1107,-1,8,3,4,3,99", inputs: []int64{5}, outputs: []int64{1}},
		{name: "lt8_imm_no", program: "3,3,1107,-1,8,3,4,3,99", inputs: []int64{9}, outputs: []int64{0}},
		{name: "jump_pos", program: "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", inputs: []int64{0}, outputs: []int64{0}},
		{name: "jump_imm", program: "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", inputs: []int64{3}, outputs: []int64{1}},
		{name: "big", program: "104,1125899906842624,99", outputs: []int64{1125899906842624}},
		{name: "square", program: "1102,34915192,34915192,7,4,7,99,0", outputs: []int64{1219070632396864}},
		{name: "quine", program: "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99",
			outputs: []int64{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}},
	}

	compare := "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20,31,1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104,999,1105,1,46,1101,1000,1,20,4,20,1105,1,46,98,99"
	for input, output := range map[int64]int64{7: 999, 8: 1000, 9: 1001} {
		table = append(table, struct {
			name    string
			program string
			inputs  []int64
			outputs []int64
			memory  map[int64]int64
		}{name: "compare", program: compare, inputs: []int64{input}, outputs: []int64{output}})
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			cpu, outputs, err := doRun(t, entry.program, entry.inputs...)
			assert.NoError(err)
			assert.Equal(STATE_HALTED, cpu.State)
			assert.Equal(entry.outputs, outputs)
			for addr, value := range entry.memory {
				got, err := cpu.Memory.Read(addr)
				assert.NoError(err)
				assert.Equal(value, got, "address %d", addr)
			}
		})
	}
}

func TestCpu_MemoryImage(t *testing.T) {
	assert := assert.New(t)

	cpu, _, err := doRun(t, "1,0,0,0,99")
	assert.NoError(err)
	assert.Equal([]int64{2, 0, 0, 0, 99}, cpu.Memory.Dump())
	assert.Equal(int64(4), cpu.Ip)
	assert.Equal(int64(2), cpu.Ticks())
}

func TestCpu_SparseImage(t *testing.T) {
	assert := assert.New(t)

	cpu, _, err := doRun(t, "21101,1,1,1099511627776,99")
	assert.NoError(err)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(int64(1<<40+1), cpu.Memory.Extent())

	words := cpu.Memory.Dump()
	assert.Equal([]int64{21101, 1, 1, 1 << 40, 99}, words)
	for addr, value := range cpu.Memory.Cells(int64(len(words))) {
		assert.Equal(int64(1<<40), addr)
		assert.Equal(int64(2), value)
	}
}

func TestCpu_Deterministic(t *testing.T) {
	assert := assert.New(t)

	program := "3,20,3,21,1,20,21,22,4,22,2,20,21,22,4,22,99"
	_, first, err := doRun(t, program, 8, 21)
	assert.NoError(err)
	_, second, err := doRun(t, program, 8, 21)
	assert.NoError(err)
	assert.Equal([]int64{29, 168}, first)
	assert.Equal(first, second)
}

func TestCpu_RelativeBase(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cpu, err := NewCpu(Program{109, 19, 204, -34, 99}, Patch{Address: 1985, Value: 42})
	assert.NoError(err)
	assert.Equal(int64(0), cpu.RelativeBase)
	cpu.RelativeBase = 2000

	out := channel.New[int64](0)
	cpu.Output = out

	state, err := cpu.Run(ctx)
	assert.NoError(err)
	assert.Equal(STATE_HALTED, state)
	assert.Equal(int64(2019), cpu.RelativeBase)

	outputs, err := channel.Collect(ctx, out)
	assert.NoError(err)
	assert.Equal([]int64{42}, outputs)
}

func TestCpu_RelativeWrite(t *testing.T) {
	assert := assert.New(t)

	// arb 10; in rel(5); out pos(15); halt
	cpu, outputs, err := doRun(t, "109,10,203,5,4,15,99", -3)
	assert.NoError(err)
	assert.Equal([]int64{-3}, outputs)
	assert.Equal(int64(16), cpu.Memory.Extent())
	assert.Equal(int64(10), cpu.RelativeBase)
}

func TestCpu_InputClosed(t *testing.T) {
	assert := assert.New(t)

	cpu, outputs, err := doRun(t, "3,8,4,8,1105,1,0,99,0", 1, 2)
	assert.NoError(err)
	assert.Equal(STATE_STOPPED, cpu.State)
	assert.Equal([]int64{1, 2}, outputs)
	assert.Equal(int64(0), cpu.Ip)
}

func TestCpu_NilInput(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(Program{3, 0, 99})
	assert.NoError(err)

	state, err := cpu.Run(context.Background())
	assert.NoError(err)
	assert.Equal(STATE_STOPPED, state)
}

func TestCpu_Faults(t *testing.T) {
	table := [](struct {
		name    string
		program string
		err     error
		ip      int64
	}){
		{"unknown_opcode", "1,0,0,0,42", ErrUnknownOpcode, 4},
		{"negative_word", "-1", ErrUnknownOpcode, 0},
		{"bad_mode", "301,0,0,0,99", ErrUnknownOpcode, 0},
		{"unexpected_halt", "1,0,0,0", ErrUnexpectedHalt, 4},
		{"negative_read", "1,-1,0,0,99", ErrInvalidAddress, 0},
		{"negative_write", "1,0,0,-5,99", ErrInvalidAddress, 0},
		{"negative_relative", "204,-1,99", ErrInvalidAddress, 0},
		{"negative_jump", "1105,1,-7", ErrInvalidAddress, -7},
		{"immediate_write", "11101,1,1,0,99", ErrImmediateWrite, 0},
		{"no_output", "104,1,99", ErrConduitClosed, 0},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			prog, err := ParseProgram(strings.NewReader(entry.program))
			assert.NoError(err)
			cpu, err := NewCpu(prog)
			assert.NoError(err)

			state, err := cpu.Run(context.Background())
			assert.ErrorIs(err, entry.err)
			assert.Equal(STATE_FAULTED, state)

			var exec *ErrExecution
			if assert.True(errors.As(err, &exec)) {
				assert.Equal(entry.ip, exec.Ip)
			}

			err = cpu.Step(context.Background())
			assert.Equal(ErrNotRunning, err)
		})
	}
}

func TestCpu_OutputClosed(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(Program{104, 1, 99})
	assert.NoError(err)

	out := channel.New[int64](0)
	out.Close()
	cpu.Output = out

	_, err = cpu.Run(context.Background())
	assert.ErrorIs(err, ErrConduitClosed)
	assert.ErrorIs(err, channel.ErrClosed)
}

func TestCpu_ClosesOutputOnHalt(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cpu, err := NewCpu(Program{104, 5, 99})
	assert.NoError(err)
	out := channel.New[int64](0)
	control := channel.New[channel.Token](0)
	cpu.Output = out
	cpu.Control = control

	_, err = cpu.Run(ctx)
	assert.NoError(err)
	assert.True(out.Closed())
	assert.True(control.Closed())

	tokens, err := channel.Collect(ctx, control)
	assert.NoError(err)
	assert.Equal([]channel.Token{channel.TOKEN_WRITE_EVENT}, tokens)
}

func TestCpu_ControlTokens(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cpu, err := NewCpu(Program{3, 0, 4, 0, 3, 0, 99})
	assert.NoError(err)

	in := channel.New[int64](0)
	assert.NoError(channel.Feed(ctx, in, 1, 2))
	out := channel.New[int64](0)
	control := channel.New[channel.Token](0)
	cpu.Input = in
	cpu.Output = out
	cpu.Control = control

	_, err = cpu.Run(ctx)
	assert.NoError(err)

	tokens, err := channel.Collect(ctx, control)
	assert.NoError(err)
	assert.Equal([]channel.Token{
		channel.TOKEN_READ_REQUEST,
		channel.TOKEN_WRITE_EVENT,
		channel.TOKEN_READ_REQUEST,
	}, tokens)
}

func TestCpu_Cancel(t *testing.T) {
	assert := assert.New(t)

	errCause := errors.New("deadlock")
	ctx, cancel := context.WithCancelCause(context.Background())

	cpu, err := NewCpu(Program{3, 0, 99})
	assert.NoError(err)
	cpu.Input = channel.New[int64](0)
	out := channel.New[int64](0)
	cpu.Output = out

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel(errCause)
	}()

	state, err := cpu.Run(ctx)
	assert.ErrorIs(err, errCause)
	assert.Equal(STATE_FAULTED, state)
	assert.True(out.Closed())
}

func TestCpu_String(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(Program{99})
	assert.NoError(err)
	text := cpu.String()
	assert.Contains(text, "running")
	assert.Contains(text, "extent: 1")
}
