// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package topology wires Intcode processors together and runs them.
//
// Every processor runs on its own goroutine and talks to its neighbours
// only through channel conduits. The supported shapes are a single
// processor, a pipeline (optionally closed into a feedback ring) and a
// duplex pair between a processor and a Go Peer that is told, by control
// token, whether the processor is about to read or write.
//
// The first fatal error of any processor is returned. The Result is
// returned alongside it, so the output of processors that already
// finished is kept.
package topology

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/intcode/channel"
	"github.com/ezrec/intcode/cpu"
)

// Result of running a topology.
type Result struct {
	Signal  int64         // Last value produced by the terminal instance.
	Outputs [][]int64     // Values produced by each instance, in order.
	States  []cpu.State   // Final state of each instance.
	Memory  []*cpu.Memory // Final memory of each instance.
}

// recorder keeps a copy of every value a processor sends.
type recorder struct {
	cpu.Output

	mu     sync.Mutex
	values []int64
}

func (rec *recorder) Send(ctx context.Context, value int64) (err error) {
	err = rec.Output.Send(ctx, value)
	if err != nil {
		return
	}

	rec.mu.Lock()
	rec.values = append(rec.values, value)
	rec.mu.Unlock()

	return
}

func (rec *recorder) Values() []int64 {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.values
}

// preload delivers fixed values ahead of those from its conduit.
type preload struct {
	values []int64
	input  cpu.Input
}

func (pre *preload) Receive(ctx context.Context) (value int64, err error) {
	if len(pre.values) > 0 {
		value = pre.values[0]
		pre.values = pre.values[1:]
		return
	}

	return pre.input.Receive(ctx)
}

// instance is a processor wired into a topology.
type instance struct {
	cpu    *cpu.Cpu
	input  *channel.Conduit[int64]
	output *recorder
}

func newInstance(verbose bool, prog cpu.Program, patches []cpu.Patch, input *channel.Conduit[int64], output *channel.Conduit[int64], preset ...int64) (in *instance, err error) {
	cp, err := cpu.NewCpu(prog, patches...)
	if err != nil {
		return
	}

	in = &instance{
		cpu:    cp,
		input:  input,
		output: &recorder{Output: output},
	}

	cp.Verbose = verbose
	cp.Input = input
	if len(preset) > 0 {
		cp.Input = &preload{values: preset, input: input}
	}
	cp.Output = in.output

	return
}

// run executes the processor, then drains its input so that an upstream
// writer on a bounded conduit is never left blocked.
func (in *instance) run(ctx context.Context, index int) (err error) {
	_, err = in.cpu.Run(ctx)
	if err != nil {
		err = &ErrInstance{Index: index, Err: err}
		return
	}

	for range channel.Values(ctx, in.input) {
	}

	return
}

// runner runs instances and helper workers under one errgroup, guarded by
// the deadlock watchdog.
type runner struct {
	Verbose bool
	Timeout time.Duration

	instances []*instance
	conduits  []interface{ Transfers() int64 }
	workers   []func(ctx context.Context) error
}

func (rn *runner) run(ctx context.Context) (err error) {
	if len(rn.instances) == 0 {
		err = ErrNoInstances
		return
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan struct{})
	var wg sync.WaitGroup
	if rn.Timeout > 0 {
		wd := &watchdog{Verbose: rn.Verbose, Timeout: rn.Timeout}
		for _, in := range rn.instances {
			wd.Probes = append(wd.Probes, in.cpu.Ticks)
		}
		for _, c := range rn.conduits {
			wd.Probes = append(wd.Probes, c.Transfers)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			wd.watch(ctx, cancel, done)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	for n, in := range rn.instances {
		g.Go(func() error {
			return in.run(gctx, n)
		})
	}
	for _, worker := range rn.workers {
		g.Go(func() error {
			return worker(gctx)
		})
	}

	err = g.Wait()
	close(done)
	wg.Wait()

	return
}

// result gathers the final state of every instance.
func (rn *runner) result() (result Result) {
	for _, in := range rn.instances {
		result.Outputs = append(result.Outputs, in.output.Values())
		result.States = append(result.States, in.cpu.State)
		result.Memory = append(result.Memory, in.cpu.Memory)
	}

	if len(result.Outputs) == 0 {
		return
	}

	last := result.Outputs[len(result.Outputs)-1]
	if len(last) > 0 {
		result.Signal = last[len(last)-1]
	}

	return
}
