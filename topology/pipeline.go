// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package topology

import (
	"context"
	"log"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/intcode/channel"
	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/internal"
)

// Pipeline describes a chain of identical processors, one per phase.
// Instance k reads conduit k and writes conduit k+1. With Feedback set,
// the last instance writes back into conduit 0, closing a ring.
type Pipeline struct {
	Verbose  bool
	Program  cpu.Program
	Patches  []cpu.Patch
	Phases   []int64       // First input of each instance.
	Seed     int64         // Second input of instance 0.
	Feedback bool          // Close the pipeline into a ring.
	Capacity int           // Conduit bound, 0 for unbounded.
	Timeout  time.Duration // Deadlock watchdog period, 0 to disable.
}

// Run executes the pipeline. The signal is the last value the terminal
// instance produced.
func (p *Pipeline) Run(ctx context.Context) (result Result, err error) {
	count := len(p.Phases)
	if count == 0 {
		err = ErrNoInstances
		return
	}

	links := make([]*channel.Conduit[int64], count+1)
	for n := range count {
		links[n] = channel.New[int64](p.Capacity)
	}
	if p.Feedback {
		links[count] = links[0]
	} else {
		links[count] = channel.New[int64](p.Capacity)
	}

	rn := &runner{
		Verbose: p.Verbose,
		Timeout: p.Timeout,
	}

	for n, phase := range p.Phases {
		preset := []int64{phase}
		if n == 0 {
			preset = append(preset, p.Seed)
		}

		var in *instance
		in, err = newInstance(p.Verbose, p.Program, p.Patches, links[n], links[n+1], preset...)
		if err != nil {
			return
		}
		rn.instances = append(rn.instances, in)
		rn.conduits = append(rn.conduits, links[n])
	}

	if !p.Feedback {
		// Instance 0 has no upstream.
		links[0].Close()

		sink := links[count]
		rn.conduits = append(rn.conduits, sink)
		rn.workers = append(rn.workers, func(ctx context.Context) (err error) {
			_, err = channel.Collect(ctx, sink)
			return
		})
	}

	err = rn.run(ctx)
	result = rn.result()

	if err == nil && len(result.Outputs[count-1]) == 0 {
		err = &ErrInstance{Index: count - 1, Err: ErrNoSignal}
	}

	if p.Verbose {
		log.Print(f("pipeline: phases %v signal %d", p.Phases, result.Signal))
	}

	return
}

// MaxSignal runs the pipeline once for every ordering of phases, and
// returns the highest signal along with the phase order producing it.
// Ties go to the lowest order. Runs are concurrent, up to one per CPU.
func MaxSignal(ctx context.Context, pipeline Pipeline, phases []int64) (best int64, order []int64, err error) {
	if len(phases) == 0 {
		err = ErrNoInstances
		return
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for perm := range internal.IterPermutations(phases) {
		g.Go(func() (err error) {
			p := pipeline
			p.Phases = perm
			result, err := p.Run(gctx)
			if err != nil {
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if order == nil || result.Signal > best ||
				(result.Signal == best && slices.Compare(perm, order) < 0) {
				best = result.Signal
				order = perm
			}
			return
		})
	}

	err = g.Wait()
	if err != nil {
		best = 0
		order = nil
	}

	return
}
