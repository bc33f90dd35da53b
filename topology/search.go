package topology

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/internal"
)

// Search describes a patch search: every (noun, verb) pair in the range is
// written to addresses 1 and 2, and the program is run until the value left
// at address 0 equals Target.
type Search struct {
	Verbose bool
	Program cpu.Program
	Patches []cpu.Patch // Applied before noun and verb.
	Low     int64
	High    int64 // Inclusive.
	Target  int64
	Timeout time.Duration // Run time allowed per candidate, 0 for no limit.
}

// Run returns the matching pair with the lowest noun, then lowest verb.
// Candidates that fault, or run past the timeout, are skipped.
func (s *Search) Run(ctx context.Context) (noun, verb int64, err error) {
	base, err := s.Program.Memory(s.Patches...)
	if err != nil {
		return
	}

	var mu sync.Mutex
	found := false

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for n := range internal.IterRange(s.Low, s.High) {
		g.Go(func() (err error) {
			for v := range internal.IterRange(s.Low, s.High) {
				var ok bool
				ok, err = s.try(gctx, base, n, v)
				if err != nil {
					return
				}
				if !ok {
					continue
				}

				mu.Lock()
				if !found || n < noun || (n == noun && v < verb) {
					found = true
					noun, verb = n, v
				}
				mu.Unlock()
				return
			}
			return
		})
	}

	err = g.Wait()
	if err == nil && !found {
		err = ErrNotFound
	}
	if err != nil {
		noun, verb = 0, 0
		return
	}

	if s.Verbose {
		log.Print(f("search: noun %d verb %d", noun, verb))
	}

	return
}

// try runs a single candidate on a copy of the base memory.
// Only cancellation of ctx is an error.
func (s *Search) try(ctx context.Context, base *cpu.Memory, noun, verb int64) (ok bool, err error) {
	mem := base.Clone()
	err = mem.Write(1, noun)
	if err != nil {
		return
	}
	err = mem.Write(2, verb)
	if err != nil {
		return
	}

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeoutCause(ctx, s.Timeout, ErrCandidateTimeout)
		defer cancel()
	}

	cp := &cpu.Cpu{Verbose: s.Verbose, Memory: mem}
	state, err := cp.Run(runCtx)
	if ctx.Err() != nil {
		err = context.Cause(ctx)
		return
	}
	if s.Verbose && err != nil {
		log.Print(f("search: noun %d verb %d: %v", noun, verb, err))
	}
	err = nil
	if state != cpu.STATE_HALTED {
		return
	}

	value, _ := mem.Read(0)
	ok = value == s.Target
	return
}
