package topology

import (
	"context"
	"log"
	"time"

	"github.com/ezrec/intcode/channel"
	"github.com/ezrec/intcode/cpu"
)

// Single describes one processor with a prefilled, closed input.
type Single struct {
	Verbose bool
	Program cpu.Program
	Patches []cpu.Patch
	Inputs  []int64
	Timeout time.Duration // Deadlock watchdog period, 0 to disable.
}

// Run executes a single processor. The processor stops, without error,
// if it asks for more input than was supplied.
func Run(ctx context.Context, single Single) (result Result, err error) {
	input := channel.New[int64](0)
	output := channel.New[int64](0)

	err = channel.Feed(ctx, input, single.Inputs...)
	if err != nil {
		return
	}
	input.Close()

	in, err := newInstance(single.Verbose, single.Program, single.Patches, input, output)
	if err != nil {
		return
	}

	rn := &runner{
		Verbose:   single.Verbose,
		Timeout:   single.Timeout,
		instances: []*instance{in},
		conduits:  []interface{ Transfers() int64 }{input, output},
		workers: []func(ctx context.Context) error{
			func(ctx context.Context) (err error) {
				_, err = channel.Collect(ctx, output)
				return
			},
		},
	}

	err = rn.run(ctx)
	result = rn.result()

	if single.Verbose {
		log.Print(f("single: %v with %d outputs", result.States[0], len(result.Outputs[0])))
	}

	return
}
