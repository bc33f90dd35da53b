package topology

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ezrec/intcode/channel"
	"github.com/ezrec/intcode/cpu"
)

// Peer is the Go side of a duplex topology.
type Peer interface {
	// Request returns the next value the processor will read.
	// Returning ErrStop closes the processor's input.
	Request(ctx context.Context) (value int64, err error)
	// Event receives each value the processor writes.
	Event(ctx context.Context, value int64) (err error)
}

// Duplex describes a processor paired with a Peer. The processor
// announces every read and write on a control conduit, and the Peer is
// driven in lockstep with those announcements.
type Duplex struct {
	Verbose  bool
	Program  cpu.Program
	Patches  []cpu.Patch
	Capacity int           // Conduit bound, 0 for unbounded.
	Timeout  time.Duration // Deadlock watchdog period, 0 to disable.
}

// Run executes the processor against the peer.
func (d *Duplex) Run(ctx context.Context, peer Peer) (result Result, err error) {
	input := channel.New[int64](d.Capacity)
	output := channel.New[int64](d.Capacity)
	control := channel.New[channel.Token](d.Capacity)

	in, err := newInstance(d.Verbose, d.Program, d.Patches, input, output)
	if err != nil {
		return
	}
	in.cpu.Control = control

	rn := &runner{
		Verbose:   d.Verbose,
		Timeout:   d.Timeout,
		instances: []*instance{in},
		conduits:  []interface{ Transfers() int64 }{input, output, control},
		workers: []func(ctx context.Context) error{
			func(ctx context.Context) error {
				return serve(ctx, peer, control, input, output, d.Verbose)
			},
		},
	}

	err = rn.run(ctx)
	result = rn.result()

	return
}

// serve consumes control tokens and their payloads in order until the
// processor closes its control conduit. The input is closed on a clean
// return; on error the processor is left to the context cancellation.
func serve(ctx context.Context, peer Peer, control *channel.Conduit[channel.Token], input *channel.Conduit[int64], output *channel.Conduit[int64], verbose bool) (err error) {
	defer func() {
		if err == nil {
			input.Close()
		}
	}()

	for {
		var token channel.Token
		token, err = control.Receive(ctx)
		if errors.Is(err, channel.ErrClosed) {
			err = nil
			if left := output.Len(); left > 0 {
				err = errors.Join(ErrProtocolViolation, errors.New(f("%d values without a write event", left)))
			}
			return
		}
		if err != nil {
			return
		}

		if verbose {
			log.Print(f("duplex: %v", token))
		}

		var value int64
		switch token {
		case channel.TOKEN_READ_REQUEST:
			value, err = peer.Request(ctx)
			if errors.Is(err, ErrStop) {
				err = nil
				return
			}
			if err != nil {
				return
			}
			err = input.Send(ctx, value)
			if errors.Is(err, channel.ErrClosed) {
				err = errors.Join(ErrProtocolViolation, err)
			}
			if err != nil {
				return
			}
		case channel.TOKEN_WRITE_EVENT:
			value, err = output.Receive(ctx)
			if errors.Is(err, channel.ErrClosed) {
				err = errors.Join(ErrProtocolViolation, errors.New(f("write event without a value")))
			}
			if err != nil {
				return
			}
			err = peer.Event(ctx, value)
			if err != nil {
				return
			}
		default:
			err = errors.Join(ErrProtocolViolation, errors.New(f("unknown token %v", token)))
			return
		}
	}
}
