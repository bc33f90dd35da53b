package topology

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Topology errors
	ErrTopologyDeadlock  = errors.New(f("topology deadlock"))
	ErrProtocolViolation = errors.New(f("protocol violation"))
	ErrNoInstances       = errors.New(f("no instances"))
	ErrNoSignal          = errors.New(f("terminal instance produced no signal"))
	ErrNotFound          = errors.New(f("no patch matches target"))
	ErrCandidateTimeout  = errors.New(f("candidate timeout"))

	// ErrStop is returned by a Peer to end a duplex session cleanly.
	ErrStop = errors.New(f("stop"))
)

// ErrInstance is a fatal error of one processor in a topology.
type ErrInstance struct {
	Index int
	Err   error
}

func (err *ErrInstance) Error() string {
	return f("instance %d: %v", err.Index, err.Err)
}

func (err *ErrInstance) Unwrap() error {
	return err.Err
}
