package channel

import (
	"errors"

	"github.com/ezrec/intcode/translate"
)

var f = translate.From

var (
	// Conduit errors
	ErrClosed = errors.New(f("conduit closed"))
)
