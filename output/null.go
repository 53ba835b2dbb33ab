package output

import (
	"sync/atomic"

	"github.com/cwbudde/algo-solfege/tone"
)

// Null discards voices, counting them. Useful where no device exists.
type Null struct {
	started atomic.Int64
	closed  atomic.Bool
}

// NewNull creates a null output.
func NewNull() *Null { return &Null{} }

func (n *Null) Start(tone.Voice) error {
	if n.closed.Load() {
		return errClosed
	}
	n.started.Add(1)
	return nil
}

func (n *Null) Close() error {
	n.closed.Store(true)
	return nil
}

// Started returns the number of voices accepted.
func (n *Null) Started() int64 { return n.started.Load() }
