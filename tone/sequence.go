package tone

import (
	"context"
	"time"
)

// PlaySequence plays notes one after another, starting each gap after the
// previous one. It blocks until the last note has started or ctx is done.
// Notes that fail to play are skipped; the first error is returned once
// the sequence ends.
func (s *Synth) PlaySequence(ctx context.Context, notes []Note, noteDuration float64, gap time.Duration) error {
	var firstErr error
	for i, n := range notes {
		if i > 0 {
			t := time.NewTimer(gap)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.PlayNote(n, noteDuration); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
