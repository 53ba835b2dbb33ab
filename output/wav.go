package output

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cwbudde/algo-solfege/internal/wavio"
	"github.com/cwbudde/algo-solfege/tone"
)

// WAVRecorder is an output that records voices on a wall-clock timeline
// and renders them to a mono WAV file when closed.
type WAVRecorder struct {
	mu         sync.Mutex
	path       string
	sampleRate int
	fileRate   int
	now        func() time.Time
	opened     time.Time
	events     []recorded
	closed     bool
}

type recorded struct {
	at    float64 // seconds since open
	voice tone.Voice
}

// WAV returns an opener that records to path. fileRate selects the rate of
// the written file; zero keeps sampleRate.
func WAV(path string, sampleRate, fileRate int) tone.Opener {
	return func() (tone.Output, error) {
		return NewWAVRecorder(path, sampleRate, fileRate, time.Now), nil
	}
}

// NewWAVRecorder creates a recorder whose timeline is read from now.
func NewWAVRecorder(path string, sampleRate, fileRate int, now func() time.Time) *WAVRecorder {
	if fileRate <= 0 {
		fileRate = sampleRate
	}
	return &WAVRecorder{
		path:       path,
		sampleRate: sampleRate,
		fileRate:   fileRate,
		now:        now,
		opened:     now(),
	}
}

func (w *WAVRecorder) Start(v tone.Voice) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errClosed
	}
	at := w.now().Sub(w.opened).Seconds()
	w.events = append(w.events, recorded{at: at, voice: v})
	return nil
}

// Close renders the recording and writes the file. Later calls do nothing.
func (w *WAVRecorder) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	events := slices.Clone(w.events)
	w.mu.Unlock()

	samples := renderTimeline(events, w.sampleRate)
	if w.fileRate != w.sampleRate {
		res, err := wavio.Resample32(samples, w.sampleRate, w.fileRate)
		if err != nil {
			return fmt.Errorf("resample %d->%d Hz: %w", w.sampleRate, w.fileRate, err)
		}
		samples = res
	}
	if err := wavio.Write(w.path, samples, w.fileRate); err != nil {
		return fmt.Errorf("write %s: %w", w.path, err)
	}
	return nil
}

// renderTimeline mixes voices starting at their recorded offsets.
func renderTimeline(events []recorded, sampleRate int) []float32 {
	slices.SortStableFunc(events, func(a, b recorded) int {
		switch {
		case a.at < b.at:
			return -1
		case a.at > b.at:
			return 1
		}
		return 0
	})
	var total int
	for _, e := range events {
		end := int((e.at+e.voice.Stop())*float64(sampleRate) + 0.5)
		total = max(total, end)
	}
	out := make([]float32, total)
	m := tone.NewMixer(sampleRate)
	var pos int
	for _, e := range events {
		start := min(int(e.at*float64(sampleRate)+0.5), total)
		if start > pos {
			m.Process(out[pos:start])
			pos = start
		}
		m.Add(e.voice)
	}
	m.Process(out[pos:])
	return out
}
