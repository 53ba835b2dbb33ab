package tone

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
)

const (
	// DefaultDuration is the note length used by PlayNoteDefault.
	DefaultDuration = 1.0
	// MinDuration is the shortest note rendered; shorter requests are
	// raised to it, or to twice the preset's attack when that is longer.
	MinDuration = 0.05
)

// Output is an output context: it accepts voices and plays them until they
// stop on their own.
type Output interface {
	Start(v Voice) error
	Close() error
}

// Opener creates an output context. It is called lazily on the first note
// and again after Close.
type Opener func() (Output, error)

// Synth renders notes with the active instrument preset. It is safe for
// concurrent use. The output context is created on first use, so a Synth
// can be constructed where no audio device exists.
type Synth struct {
	mu          sync.Mutex
	open        Opener
	presets     PresetTable
	instrument  Instrument
	out         Output
	minDuration float64
	log         *slog.Logger
}

// Option configures a Synth.
type Option func(*Synth)

// WithPresets replaces the built-in preset table. The table is copied;
// invalid entries fall back to the built-in preset and are logged.
func WithPresets(t PresetTable) Option {
	return func(s *Synth) { s.presets = t.Clone() }
}

// WithLogger sets the logger used to report failed notes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synth) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMinDuration overrides MinDuration.
func WithMinDuration(d float64) Option {
	return func(s *Synth) { s.minDuration = d }
}

// New creates a synth that opens its output through open. No output is
// opened until a note is played.
func New(open Opener, opts ...Option) *Synth {
	s := &Synth{
		open:        open,
		presets:     DefaultPresets(),
		instrument:  Piano,
		minDuration: MinDuration,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	defaults := DefaultPresets()
	for in, p := range s.presets {
		if err := p.Validate(); err != nil {
			s.log.Warn("invalid preset replaced by built-in", "instrument", in, "err", err)
			if d, ok := defaults[in]; ok {
				s.presets[in] = d
			} else {
				delete(s.presets, in)
			}
		}
	}
	return s
}

// SetInstrument switches the preset used by later notes. Notes already
// playing are not affected.
func (s *Synth) SetInstrument(in Instrument) error {
	if !in.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownInstrument, in)
	}
	s.mu.Lock()
	s.instrument = in
	s.mu.Unlock()
	return nil
}

// Instrument returns the active instrument.
func (s *Synth) Instrument() Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instrument
}

// Preset returns a copy of the preset for in.
func (s *Synth) Preset(in Instrument) (Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presets[in]
	return p.clone(), ok
}

// Plan returns the voice PlayNote would schedule, without playing it.
func (s *Synth) Plan(note Note, duration float64) (Voice, error) {
	if !note.Valid() {
		return Voice{}, fmt.Errorf("%w: %q", ErrUnknownNote, note)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return Voice{}, fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}
	s.mu.Lock()
	in := s.instrument
	p, ok := s.presets[in]
	minDur := s.minDuration
	s.mu.Unlock()
	if !ok {
		return Voice{}, fmt.Errorf("%w: no preset for %s", ErrUnknownInstrument, in)
	}
	if shortest := p.ShortestNote(minDur); duration < shortest {
		s.log.Debug("note duration clamped", "note", note, "duration", duration, "min", shortest)
		duration = shortest
	}
	return NewVoice(note, in, p, duration), nil
}

// PlayNote starts note for duration seconds and returns without waiting
// for it to finish. Durations below the minimum are clamped. A failure to
// open the output is returned wrapped in ErrUnavailable and logged; the
// synth stays usable and retries on the next note.
func (s *Synth) PlayNote(note Note, duration float64) error {
	v, err := s.Plan(note, duration)
	if err != nil {
		s.log.Warn("note rejected", "note", note, "duration", duration, "err", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.output()
	if err != nil {
		s.log.Warn("audio output unavailable", "err", err)
		return err
	}
	if err := out.Start(v); err != nil {
		s.log.Warn("note playback failed", "note", note, "err", err)
		return fmt.Errorf("play %s: %w", note, err)
	}
	return nil
}

// PlayNoteDefault plays note for DefaultDuration.
func (s *Synth) PlayNoteDefault(note Note) error {
	return s.PlayNote(note, DefaultDuration)
}

// Init opens the output context if it is not open yet. Calling it is
// optional; PlayNote does the same on demand.
func (s *Synth) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.output()
	return err
}

// output returns the live context, opening one if needed. s.mu must be held.
func (s *Synth) output() (Output, error) {
	if s.out != nil {
		return s.out, nil
	}
	if s.open == nil {
		return nil, fmt.Errorf("%w: no output configured", ErrUnavailable)
	}
	out, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: opener returned no output", ErrUnavailable)
	}
	s.out = out
	s.log.Debug("audio output opened")
	return out, nil
}

// IsOpen reports whether an output context is live.
func (s *Synth) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out != nil
}

// Close releases the output context. Closing a closed synth is a no-op.
// The next note opens a fresh context.
func (s *Synth) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.out
	s.out = nil
	if out == nil {
		return nil
	}
	// s.mu stays held: opening and closing are serialized.
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	s.log.Debug("audio output closed")
	return nil
}
