package tone

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeOutput struct {
	mu     sync.Mutex
	voices []Voice
	closed int
}

func (f *fakeOutput) Start(v Voice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, v)
	return nil
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeOutput) started() []Voice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Voice(nil), f.voices...)
}

type fakeOpener struct {
	opened []*fakeOutput
	err    error
}

func (o *fakeOpener) open() (Output, error) {
	if o.err != nil {
		return nil, o.err
	}
	out := &fakeOutput{}
	o.opened = append(o.opened, out)
	return out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSynth(t *testing.T) (*Synth, *fakeOpener) {
	t.Helper()
	op := &fakeOpener{}
	return New(op.open, WithLogger(quietLogger())), op
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestPlayNoteResolvesFrequencyForEveryInstrument(t *testing.T) {
	want := map[Note]float64{
		Do: 261.63, Re: 293.66, Mi: 329.63, Fa: 349.23, Sol: 392.00, La: 440.00, Si: 493.88,
	}
	for _, in := range Instruments() {
		s, op := newTestSynth(t)
		if err := s.SetInstrument(in); err != nil {
			t.Fatalf("SetInstrument(%s): %v", in, err)
		}
		for _, n := range Notes() {
			if err := s.PlayNote(n, 0.5); err != nil {
				t.Fatalf("PlayNote(%s): %v", n, err)
			}
		}
		voices := op.opened[0].started()
		if len(voices) != len(want) {
			t.Fatalf("%s: expected %d voices, got %d", in, len(want), len(voices))
		}
		for _, v := range voices {
			if got := v.Partials[0].Frequency; got != want[v.Note] {
				t.Fatalf("%s/%s: fundamental got=%f want=%f", in, v.Note, got, want[v.Note])
			}
		}
	}
}

func TestSetInstrumentThenInstrument(t *testing.T) {
	s, _ := newTestSynth(t)
	if got := s.Instrument(); got != Piano {
		t.Fatalf("default instrument got=%s want=piano", got)
	}
	for _, in := range Instruments() {
		if err := s.SetInstrument(in); err != nil {
			t.Fatalf("SetInstrument(%s): %v", in, err)
		}
		if got := s.Instrument(); got != in {
			t.Fatalf("Instrument() got=%s want=%s", got, in)
		}
	}
}

func TestSetInstrumentRejectsUnknownAndKeepsState(t *testing.T) {
	s, _ := newTestSynth(t)
	_ = s.SetInstrument(Flute)
	err := s.SetInstrument(Instrument("kazoo"))
	if !errors.Is(err, ErrUnknownInstrument) {
		t.Fatalf("expected ErrUnknownInstrument, got %v", err)
	}
	if got := s.Instrument(); got != Flute {
		t.Fatalf("instrument changed on error: %s", got)
	}
}

func TestPartialCountFollowsHarmonics(t *testing.T) {
	presets := DefaultPresets()
	for _, in := range Instruments() {
		s, _ := newTestSynth(t)
		_ = s.SetInstrument(in)
		v, err := s.Plan(Mi, 1)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		want := 1
		if h := len(presets[in].Harmonics); h > 1 {
			want = h
		}
		if len(v.Partials) != want {
			t.Fatalf("%s: partials got=%d want=%d", in, len(v.Partials), want)
		}
	}
}

func TestSingleHarmonicAddsNoPartials(t *testing.T) {
	p := DefaultPresets()[Flute]
	p.Harmonics = []float64{1}
	v := NewVoice(Sol, Flute, p, 1)
	if len(v.Partials) != 1 {
		t.Fatalf("expected 1 partial, got %d", len(v.Partials))
	}
}

func TestOrganLaScenario(t *testing.T) {
	s, op := newTestSynth(t)
	_ = s.SetInstrument(Organ)
	if err := s.PlayNote(La, 1.0); err != nil {
		t.Fatalf("PlayNote: %v", err)
	}
	voices := op.opened[0].started()
	if len(voices) != 1 {
		t.Fatalf("expected one voice, got %d", len(voices))
	}
	v := voices[0]
	wantFreq := []float64{440, 880, 1320, 1760}
	wantVol := []float64{0.25, 0.125, 0.0625, 0.03125}
	if len(v.Partials) != len(wantFreq) {
		t.Fatalf("partials got=%d want=%d", len(v.Partials), len(wantFreq))
	}
	for i, p := range v.Partials {
		if !approxEqual(p.Frequency, wantFreq[i], 1e-9) {
			t.Fatalf("partial %d freq got=%f want=%f", i, p.Frequency, wantFreq[i])
		}
		if p.Waveform != Square {
			t.Fatalf("partial %d waveform got=%s want=square", i, p.Waveform)
		}
		if !approxEqual(p.Volume, wantVol[i], 1e-12) {
			t.Fatalf("partial %d volume got=%f want=%f", i, p.Volume, wantVol[i])
		}
		if p.Stop != 1.0 {
			t.Fatalf("partial %d stop got=%f want=1.0", i, p.Stop)
		}
	}

	env := v.Partials[0].Envelope
	checks := []struct {
		t, want float64
	}{
		{0, 0},
		{0.01, 0.125}, // halfway through the 20ms attack
		{0.02, 0.2},   // zero decay jumps straight to sustain
		{0.9, 0.16},   // sustain sag point at duration-release
		{1.0, Floor},
	}
	for _, c := range checks {
		if got := env.ValueAt(c.t); !approxEqual(got, c.want, 1e-9) {
			t.Fatalf("organ envelope at %.3fs got=%f want=%f", c.t, got, c.want)
		}
	}
}

func TestDefaultPianoDoScenario(t *testing.T) {
	s, op := newTestSynth(t)
	if err := s.PlayNote(Do, 0.5); err != nil {
		t.Fatalf("PlayNote: %v", err)
	}
	v := op.opened[0].started()[0]
	if v.Instrument != Piano {
		t.Fatalf("instrument got=%s want=piano", v.Instrument)
	}
	if len(v.Partials) != 1 {
		t.Fatalf("partials got=%d want=1", len(v.Partials))
	}
	p := v.Partials[0]
	if p.Frequency != 261.63 || p.Waveform != Triangle || p.Stop != 0.5 {
		t.Fatalf("unexpected partial: %+v", p)
	}
	if v.Stop() != 0.5 {
		t.Fatalf("voice stop got=%f want=0.5", v.Stop())
	}
}

func TestPianoEnvelopePoints(t *testing.T) {
	env := ADSR(DefaultPresets()[Piano], 0.3, 1.0)
	checks := []struct {
		t, want float64
	}{
		{0.005, 0.15},
		{0.01, 0.3},
		{0.11, 0.09},
		{0.5, 0.072},
		{1.0, Floor},
		{2.0, Floor},
	}
	for _, c := range checks {
		if got := env.ValueAt(c.t); !approxEqual(got, c.want, 1e-9) {
			t.Fatalf("piano envelope at %.3fs got=%f want=%f", c.t, got, c.want)
		}
	}
	mid := env.ValueAt(0.3)
	want := 0.09 * math.Pow(0.072/0.09, (0.3-0.11)/(0.5-0.11))
	if !approxEqual(mid, want, 1e-9) {
		t.Fatalf("exponential segment got=%f want=%f", mid, want)
	}
}

func TestEnvelopeStaysAboveFloorAfterAttack(t *testing.T) {
	for _, in := range Instruments() {
		p := DefaultPresets()[in]
		for _, dur := range []float64{0.05, 0.2, 0.5, 1, 3} {
			v := NewVoice(La, in, p, dur)
			for _, part := range v.Partials {
				for _, ev := range part.Envelope.Events[1:] {
					if ev.Kind == ExponentialRamp && ev.Value < Floor {
						t.Fatalf("%s: exponential target below floor: %f", in, ev.Value)
					}
				}
				if dur < p.Attack {
					// The final ramp lands before the attack starts; automation
					// holds zero there.
					continue
				}
				for i := 1; i <= 200; i++ {
					tt := dur * float64(i) / 200
					if got := part.Envelope.ValueAt(tt); !(got > 0) {
						t.Fatalf("%s dur=%.2f: envelope reached %f at %.4fs", in, dur, got, tt)
					}
				}
			}
		}
	}
}

func TestSustainPointNeverPrecedesDecay(t *testing.T) {
	p := DefaultPresets()[Violin] // attack+decay = 0.3, release = 0.4
	env := ADSR(p, p.Volume, 0.5)
	var sag Event
	for _, ev := range env.Events {
		if ev.Kind == ExponentialRamp && approxEqual(ev.Value, p.Volume*p.Sustain*0.8, 1e-12) {
			sag = ev
		}
	}
	if !approxEqual(sag.Time, 0.3, 1e-12) {
		t.Fatalf("sag point got=%f want=0.3", sag.Time)
	}
	for i := 1; i < len(env.Events); i++ {
		if env.Events[i].Time < env.Events[i-1].Time {
			t.Fatalf("events out of order: %+v", env.Events)
		}
	}
}

func TestOutputOpenedLazily(t *testing.T) {
	s, op := newTestSynth(t)
	if s.IsOpen() || len(op.opened) != 0 {
		t.Fatalf("output opened at construction")
	}
	_ = s.SetInstrument(Guitar)
	if len(op.opened) != 0 {
		t.Fatalf("SetInstrument opened the output")
	}
	_ = s.PlayNote(Re, 0.3)
	_ = s.PlayNote(Mi, 0.3)
	if len(op.opened) != 1 {
		t.Fatalf("expected exactly one output, got %d", len(op.opened))
	}
}

func TestCloseThenPlayReopens(t *testing.T) {
	s, op := newTestSynth(t)
	_ = s.PlayNote(Fa, 0.4)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if op.opened[0].closed != 1 {
		t.Fatalf("first output not closed")
	}
	if s.IsOpen() {
		t.Fatalf("synth still open after Close")
	}
	if err := s.PlayNote(Fa, 0.4); err != nil {
		t.Fatalf("PlayNote after Close: %v", err)
	}
	if len(op.opened) != 2 {
		t.Fatalf("expected a fresh output, got %d opens", len(op.opened))
	}
	a := op.opened[0].started()[0]
	b := op.opened[1].started()[0]
	if len(a.Partials) != len(b.Partials) || a.Partials[0].Frequency != b.Partials[0].Frequency {
		t.Fatalf("reopened output scheduled a different voice: %+v vs %+v", a, b)
	}
}

func TestCloseTwiceIsNoop(t *testing.T) {
	s, _ := newTestSynth(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close on fresh synth: %v", err)
	}
	_ = s.PlayNote(Si, 0.2)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestUnavailableOutputIsReported(t *testing.T) {
	op := &fakeOpener{err: errors.New("no device")}
	s := New(op.open, WithLogger(quietLogger()))
	err := s.PlayNote(Do, 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := s.Init(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Init: expected ErrUnavailable, got %v", err)
	}

	op.err = nil
	if err := s.PlayNote(Do, 1); err != nil {
		t.Fatalf("expected recovery once output is available, got %v", err)
	}
}

func TestNilOpenerIsUnavailable(t *testing.T) {
	s := New(nil, WithLogger(quietLogger()))
	if err := s.PlayNote(Do, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestShortDurationsAreClamped(t *testing.T) {
	s, _ := newTestSynth(t)
	for _, d := range []float64{0, -1, 0.01} {
		v, err := s.Plan(Do, d)
		if err != nil {
			t.Fatalf("Plan(%f): %v", d, err)
		}
		if v.Duration != MinDuration || v.Stop() != MinDuration {
			t.Fatalf("duration %f not clamped: %+v", d, v)
		}
	}
}

func TestInvalidDurationRejected(t *testing.T) {
	s, op := newTestSynth(t)
	for _, d := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := s.PlayNote(Do, d); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %v: expected ErrInvalidDuration, got %v", d, err)
		}
	}
	if len(op.opened) != 0 {
		t.Fatalf("rejected notes opened the output")
	}
}

func TestUnknownNoteRejected(t *testing.T) {
	s, _ := newTestSynth(t)
	if err := s.PlayNote(Note("ti"), 1); !errors.Is(err, ErrUnknownNote) {
		t.Fatalf("expected ErrUnknownNote, got %v", err)
	}
}

func TestWithPresetsIsCopied(t *testing.T) {
	table := DefaultPresets()
	s := New(nil, WithPresets(table), WithLogger(quietLogger()))
	table[Piano] = Preset{Waveform: Sine, Sustain: 1, Volume: 1}
	p, ok := s.Preset(Piano)
	if !ok || p.Waveform != Triangle {
		t.Fatalf("synth preset changed through caller table: %+v", p)
	}
}

func TestPlaySequenceSpacesNotes(t *testing.T) {
	s, op := newTestSynth(t)
	notes := []Note{Do, Mi, Sol}
	start := time.Now()
	if err := s.PlaySequence(context.Background(), notes, 0.2, 10*time.Millisecond); err != nil {
		t.Fatalf("PlaySequence: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("sequence finished too fast: %v", elapsed)
	}
	voices := op.opened[0].started()
	if len(voices) != len(notes) {
		t.Fatalf("voices got=%d want=%d", len(voices), len(notes))
	}
	for i, v := range voices {
		if v.Note != notes[i] {
			t.Fatalf("voice %d got=%s want=%s", i, v.Note, notes[i])
		}
	}
}

func TestPlaySequenceStopsOnCancel(t *testing.T) {
	s, op := newTestSynth(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.PlaySequence(ctx, []Note{Do, Re}, 0.2, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(op.opened) != 0 {
		t.Fatalf("canceled sequence played notes")
	}
}

func TestPlaySequenceContinuesPastUnavailableOutput(t *testing.T) {
	op := &fakeOpener{err: errors.New("no device")}
	s := New(op.open, WithLogger(quietLogger()))
	err := s.PlaySequence(context.Background(), []Note{Do, Re, Mi}, 0.2, time.Millisecond)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if s.IsOpen() {
		t.Fatalf("synth reports an open output after failed opens")
	}
}

func TestClampedNotesAreAudibleForEveryInstrument(t *testing.T) {
	s, _ := newTestSynth(t)
	for _, in := range Instruments() {
		if err := s.SetInstrument(in); err != nil {
			t.Fatalf("SetInstrument(%s): %v", in, err)
		}
		v, err := s.Plan(Do, 0)
		if err != nil {
			t.Fatalf("%s: Plan: %v", in, err)
		}
		p := DefaultPresets()[in]
		if want := math.Max(MinDuration, 2*p.Attack); !approxEqual(v.Duration, want, 1e-12) {
			t.Fatalf("%s: clamped duration got=%f want=%f", in, v.Duration, want)
		}
		if peak := peakAbs(Render(v, 48000)); peak < 0.05 {
			t.Fatalf("%s: clamped note is silent, peak=%f", in, peak)
		}
	}
}

func TestWithPresetsReplacesInvalidEntries(t *testing.T) {
	table := DefaultPresets()
	table[Flute] = Preset{Waveform: Waveform("pulse"), Sustain: 0.5, Volume: 0.5}
	table[Organ] = Preset{Waveform: Square, Sustain: 2, Volume: 0.5}
	s := New(nil, WithPresets(table), WithLogger(quietLogger()))

	for _, in := range []Instrument{Flute, Organ} {
		p, ok := s.Preset(in)
		if !ok {
			t.Fatalf("%s: preset missing", in)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("%s: invalid preset kept: %v", in, err)
		}
		if p.Waveform != DefaultPresets()[in].Waveform {
			t.Fatalf("%s: got waveform %s, want built-in", in, p.Waveform)
		}
	}
}

type blockingOutput struct {
	release chan struct{}
	closing chan struct{}
}

func (b *blockingOutput) Start(Voice) error { return nil }

func (b *blockingOutput) Close() error {
	close(b.closing)
	<-b.release
	return nil
}

func TestCloseSerializesWithReopen(t *testing.T) {
	first := &blockingOutput{release: make(chan struct{}), closing: make(chan struct{})}
	var opens atomic.Int32
	open := func() (Output, error) {
		if opens.Add(1) == 1 {
			return first, nil
		}
		return &fakeOutput{}, nil
	}
	s := New(open, WithLogger(quietLogger()))
	if err := s.PlayNote(Do, 0.2); err != nil {
		t.Fatalf("PlayNote: %v", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()
	<-first.closing

	played := make(chan error, 1)
	go func() { played <- s.PlayNote(Re, 0.2) }()
	select {
	case err := <-played:
		t.Fatalf("note played while the previous output was closing: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	if n := opens.Load(); n != 1 {
		t.Fatalf("output reopened before Close finished: %d opens", n)
	}

	close(first.release)
	if err := <-closed; err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := <-played; err != nil {
		t.Fatalf("PlayNote after Close: %v", err)
	}
	if n := opens.Load(); n != 2 {
		t.Fatalf("opens got=%d want=2", n)
	}
}
