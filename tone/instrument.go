package tone

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-solfege/dsp"
)

// Waveform is the periodic shape of an oscillator.
type Waveform string

const (
	Sine     Waveform = "sine"
	Triangle Waveform = "triangle"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
)

// ParseWaveform resolves a waveform name.
func ParseWaveform(s string) (Waveform, error) {
	w := Waveform(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := w.shape(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownWaveform, s)
	}
	return w, nil
}

func (w Waveform) shape() (dsp.Shape, bool) {
	switch w {
	case Sine:
		return dsp.ShapeSine, true
	case Triangle:
		return dsp.ShapeTriangle, true
	case Square:
		return dsp.ShapeSquare, true
	case Sawtooth:
		return dsp.ShapeSawtooth, true
	}
	return dsp.ShapeSine, false
}

// Instrument names a timbre preset.
type Instrument string

const (
	Piano  Instrument = "piano"
	Guitar Instrument = "guitar"
	Flute  Instrument = "flute"
	Violin Instrument = "violin"
	Organ  Instrument = "organ"
)

var instrumentOrder = []Instrument{Piano, Guitar, Flute, Violin, Organ}

// Instruments returns the built-in instruments in menu order.
func Instruments() []Instrument {
	return append([]Instrument(nil), instrumentOrder...)
}

// ParseInstrument resolves an instrument name, ignoring case.
func ParseInstrument(s string) (Instrument, error) {
	in := Instrument(strings.ToLower(strings.TrimSpace(s)))
	if !in.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownInstrument, s)
	}
	return in, nil
}

// Valid reports whether in is one of the built-in instruments.
func (in Instrument) Valid() bool {
	for _, x := range instrumentOrder {
		if x == in {
			return true
		}
	}
	return false
}

func (in Instrument) String() string { return string(in) }

// Preset holds the timbre of an instrument. Times are in seconds.
type Preset struct {
	Waveform Waveform
	Attack   float64
	Decay    float64
	Sustain  float64 // fraction of Volume held after decay
	Release  float64
	Volume   float64 // peak gain

	// Relative amplitudes of the harmonic series; index 0 is the
	// fundamental. Fewer than two entries adds no overtones.
	Harmonics []float64
}

// Validate checks the preset ranges.
func (p Preset) Validate() error {
	if _, ok := p.Waveform.shape(); !ok {
		return fmt.Errorf("%w: waveform %q", ErrInvalidPreset, p.Waveform)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{{"attack", p.Attack}, {"decay", p.Decay}, {"release", p.Release}} {
		if f.v < 0 || !isFinite(f.v) {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidPreset, f.name)
		}
	}
	if !(p.Sustain > 0 && p.Sustain <= 1) {
		return fmt.Errorf("%w: sustain must be in (0,1]", ErrInvalidPreset)
	}
	if !(p.Volume > 0 && p.Volume <= 1) {
		return fmt.Errorf("%w: volume must be in (0,1]", ErrInvalidPreset)
	}
	for i, h := range p.Harmonics {
		if !(h > 0) || !isFinite(h) {
			return fmt.Errorf("%w: harmonics[%d] must be > 0", ErrInvalidPreset, i)
		}
	}
	return nil
}

// ShortestNote returns the shortest duration that still sounds with p: at
// least floor, and long enough for the attack to peak and fall back.
func (p Preset) ShortestNote(floor float64) float64 {
	return math.Max(floor, 2*p.Attack)
}

func (p Preset) clone() Preset {
	p.Harmonics = append([]float64(nil), p.Harmonics...)
	return p
}

// PresetTable maps instruments to their presets.
type PresetTable map[Instrument]Preset

// DefaultPresets returns a fresh copy of the built-in presets.
func DefaultPresets() PresetTable {
	return PresetTable{
		Piano: {
			Waveform: Triangle,
			Attack:   0.01,
			Decay:    0.1,
			Sustain:  0.3,
			Release:  0.5,
			Volume:   0.3,
		},
		Guitar: {
			Waveform:  Sawtooth,
			Attack:    0.005,
			Decay:     0.05,
			Sustain:   0.4,
			Release:   0.8,
			Volume:    0.25,
			Harmonics: []float64{1, 0.5, 0.25},
		},
		Flute: {
			Waveform: Sine,
			Attack:   0.05,
			Decay:    0.1,
			Sustain:  0.6,
			Release:  0.3,
			Volume:   0.2,
		},
		Violin: {
			Waveform:  Sawtooth,
			Attack:    0.1,
			Decay:     0.2,
			Sustain:   0.7,
			Release:   0.4,
			Volume:    0.3,
			Harmonics: []float64{1, 0.3, 0.15, 0.08},
		},
		Organ: {
			Waveform:  Square,
			Attack:    0.02,
			Decay:     0,
			Sustain:   0.8,
			Release:   0.1,
			Volume:    0.25,
			Harmonics: []float64{1, 0.5, 0.25, 0.125},
		},
	}
}

// Clone returns a deep copy of the table.
func (t PresetTable) Clone() PresetTable {
	out := make(PresetTable, len(t))
	for k, v := range t {
		out[k] = v.clone()
	}
	return out
}

// Validate checks that every built-in instrument has a valid preset.
func (t PresetTable) Validate() error {
	for _, in := range instrumentOrder {
		p, ok := t[in]
		if !ok {
			return fmt.Errorf("%w: missing preset for %s", ErrInvalidPreset, in)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
