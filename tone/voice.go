package tone

// Partial is one oscillator of a voice: a waveform at a fixed frequency
// shaped by its own envelope.
type Partial struct {
	Frequency float64
	Waveform  Waveform
	Volume    float64 // envelope peak
	Envelope  Envelope
	Stop      float64 // seconds after voice start
}

// Voice is a single note event. It owns its partials and is never reused.
type Voice struct {
	Note       Note
	Instrument Instrument
	Duration   float64
	Partials   []Partial
}

// NewVoice builds the partials for note played with preset p.
// The fundamental always sounds; with two or more harmonic multipliers,
// multiplier i adds a partial at (i+1) times the fundamental.
func NewVoice(note Note, in Instrument, p Preset, duration float64) Voice {
	f0 := note.Frequency()
	v := Voice{
		Note:       note,
		Instrument: in,
		Duration:   duration,
		Partials:   make([]Partial, 0, max(1, len(p.Harmonics))),
	}
	v.Partials = append(v.Partials, newPartial(f0, p, p.Volume, duration))
	if len(p.Harmonics) > 1 {
		for i := 1; i < len(p.Harmonics); i++ {
			v.Partials = append(v.Partials, newPartial(f0*float64(i+1), p, p.Volume*p.Harmonics[i], duration))
		}
	}
	return v
}

func newPartial(freq float64, p Preset, volume, duration float64) Partial {
	return Partial{
		Frequency: freq,
		Waveform:  p.Waveform,
		Volume:    volume,
		Envelope:  ADSR(p, volume, duration),
		Stop:      duration,
	}
}

// Stop returns the time at which the last partial stops.
func (v Voice) Stop() float64 {
	var end float64
	for _, p := range v.Partials {
		end = max(end, p.Stop)
	}
	return end
}
