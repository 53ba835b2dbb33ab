package tone

import (
	"sync"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"

	"github.com/cwbudde/algo-solfege/dsp"
)

// Mixer sums scheduled voices into a mono stream. It is the shared output
// stage of an output context; voices are added from any goroutine while a
// single consumer pulls samples with Process.
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	pos        int64
	voices     []*voiceState
}

type voiceState struct {
	start    int64
	partials []partialState
}

type partialState struct {
	osc  *dsp.Oscillator
	env  Envelope
	stop int64 // samples after voice start
}

// NewMixer creates an empty mixer.
func NewMixer(sampleRate int) *Mixer {
	return &Mixer{sampleRate: sampleRate}
}

// SampleRate returns the mixer rate in Hz.
func (m *Mixer) SampleRate() int { return m.sampleRate }

// Add schedules v to start at the current stream position.
func (m *Mixer) Add(v Voice) {
	vs := m.newVoiceState(v)
	m.mu.Lock()
	vs.start = m.pos
	m.voices = append(m.voices, vs)
	m.mu.Unlock()
}

// newVoiceState drops partials with an unknown waveform.
func (m *Mixer) newVoiceState(v Voice) *voiceState {
	vs := &voiceState{partials: make([]partialState, 0, len(v.Partials))}
	for _, p := range v.Partials {
		shape, ok := p.Waveform.shape()
		if !ok {
			continue
		}
		vs.partials = append(vs.partials, partialState{
			osc:  dsp.NewOscillator(shape, p.Frequency, m.sampleRate),
			env:  p.Envelope,
			stop: int64(p.Stop*float64(m.sampleRate) + 0.5),
		})
	}
	return vs
}

// Process renders len(dst) samples, overwriting dst. Voices whose partials
// have all stopped are released.
func (m *Mixer) Process(dst []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sr := float64(m.sampleRate)
	for i := range dst {
		var sum float64
		for _, vs := range m.voices {
			age := m.pos - vs.start
			for j := range vs.partials {
				ps := &vs.partials[j]
				if age >= ps.stop {
					continue
				}
				sum += ps.osc.Process() * ps.env.valueAtFast(float64(age)/sr)
			}
		}
		dst[i] = float32(dspcore.Clamp(dspcore.FlushDenormals(sum), -1, 1))
		m.pos++
	}

	live := m.voices[:0]
	for _, vs := range m.voices {
		if vs.done(m.pos) {
			continue
		}
		live = append(live, vs)
	}
	for i := len(live); i < len(m.voices); i++ {
		m.voices[i] = nil
	}
	m.voices = live
}

func (vs *voiceState) done(pos int64) bool {
	age := pos - vs.start
	for _, ps := range vs.partials {
		if age < ps.stop {
			return false
		}
	}
	return true
}

// Active returns the number of voices still sounding.
func (m *Mixer) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Position returns the number of samples rendered so far.
func (m *Mixer) Position() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// Render renders a single voice offline, from its start to its last stop.
func Render(v Voice, sampleRate int) []float32 {
	m := NewMixer(sampleRate)
	m.Add(v)
	n := int(v.Stop()*float64(sampleRate) + 0.5)
	out := make([]float32, n)
	m.Process(out)
	return out
}
