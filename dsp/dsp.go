package dsp

import "math"

// Shape selects the periodic function evaluated by an Oscillator.
type Shape int

const (
	ShapeSine Shape = iota
	ShapeTriangle
	ShapeSquare
	ShapeSawtooth
)

// Oscillator is a phase accumulator producing one band of a fixed waveform.
// All shapes start at 0 (or the rising edge for square) and have unit peak.
type Oscillator struct {
	shape Shape
	phase float64 // normalized, [0,1)
	step  float64 // phase increment per sample
}

// NewOscillator creates an oscillator at freq Hz for the given sample rate.
func NewOscillator(shape Shape, freq float64, sampleRate int) *Oscillator {
	o := &Oscillator{shape: shape}
	if sampleRate > 0 {
		o.step = freq / float64(sampleRate)
	}
	return o
}

// Process returns the next sample and advances the phase.
func (o *Oscillator) Process() float64 {
	y := Eval(o.shape, o.phase)
	o.phase += o.step
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return y
}

// Eval evaluates a shape at a normalized phase p in [0,1).
func Eval(shape Shape, p float64) float64 {
	switch shape {
	case ShapeTriangle:
		switch {
		case p < 0.25:
			return 4 * p
		case p < 0.75:
			return 2 - 4*p
		default:
			return 4*p - 4
		}
	case ShapeSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case ShapeSawtooth:
		if p < 0.5 {
			return 2 * p
		}
		return 2*p - 2
	default:
		return math.Sin(2 * math.Pi * p)
	}
}
