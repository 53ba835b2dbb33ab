package tone

import (
	"math"
	"slices"

	"github.com/cwbudde/algo-approx"
)

// Floor is the smallest target of an exponential ramp. Exponential curves
// cannot reach zero, so silence is approximated by this level.
const Floor = 0.01

// RampKind selects how an envelope reaches an event's value.
type RampKind int

const (
	// SetValue jumps to the value at the event time.
	SetValue RampKind = iota
	// LinearRamp interpolates linearly from the previous event.
	LinearRamp
	// ExponentialRamp interpolates geometrically from the previous event.
	ExponentialRamp
)

// Event is one automation point of an Envelope.
type Event struct {
	Kind  RampKind
	Time  float64 // seconds from voice start
	Value float64
}

// Envelope is a gain automation timeline. Events are kept sorted by time;
// events sharing a time stay in insertion order.
type Envelope struct {
	Events []Event
}

// Add inserts an event, keeping the timeline ordered.
func (e *Envelope) Add(kind RampKind, t, v float64) {
	e.Events = append(e.Events, Event{Kind: kind, Time: t, Value: v})
	slices.SortStableFunc(e.Events, func(a, b Event) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
}

// ADSR builds the amplitude envelope of one oscillator with peak volume
// lasting duration seconds:
//
//	0 at t=0, linear to volume at attack, exponential to the sustain level
//	at attack+decay, a mild exponential sag to 80% of sustain at
//	max(duration-release, attack+decay), exponential to Floor at duration.
func ADSR(p Preset, volume, duration float64) Envelope {
	sustain := volume * p.Sustain
	ad := p.Attack + p.Decay

	var e Envelope
	e.Add(SetValue, 0, 0)
	e.Add(LinearRamp, p.Attack, volume)
	e.Add(ExponentialRamp, ad, math.Max(sustain, Floor))
	e.Add(ExponentialRamp, math.Max(duration-p.Release, ad), math.Max(sustain*0.8, Floor))
	e.Add(ExponentialRamp, duration, Floor)
	return e
}

// ValueAt returns the gain at t seconds.
func (e Envelope) ValueAt(t float64) float64 {
	return e.eval(t, math.Exp)
}

// valueAtFast is ValueAt with an approximate exponential, used per sample.
func (e Envelope) valueAtFast(t float64) float64 {
	return e.eval(t, fastExp)
}

func fastExp(x float64) float64 {
	return float64(approx.FastExp(float32(x)))
}

func (e Envelope) eval(t float64, exp func(float64) float64) float64 {
	var (
		prevT float64
		prevV float64
	)
	for _, ev := range e.Events {
		if t < ev.Time {
			switch ev.Kind {
			case LinearRamp:
				if ev.Time <= prevT {
					return prevV
				}
				frac := (t - prevT) / (ev.Time - prevT)
				return prevV + (ev.Value-prevV)*frac
			case ExponentialRamp:
				// No geometric path through zero or a sign change: hold.
				if ev.Time <= prevT || prevV == 0 || prevV*ev.Value < 0 {
					return prevV
				}
				frac := (t - prevT) / (ev.Time - prevT)
				return prevV * exp(frac*math.Log(ev.Value/prevV))
			default:
				return prevV
			}
		}
		prevT, prevV = ev.Time, ev.Value
	}
	return prevV
}
