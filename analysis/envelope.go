package analysis

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// RMSEnvelope returns the RMS of successive frames spaced hop apart.
func RMSEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = RMS(x[start : start+frame])
	}
	return out
}

// minLevel keeps dB values finite for silent frames and empty bins.
const minLevel = 1e-12

// LinToDB converts a linear magnitude to dB, floored at -240 dB.
func LinToDB(x float64) float64 {
	return dspcore.LinearToDB(math.Max(x, minLevel))
}

// DecaySlopeDBPerS fits a line to the envelope after its peak, stopping
// 60 dB below it. It returns NaN when there is too little tail to fit.
func DecaySlopeDBPerS(env []float64, hopSec float64) float64 {
	if len(env) < 8 || hopSec <= 0 {
		return math.NaN()
	}
	peak := -math.MaxFloat64
	peakIdx := 0
	for i, v := range env {
		if db := LinToDB(v); db > peak {
			peak = db
			peakIdx = i
		}
	}
	start := peakIdx + 1
	if start >= len(env)-4 {
		return math.NaN()
	}
	end := len(env)
	for i := start; i < len(env); i++ {
		if LinToDB(env[i]) < peak-60.0 {
			end = i
			break
		}
	}
	if end-start < 6 {
		return math.NaN()
	}

	var sx, sy, sxx, sxy float64
	n := float64(end - start)
	for i := start; i < end; i++ {
		x := float64(i-start) * hopSec
		y := LinToDB(env[i])
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if math.Abs(den) < 1e-12 {
		return math.NaN()
	}
	return (n*sxy - sx*sy) / den
}

// Report summarizes a rendered tone.
type Report struct {
	SampleRate  int
	Frames      int
	Seconds     float64
	PeakDBFS    float64
	RMSDBFS     float64
	DecayDBPerS float64
	Peaks       []Peak
	Note        string
	Cents       float64
}

// Inspect measures x. The note is taken from the lowest of the strongest
// peaks, which is the fundamental for every built-in instrument.
func Inspect(x []float64, sampleRate int, maxPeaks int) (Report, error) {
	r := Report{SampleRate: sampleRate, Frames: len(x)}
	if sampleRate <= 0 || len(x) == 0 {
		return r, nil
	}
	r.Seconds = float64(len(x)) / float64(sampleRate)
	var peak float64
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	r.PeakDBFS = LinToDB(peak)
	r.RMSDBFS = LinToDB(RMS(x))

	const frame, hop = 1024, 256
	r.DecayDBPerS = DecaySlopeDBPerS(RMSEnvelope(x, frame, hop), float64(hop)/float64(sampleRate))

	peaks, err := Peaks(x, sampleRate, maxPeaks)
	if err != nil {
		return r, err
	}
	r.Peaks = peaks
	if len(peaks) > 0 {
		f0 := peaks[0].Freq
		for _, p := range peaks {
			if p.DB > -30 && p.Freq < f0 {
				f0 = p.Freq
			}
		}
		note, cents := NearestNote(f0)
		r.Note, r.Cents = string(note), cents
	}
	return r, nil
}
