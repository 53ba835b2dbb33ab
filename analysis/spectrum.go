// Package analysis inspects rendered tones: spectral peaks, loudness
// envelopes and the nearest solfège note.
package analysis

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-solfege/tone"
)

const (
	minFFTSize = 256
	maxFFTSize = 1 << 15
)

// Peak is a local maximum of the magnitude spectrum.
type Peak struct {
	Freq float64
	DB   float64 // relative to the strongest peak
}

// Spectrum returns the averaged Hann-windowed magnitude spectrum of x and
// the bin spacing in Hz. Frames overlap by half.
func Spectrum(x []float64, sampleRate int) ([]float64, float64, error) {
	size := fftSizeFor(len(x))
	if size == 0 || sampleRate <= 0 {
		return nil, 0, nil
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, 0, err
	}

	hann, err := window.Hann(size)
	if err != nil {
		return nil, 0, err
	}
	spec := make([]complex128, size/2+1)
	buf := make([]float64, size)
	mag := make([]float64, size/2+1)

	hop := size / 2
	frames := 0
	for pos := 0; pos+size <= len(x); pos += hop {
		for i := 0; i < size; i++ {
			buf[i] = x[pos+i] * hann[i]
		}
		plan.Forward(spec, buf)
		for k, m := range spectrum.Magnitude(spec) {
			mag[k] += m
		}
		frames++
	}
	scale := 1.0 / float64(frames)
	for k := range mag {
		mag[k] *= scale
	}
	return mag, float64(sampleRate) / float64(size), nil
}

// Peaks returns up to n spectral peaks within 60 dB of the strongest,
// loudest first. Frequencies are refined by parabolic interpolation.
func Peaks(x []float64, sampleRate int, n int) ([]Peak, error) {
	mag, binHz, err := Spectrum(x, sampleRate)
	if err != nil || len(mag) < 3 {
		return nil, err
	}
	var top float64
	for _, m := range mag[1:] {
		top = math.Max(top, m)
	}
	if top <= 0 {
		return nil, nil
	}
	floor := top * math.Pow(10, -60.0/20.0)

	var peaks []Peak
	for k := 1; k < len(mag)-1; k++ {
		if mag[k] < floor || mag[k] <= mag[k-1] || mag[k] < mag[k+1] {
			continue
		}
		peaks = append(peaks, Peak{
			Freq: (float64(k) + refinePeak(mag[k-1], mag[k], mag[k+1])) * binHz,
			DB:   LinToDB(mag[k]) - LinToDB(top),
		})
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].DB > peaks[j].DB })
	if n > 0 && len(peaks) > n {
		peaks = peaks[:n]
	}
	return peaks, nil
}

// refinePeak returns the parabolic offset in bins of a peak at b with
// neighbours a and c, fitted on the dB scale. The result is in [-0.5, 0.5].
func refinePeak(a, b, c float64) float64 {
	da, db, dc := LinToDB(a), LinToDB(b), LinToDB(c)
	den := da - 2*db + dc
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	return math.Max(-0.5, math.Min(0.5, 0.5*(da-dc)/den))
}

// NearestNote maps freq to the closest note of the scale and the offset
// from it in cents.
func NearestNote(freq float64) (tone.Note, float64) {
	if !(freq > 0) {
		return "", 0
	}
	var (
		best      tone.Note
		bestCents = math.Inf(1)
	)
	for _, n := range tone.Notes() {
		c := 1200 * math.Log2(freq/n.Frequency())
		if math.Abs(c) < math.Abs(bestCents) {
			best, bestCents = n, c
		}
	}
	return best, bestCents
}

func fftSizeFor(n int) int {
	if n < minFFTSize {
		return 0
	}
	size := minFFTSize
	for size*2 <= n && size*2 <= maxFFTSize {
		size *= 2
	}
	return size
}
