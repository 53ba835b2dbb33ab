// Package wavio reads and writes the mono WAV files used for offline
// rendering and inspection.
package wavio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ErrInvalidRate is returned for non-positive sample rates.
var ErrInvalidRate = errors.New("wavio: invalid sample rate")

// Info describes a decoded file before downmixing.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Frames     int
}

// Seconds returns the file duration.
func (i Info) Seconds() float64 {
	if i.SampleRate <= 0 {
		return 0
	}
	return float64(i.Frames) / float64(i.SampleRate)
}

// Read decodes path to normalized mono samples. Multichannel files are
// downmixed by averaging; Info keeps the original layout.
func Read(path string) ([]float64, Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Info{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, Info{}, fmt.Errorf("%s: not a wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, Info{}, fmt.Errorf("%s: %w", path, err)
	}
	if buf == nil || buf.Format == nil {
		return nil, Info{}, fmt.Errorf("%s: missing format", path)
	}
	info := Info{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   int(dec.BitDepth),
	}
	if info.Channels < 1 {
		return nil, info, fmt.Errorf("%s: no channels", path)
	}
	if info.SampleRate <= 0 {
		return nil, info, fmt.Errorf("%s: %w %d", path, ErrInvalidRate, info.SampleRate)
	}
	info.Frames = len(buf.Data) / info.Channels
	return downmix(buf.Data, info.Channels, info.Frames), info, nil
}

func downmix(data []float32, channels, frames int) []float64 {
	out := make([]float64, frames)
	scale := 1 / float64(channels)
	for i := range out {
		frame := data[i*channels : (i+1)*channels]
		var sum float64
		for _, s := range frame {
			sum += float64(s)
		}
		out[i] = sum * scale
	}
	return out
}

// Resample converts in from fromRate to toRate. Equal rates return in
// unchanged.
func Resample(in []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, fromRate, toRate)
	}
	if fromRate == toRate || len(in) == 0 {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// Resample32 is Resample for mixer output.
func Resample32(in []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate == toRate && fromRate > 0 {
		return in, nil
	}
	wide := make([]float64, len(in))
	for i, v := range in {
		wide[i] = float64(v)
	}
	res, err := Resample(wide, fromRate, toRate)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(res))
	for i, v := range res {
		out[i] = float32(v)
	}
	return out, nil
}

// Write stores mono samples as 16-bit PCM, creating parent directories.
func Write(path string, data []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, sampleRate)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.Float32Buffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
