// Package output resolves the concrete tone outputs: the audio device, a WAV
// recorder and a null sink.
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-solfege/tone"
)

// DefaultSampleRate is the mixer rate used when none is configured.
const DefaultSampleRate = 48000

// ErrUnknownBackend is returned by Resolve for an unsupported backend name.
var ErrUnknownBackend = errors.New("output: unknown backend")

var errClosed = errors.New("output: closed")

// Backend names accepted by Resolve.
const (
	BackendDevice = "device"
	BackendWAV    = "wav"
	BackendNull   = "null"
)

// Options configures Resolve.
type Options struct {
	SampleRate int
	Path       string // wav: output file
	FileRate   int    // wav: file sample rate, defaults to SampleRate
}

// Resolve maps a backend name to an opener. The output itself is opened
// later, by the synth, on the first note.
func Resolve(backend string, opts Options) (tone.Opener, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendDevice:
		return Device(opts.SampleRate), nil
	case BackendWAV:
		if opts.Path == "" {
			return nil, fmt.Errorf("wav backend requires an output path")
		}
		return WAV(opts.Path, opts.SampleRate, opts.FileRate), nil
	case BackendNull:
		return func() (tone.Output, error) { return NewNull(), nil }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
