package tone

import "errors"

var (
	// ErrUnavailable means the platform audio output could not be opened.
	ErrUnavailable = errors.New("tone: audio output unavailable")

	// ErrInvalidDuration is returned for NaN or infinite note durations.
	ErrInvalidDuration = errors.New("tone: invalid duration")

	ErrUnknownNote       = errors.New("tone: unknown note")
	ErrUnknownInstrument = errors.New("tone: unknown instrument")
	ErrUnknownWaveform   = errors.New("tone: unknown waveform")
	ErrInvalidPreset     = errors.New("tone: invalid preset")
)
