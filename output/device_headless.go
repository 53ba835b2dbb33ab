//go:build headless

package output

import (
	"fmt"

	"github.com/cwbudde/algo-solfege/tone"
)

// Device reports the audio device as unavailable in headless builds.
func Device(sampleRate int) tone.Opener {
	return func() (tone.Output, error) {
		return nil, fmt.Errorf("%w: built without audio device support", tone.ErrUnavailable)
	}
}
