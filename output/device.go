//go:build !headless

package output

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-solfege/tone"
)

// oto allows a single context per process. It is created on first use and
// suspended while no output holds a reference.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRefs *deviceRefs
	otoRate int
	otoErr  error
)

// acquireContext returns the process context, resuming it for the first
// live output.
func acquireContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = sampleRate
		otoRefs = &deviceRefs{resume: ctx.Resume, suspend: ctx.Suspend}
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if sampleRate != otoRate {
		return nil, fmt.Errorf("audio device already running at %d Hz", otoRate)
	}
	if err := otoRefs.acquire(); err != nil {
		return nil, err
	}
	return otoCtx, nil
}

type deviceOutput struct {
	mu     sync.Mutex
	mixer  *tone.Mixer
	player *oto.Player
}

// Device returns an opener for the default audio device.
func Device(sampleRate int) tone.Opener {
	return func() (tone.Output, error) {
		ctx, err := acquireContext(sampleRate)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", tone.ErrUnavailable, err)
		}
		d := &deviceOutput{mixer: tone.NewMixer(sampleRate)}
		d.player = ctx.NewPlayer(newStreamReader(d.mixer))
		// ~10ms of float32 mono keeps note onsets tight.
		d.player.SetBufferSize(sampleRate / 100 * 4)
		d.player.Play()
		return d, nil
	}
}

func (d *deviceOutput) Start(v tone.Voice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return errClosed
	}
	d.mixer.Add(v)
	return nil
}

func (d *deviceOutput) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	if rerr := otoRefs.release(); err == nil {
		err = rerr
	}
	return err
}
