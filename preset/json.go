package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/cwbudde/algo-solfege/tone"
)

// File is the JSON schema for instrument preset overrides.
type File struct {
	Instruments map[string]InstrumentSetting `json:"instruments"`
}

// InstrumentSetting is a partial override of one instrument preset.
type InstrumentSetting struct {
	Waveform  string    `json:"waveform"`
	Attack    *float64  `json:"attack"`
	Decay     *float64  `json:"decay"`
	Sustain   *float64  `json:"sustain"`
	Release   *float64  `json:"release"`
	Volume    *float64  `json:"volume"`
	Harmonics []float64 `json:"harmonics"`
}

// LoadJSON loads a preset file and applies it on top of the built-in
// presets.
func LoadJSON(path string) (tone.PresetTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	t := tone.DefaultPresets()
	if err := ApplyFile(t, &f); err != nil {
		return nil, err
	}
	return t, nil
}

// ApplyFile applies a parsed preset file onto an existing table. The table
// is left unchanged when any entry is invalid.
func ApplyFile(dst tone.PresetTable, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination table")
	}
	if f == nil || len(f.Instruments) == 0 {
		return nil
	}

	names := make([]string, 0, len(f.Instruments))
	for k := range f.Instruments {
		names = append(names, k)
	}
	sort.Strings(names)

	staged := make(tone.PresetTable, len(names))
	for _, name := range names {
		in, err := tone.ParseInstrument(name)
		if err != nil {
			return fmt.Errorf("instruments[%q]: %w", name, err)
		}
		p, ok := dst[in]
		if !ok {
			return fmt.Errorf("instruments[%q]: no base preset", name)
		}
		override := f.Instruments[name]
		if override.Waveform != "" {
			w, err := tone.ParseWaveform(override.Waveform)
			if err != nil {
				return fmt.Errorf("instruments[%q].waveform: %w", name, err)
			}
			p.Waveform = w
		}
		if override.Attack != nil {
			p.Attack = *override.Attack
		}
		if override.Decay != nil {
			p.Decay = *override.Decay
		}
		if override.Sustain != nil {
			p.Sustain = *override.Sustain
		}
		if override.Release != nil {
			p.Release = *override.Release
		}
		if override.Volume != nil {
			p.Volume = *override.Volume
		}
		if override.Harmonics != nil {
			p.Harmonics = append([]float64(nil), override.Harmonics...)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("instruments[%q]: %w", name, err)
		}
		staged[in] = p
	}
	for in, p := range staged {
		dst[in] = p
	}
	return nil
}
