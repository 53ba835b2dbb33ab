package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/algo-solfege/internal/wavio"
	"github.com/cwbudde/algo-solfege/output"
	"github.com/cwbudde/algo-solfege/preset"
	"github.com/cwbudde/algo-solfege/tone"
)

func main() {
	// Command-line flags
	instrument := flag.String("instrument", string(tone.Piano), "Instrument: piano, guitar, flute, violin, organ")
	duration := flag.Float64("duration", tone.DefaultDuration, "Note duration in seconds")
	gap := flag.Float64("gap", 0.6, "Seconds between note onsets when rendering several notes")
	sampleRate := flag.Int("sample-rate", output.DefaultSampleRate, "Render sample rate in Hz")
	fileRate := flag.Int("file-rate", 0, "Sample rate of the written file (defaults to -sample-rate)")
	presetPath := flag.String("preset", "", "Preset JSON file with instrument overrides (optional)")
	out := flag.String("output", "output.wav", "Output WAV file path")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	args := flag.Args()
	if len(args) == 0 {
		args = []string{string(tone.La)}
	}
	notes := make([]tone.Note, 0, len(args))
	for _, arg := range args {
		n, err := tone.ParseNote(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		notes = append(notes, n)
	}

	in, err := tone.ParseInstrument(*instrument)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *sampleRate <= 0 || *gap < 0 || math.IsNaN(*gap) {
		fmt.Fprintf(os.Stderr, "Error: invalid -sample-rate or -gap\n")
		os.Exit(2)
	}

	presets := tone.DefaultPresets()
	if *presetPath != "" {
		presets, err = preset.LoadJSON(*presetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}

	synth := tone.New(nil, tone.WithPresets(presets), tone.WithLogger(log))
	if err := synth.SetInstrument(in); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	voices := make([]tone.Voice, 0, len(notes))
	for _, n := range notes {
		v, err := synth.Plan(n, *duration)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		voices = append(voices, v)
	}

	fmt.Printf("Rendering %s on %s, %.2fs per note at %d Hz...\n", joinNotes(notes), in, *duration, *sampleRate)

	samples := renderSequence(voices, *gap, *sampleRate)
	log.Debug("rendered", "frames", len(samples), "voices", len(voices))

	rate := *sampleRate
	if *fileRate > 0 && *fileRate != rate {
		res, err := wavio.Resample32(samples, rate, *fileRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resampling: %v\n", err)
			os.Exit(1)
		}
		samples = res
		rate = *fileRate
	}

	if err := wavio.Write(*out, samples, rate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames)\n", *out, len(samples))
}

// renderSequence starts voice i at i*gap seconds on one mixer and renders
// until the last voice has stopped.
func renderSequence(voices []tone.Voice, gap float64, sampleRate int) []float32 {
	const blockSize = 128
	m := tone.NewMixer(sampleRate)
	step := int64(gap*float64(sampleRate) + 0.5)

	var samples []float32
	block := make([]float32, blockSize)
	next := 0
	for next < len(voices) || m.Active() > 0 {
		if next < len(voices) && m.Position() >= int64(next)*step {
			m.Add(voices[next])
			next++
			continue
		}
		n := int64(blockSize)
		if next < len(voices) {
			n = min(n, int64(next)*step-m.Position())
		}
		m.Process(block[:n])
		samples = append(samples, block[:n]...)
	}
	return samples
}

func joinNotes(notes []tone.Note) string {
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = string(n)
	}
	return strings.Join(names, " ")
}
