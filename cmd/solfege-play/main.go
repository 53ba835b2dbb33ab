package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cwbudde/algo-solfege/internal/config"
	"github.com/cwbudde/algo-solfege/output"
	"github.com/cwbudde/algo-solfege/preset"
	"github.com/cwbudde/algo-solfege/tone"
)

func main() {
	cfg := config.Load()

	instrument := flag.String("instrument", cfg.Instrument, "Instrument: piano, guitar, flute, violin, organ")
	duration := flag.Float64("duration", tone.DefaultDuration, "Note duration in seconds")
	gap := flag.Duration("gap", 600*time.Millisecond, "Time between note onsets")
	backend := flag.String("backend", cfg.Backend, "Output backend: device, wav, null")
	out := flag.String("output", "solfege.wav", "Output WAV path for -backend wav")
	sampleRate := flag.Int("sample-rate", cfg.SampleRate, "Mixer sample rate in Hz")
	presetPath := flag.String("preset", cfg.PresetPath, "Preset JSON file with instrument overrides (optional)")
	save := flag.Bool("save", false, "Store -instrument, -backend, -sample-rate and -preset as defaults")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] note...\n\nNotes: %s\n\nFlags:\n", os.Args[0], noteList())
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	notes := make([]tone.Note, 0, flag.NArg())
	for _, arg := range flag.Args() {
		n, err := tone.ParseNote(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		notes = tone.Notes()
	}

	in, err := tone.ParseInstrument(*instrument)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
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

	open, err := output.Resolve(*backend, output.Options{SampleRate: *sampleRate, Path: *out})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if *save {
		cfg.Instrument = string(in)
		cfg.Backend = *backend
		cfg.SampleRate = *sampleRate
		cfg.PresetPath = *presetPath
		if err := config.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
	}

	synth := tone.New(open, tone.WithPresets(presets), tone.WithLogger(log))
	if err := synth.SetInstrument(in); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Debug("playing", "instrument", in, "notes", len(notes), "duration", *duration, "gap", *gap, "backend", *backend)
	fmt.Printf("Playing %s on %s\n", joinNotes(notes), in)

	playErr := synth.PlaySequence(ctx, notes, *duration, *gap)
	if playErr == nil {
		// Voices are fire-and-forget; let the last one ring out.
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(*duration * float64(time.Second))):
		}
	}
	if err := synth.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing output: %v\n", err)
		os.Exit(1)
	}
	if playErr != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", playErr)
		os.Exit(1)
	}
	if strings.EqualFold(*backend, output.BackendWAV) {
		fmt.Printf("Wrote %s\n", *out)
	}
}

func noteList() string {
	return joinNotes(tone.Notes())
}

func joinNotes(notes []tone.Note) string {
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = string(n)
	}
	return strings.Join(names, " ")
}
