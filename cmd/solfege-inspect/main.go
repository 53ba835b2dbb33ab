package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/algo-solfege/analysis"
	"github.com/cwbudde/algo-solfege/internal/wavio"
)

func main() {
	peaks := flag.Int("peaks", 8, "Number of spectral peaks to report")
	rate := flag.Int("rate", 0, "Resample to this rate before analysis (0 keeps the file rate)")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] file.wav...\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := inspect(path, *peaks, *rate, log); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspect(path string, maxPeaks, rate int, log *slog.Logger) error {
	x, info, err := wavio.Read(path)
	if err != nil {
		return err
	}
	log.Debug("read", "path", path, "frames", info.Frames, "sample_rate", info.SampleRate,
		"channels", info.Channels, "bits", info.BitDepth)
	sr := info.SampleRate
	if rate > 0 && rate != sr {
		x, err = wavio.Resample(x, sr, rate)
		if err != nil {
			return fmt.Errorf("resample: %w", err)
		}
		sr = rate
	}

	r, err := analysis.Inspect(x, sr, maxPeaks)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d-bit, %d ch, %d frames @ %d Hz (%.2fs)\n",
		path, info.BitDepth, info.Channels, info.Frames, info.SampleRate, info.Seconds())
	if sr != info.SampleRate {
		fmt.Printf("  analysed at %d Hz (%d frames)\n", r.SampleRate, r.Frames)
	}
	fmt.Printf("  level: peak %.1f dBFS  rms %.1f dBFS  decay %.1f dB/s\n", r.PeakDBFS, r.RMSDBFS, r.DecayDBPerS)
	if r.Note != "" {
		fmt.Printf("  note:  %s (%+.1f cents)\n", r.Note, r.Cents)
	}
	if len(r.Peaks) > 0 {
		fmt.Printf("  %10s %8s %6s %8s\n", "freq(Hz)", "dB", "note", "cents")
		for _, p := range r.Peaks {
			n, cents := analysis.NearestNote(p.Freq)
			fmt.Printf("  %10.2f %8.1f %6s %+8.1f\n", p.Freq, p.DB, n, cents)
		}
	}
	fmt.Println()
	return nil
}
