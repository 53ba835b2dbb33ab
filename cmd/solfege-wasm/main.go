//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-solfege/tone"
)

const maxBlock = 128

var (
	globalMixer  *tone.Mixer
	globalSynth  *tone.Synth
	outputBuffer []float32
)

// mixerOutput feeds voices into the worklet mixer.
type mixerOutput struct {
	m *tone.Mixer
}

func (o mixerOutput) Start(v tone.Voice) error {
	o.m.Add(v)
	return nil
}

func (o mixerOutput) Close() error { return nil }

func main() {
	exports := map[string]func(js.Value, []js.Value) interface{}{
		"wasmInit":          wasmInit,
		"wasmSetInstrument": wasmSetInstrument,
		"wasmGetInstrument": wasmGetInstrument,
		"wasmPlayNote":      wasmPlayNote,
		"wasmProcessBlock":  wasmProcessBlock,
	}
	for name, fn := range exports {
		js.Global().Set(name, js.FuncOf(fn))
	}
	println("solfege synth ready")
	select {}
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate := args[0].Int()

	globalMixer = tone.NewMixer(sampleRate)
	globalSynth = tone.New(func() (tone.Output, error) {
		return mixerOutput{m: globalMixer}, nil
	})
	outputBuffer = make([]float32, maxBlock)

	println("Synth initialized at", sampleRate, "Hz")
	return nil
}

func wasmSetInstrument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return false
	}
	in, err := tone.ParseInstrument(args[0].String())
	if err != nil {
		println(err.Error())
		return false
	}
	return globalSynth.SetInstrument(in) == nil
}

func wasmGetInstrument(this js.Value, args []js.Value) interface{} {
	if globalSynth == nil {
		return ""
	}
	return string(globalSynth.Instrument())
}

func wasmPlayNote(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return false
	}
	note, err := tone.ParseNote(args[0].String())
	if err != nil {
		println(err.Error())
		return false
	}
	duration := tone.DefaultDuration
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		duration = args[1].Float()
	}
	if err := globalSynth.PlayNote(note, duration); err != nil {
		println(err.Error())
		return false
	}
	return true
}

// wasmProcessBlock renders up to 128 frames and copies them as float32
// little-endian bytes into the Uint8Array passed as the second argument.
// It returns the number of frames written.
func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalMixer == nil {
		return 0
	}
	numFrames := min(args[0].Int(), maxBlock)
	if numFrames < 1 {
		return 0
	}
	dst := args[1]
	if n := dst.Get("byteLength").Int() / 4; n < numFrames {
		numFrames = n
	}

	block := outputBuffer[:numFrames]
	globalMixer.Process(block)
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&block[0])), numFrames*4)
	js.CopyBytesToJS(dst, raw)
	return numFrames
}
