package output

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cwbudde/algo-solfege/tone"
)

// streamReader exposes a mixer as an endless little-endian float32 stream.
type streamReader struct {
	m   *tone.Mixer
	buf []float32
}

func newStreamReader(m *tone.Mixer) *streamReader {
	return &streamReader{m: m, buf: make([]float32, 1024)}
}

// Read implements io.Reader. It always fills whole samples.
func (r *streamReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n == 0 {
		return 0, io.ErrShortBuffer
	}
	if len(r.buf) < n {
		r.buf = make([]float32, n)
	}
	samples := r.buf[:n]
	r.m.Process(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}
