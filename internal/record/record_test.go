package record

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/drakos74/planet-vision/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {

	payloads := [][]byte{
		[]byte("first"),
		{},
		[]byte("a longer payload with some structure {1,2,3}"),
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, payload := range payloads {
		assert.NoError(t, w.Write(payload))
	}

	r := NewReader(&buf)
	for _, expected := range payloads {
		payload, err := r.Read()
		assert.NoError(t, err)
		assert.Equal(t, string(expected), string(payload))
	}

	_, err := r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestFraming(t *testing.T) {

	var buf bytes.Buffer
	assert.NoError(t, NewWriter(&buf).Write([]byte("abc")))

	b := buf.Bytes()
	assert.Equal(t, 12+3+4, len(b))
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(b[:8]))
}

func TestCorruption(t *testing.T) {

	type test struct {
		flip int
	}

	tests := map[string]test{
		"length":           {flip: 3},
		"length-checksum":  {flip: 9},
		"payload":          {flip: 14},
		"payload-checksum": {flip: 16},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.NoError(t, NewWriter(&buf).Write([]byte("abc")))

			b := buf.Bytes()
			b[tt.flip] ^= 0xff

			_, err := NewReader(bytes.NewReader(b)).Read()
			assert.Error(t, err)
		})
	}
}

func TestSampleRoundTrip(t *testing.T) {

	sample := model.Sample{
		ID:      "train_42",
		Size:    2,
		Pixels:  []float64{0, 0.25, 0.5, 1, 0.75, 0.5, 0.25, 0, 1, 0.1, 0.2, 0.3},
		Weather: []float64{1, 0, 0, 0},
		Ground:  []float64{1, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	assert.NoError(t, sample.Validate())

	var buf bytes.Buffer
	assert.NoError(t, NewWriter(&buf).WriteSample(sample))

	decoded, err := NewReader(&buf).ReadSample()
	assert.NoError(t, err)
	assert.Equal(t, sample, decoded)
}
