// Package record reads and writes sample files in the TFRecord wire format.
//
// Each record is framed as
//
//	uint64 length (little-endian)
//	uint32 masked crc32c of the length bytes
//	byte   payload[length]
//	uint32 masked crc32c of the payload
//
// with the Castagnoli polynomial and the standard mask rotation.
package record

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/drakos74/planet-vision/internal/model"
)

const maskDelta = 0xa282ead8

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var (
	// CorruptErr marks a record that fails its checksum.
	CorruptErr = errors.New("corrupt record")
)

// mask rotates the crc right by 15 bits and adds the delta,
// so that checksums of strings containing embedded crcs stay distinct.
func mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

func checksum(b []byte) uint32 {
	return mask(crc32.Checksum(b, castagnoli))
}

// Writer frames payloads into an io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter creates a record writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write frames the given payload as one record.
func (w *Writer) Write(payload []byte) error {

	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(payload)))
	binary.LittleEndian.PutUint32(header[8:], checksum(header[:8]))

	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], checksum(payload))

	if _, err := w.w.Write(header[:]); err != nil {
		return fmt.Errorf("could not write record header: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("could not write record payload: %w", err)
	}
	if _, err := w.w.Write(footer[:]); err != nil {
		return fmt.Errorf("could not write record footer: %w", err)
	}
	return nil
}

// WriteSample frames the json encoding of the given sample.
func (w *Writer) WriteSample(sample model.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("could not encode sample '%s': %w", sample.ID, err)
	}
	return w.Write(payload)
}

// Reader unframes records from an io.Reader.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a record reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the next payload.
// It returns io.EOF at a clean end of stream and CorruptErr when a
// checksum does not match.
func (r *Reader) Read() ([]byte, error) {

	var header [12]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("could not read record header: %w", err)
	}

	if got, want := checksum(header[:8]), binary.LittleEndian.Uint32(header[8:]); got != want {
		return nil, fmt.Errorf("length checksum mismatch %#x != %#x: %w", got, want, CorruptErr)
	}

	length := binary.LittleEndian.Uint64(header[:8])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("could not read record payload: %w", err)
	}

	var footer [4]byte
	if _, err := io.ReadFull(r.r, footer[:]); err != nil {
		return nil, fmt.Errorf("could not read record footer: %w", err)
	}
	if got, want := checksum(payload), binary.LittleEndian.Uint32(footer[:]); got != want {
		return nil, fmt.Errorf("payload checksum mismatch %#x != %#x: %w", got, want, CorruptErr)
	}

	return payload, nil
}

// ReadSample decodes the next record payload into a sample.
func (r *Reader) ReadSample() (model.Sample, error) {
	payload, err := r.Read()
	if err != nil {
		return model.Sample{}, err
	}
	var sample model.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return model.Sample{}, fmt.Errorf("could not decode sample: %w", err)
	}
	return sample, nil
}
