package ntuple

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// The weight table of one feature is stored little-endian as
//
//	uint32   name length
//	[]byte   name
//	uint64   weight count
//	[]float32 weights

// WriteFeature writes f's name and weights to w.
func WriteFeature(w io.Writer, f Feature) error {
	name := []byte(f.Name())
	if err := binary.Write(w, binary.LittleEndian, uint32(len(name))); err != nil {
		return err
	}
	if _, err := w.Write(name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(f.Size())); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, f.Weights())
}

// ReadWeights reads one feature record from r and checks it against f.
// The weights are returned in a fresh slice; f is not modified.
func ReadWeights(r io.Reader, f Feature) ([]float32, error) {
	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, unexpectedEOF(err)
	}
	expected := f.Name()
	if int(nameLen) != len(expected) {
		// Don't trust the length enough to allocate for it.
		return nil, fmt.Errorf("%w: name of length %d (%s is expected)", ErrFeatureName, nameLen, expected)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, unexpectedEOF(err)
	}
	if string(name) != expected {
		return nil, fmt.Errorf("%w: %s (%s is expected)", ErrFeatureName, name, expected)
	}
	var size uint64
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, unexpectedEOF(err)
	}
	if size != uint64(f.Size()) {
		return nil, fmt.Errorf("%w: %d for %s (%d is expected)", ErrFeatureSize, size, expected, f.Size())
	}
	weights := make([]float32, size)
	if err := binary.Read(r, binary.LittleEndian, weights); err != nil {
		return nil, unexpectedEOF(err)
	}
	return weights, nil
}

// ReadFeature reads one feature record from r into f. f is only modified
// if the whole record was read and matched.
func ReadFeature(r io.Reader, f Feature) error {
	weights, err := ReadWeights(r, f)
	if err != nil {
		return err
	}
	copy(f.Weights(), weights)
	return nil
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected end of binary: %w", io.ErrUnexpectedEOF)
	}
	return err
}
