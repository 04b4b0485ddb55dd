package learning

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tdl2048/ntuple"
)

var ErrFeatureCount = errors.New("unexpected feature count")

// Save writes the weight tables: a uint64 feature count followed by each
// feature in insertion order.
func (l *Learner) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(l.feats))); err != nil {
		return err
	}
	for _, f := range l.feats {
		if err := ntuple.WriteFeature(w, f); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name(), err)
		}
	}
	return nil
}

// Load reads weight tables written by Save. The features must already be
// added, with the same names and sizes. Nothing is applied unless the
// whole file matches.
func (l *Learner) Load(r io.Reader) error {
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("reading feature count: %w", err)
	}
	if count != uint64(len(l.feats)) {
		return fmt.Errorf("%w: %d (%d is expected)", ErrFeatureCount, count, len(l.feats))
	}
	loaded := make([][]float32, len(l.feats))
	for i, f := range l.feats {
		weights, err := ntuple.ReadWeights(r, f)
		if err != nil {
			return err
		}
		loaded[i] = weights
	}
	for i, f := range l.feats {
		copy(f.Weights(), loaded[i])
	}
	return nil
}

// SaveFile saves the weights to path.
func (l *Learner) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := l.Save(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("features", len(l.feats)).
		Str("digest", l.Digest()).Msg("saved-weights")
	return nil
}

// LoadFile loads the weights from path. A missing file is not an error:
// training then starts from zero weights.
func (l *Learner) LoadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("weights-file-not-found-starting-fresh")
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if err := l.Load(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("features", len(l.feats)).
		Str("digest", l.Digest()).Msg("loaded-weights")
	return nil
}

// Digest hashes all the weights, to check that two runs or two files
// agree.
func (l *Learner) Digest() string {
	h := xxhash.New()
	buf := make([]byte, 0, 1<<16)
	for _, f := range l.feats {
		h.Write([]byte(f.Name()))
		for _, w := range f.Weights() {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(w))
			if len(buf) == cap(buf) {
				h.Write(buf)
				buf = buf[:0]
			}
		}
		h.Write(buf)
		buf = buf[:0]
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
