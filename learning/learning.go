// Package learning holds the n-tuple network value function and the TD(0)
// afterstate learning rule that trains it.
package learning

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/move"
	"github.com/domino14/tdl2048/ntuple"
)

// DefaultAlpha is the learning rate used by the reference trainer.
const DefaultAlpha = 0.1

// DefaultNetwork is the 4x6-tuple network.
var DefaultNetwork = [][]int{
	{0, 1, 2, 3, 4, 5},
	{4, 5, 6, 7, 8, 9},
	{0, 1, 2, 4, 5, 6},
	{4, 5, 6, 8, 9, 10},
}

// Learner is a value function over afterstates: the sum of its features.
// It is owned by a single training loop and is not safe for concurrent
// updates.
type Learner struct {
	feats []ntuple.Feature
	table *board.RowTable
}

func New(t *board.RowTable) *Learner {
	return &Learner{table: t}
}

// AddFeature appends a feature. Insertion order is the order of the
// weight file.
func (l *Learner) AddFeature(f ntuple.Feature) {
	l.feats = append(l.feats, f)
	log.Info().Str("feature", f.Name()).Int("size", f.Size()).
		Str("memory", memoryString(int64(f.Size())*4)).
		Msg("added-feature")
}

// AddPattern adds a pattern over cells whose weights are shared by iso
// symmetric variants.
func (l *Learner) AddPattern(cells []int, iso int, alloc *ntuple.Allocator) error {
	p, err := ntuple.NewPattern(cells, iso, alloc)
	if err != nil {
		return fmt.Errorf("pattern %v: %w", cells, err)
	}
	l.AddFeature(p)
	return nil
}

// AddPatterns adds one pattern per tuple, all at the same isomorphism
// level.
func (l *Learner) AddPatterns(tuples [][]int, iso int, alloc *ntuple.Allocator) error {
	for _, cells := range tuples {
		if err := l.AddPattern(cells, iso, alloc); err != nil {
			return err
		}
	}
	return nil
}

func (l *Learner) Features() []ntuple.Feature {
	return l.feats
}

// Estimate returns the value of b.
func (l *Learner) Estimate(b board.Board) float64 {
	return lo.SumBy(l.feats, func(f ntuple.Feature) float64 {
		return f.Estimate(b)
	})
}

// Update splits u evenly over the features and returns the new value of b.
func (l *Learner) Update(b board.Board, u float64) float64 {
	adjust := u / float64(len(l.feats))
	return lo.SumBy(l.feats, func(f ntuple.Feature) float64 {
		return f.Update(b, adjust)
	})
}

// SelectBestMove evaluates the four actions in opcode order and returns
// the one with the highest reward plus afterstate value; earlier opcodes
// win ties. If no action is legal the returned move is invalid.
func (l *Learner) SelectBestMove(b board.Board) (*move.Move, error) {
	best := move.NewTerminal(b)
	for op := board.OpUp; op <= board.OpLeft; op++ {
		mv := move.New(b, op, l.table)
		ok, err := mv.Valid()
		if err != nil {
			return nil, err
		}
		if ok {
			mv.SetValue(float64(mv.Reward()) + l.Estimate(mv.Afterstate()))
			// A blown-up value function shows up here first.
			if _, err := mv.Valid(); err != nil {
				return nil, err
			}
			if mv.Value() > best.Value() {
				best = mv
			}
		}
		log.Trace().Msgf("test %v", mv)
	}
	return best, nil
}

// LearnFromEpisode runs the TD(0) backward update over one episode.
//
// An episode with three states
//
//	s0 --(a0,r0)--> s0' --(popup)--> s1 --(a1,r1)--> s1' --(popup)--> s2
//
// is recorded as [ (s0,s0',a0,r0), (s1,s1',a1,r1), (s2,x,x,x) ]; the last
// record holds only the terminal state and is skipped.
func (l *Learner) LearnFromEpisode(path []*move.Move, alpha float64) {
	if len(path) == 0 {
		return
	}
	target := 0.0
	for i := len(path) - 2; i >= 0; i-- {
		m := path[i]
		err := target - l.Estimate(m.Afterstate())
		target = float64(m.Reward()) + l.Update(m.Afterstate(), alpha*err)
		log.Trace().Float64("error", err).Stringer("afterstate", m.Afterstate()).Msg("update")
	}
}

// Dump writes the value of b and the weights each feature reads for it.
func (l *Learner) Dump(b board.Board, w io.Writer) {
	fmt.Fprintf(w, "%s\nestimate = %g\n", b.ToDisplayText(), l.Estimate(b))
	for _, f := range l.feats {
		f.Dump(b, w)
	}
}

func memoryString(usage int64) string {
	switch {
	case usage >= 1<<30:
		return fmt.Sprintf("%dGB", usage>>30)
	case usage >= 1<<20:
		return fmt.Sprintf("%dMB", usage>>20)
	case usage >= 1<<10:
		return fmt.Sprintf("%dKB", usage>>10)
	}
	return fmt.Sprintf("%dB", usage)
}
