package learning

import (
	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/config"
	"github.com/domino14/tdl2048/ntuple"
)

// NewFromConfig builds a learner with the configured patterns, each at its
// own isomorphism level, under the configured memory ceiling.
func NewFromConfig(cfg *config.Config, t *board.RowTable) (*Learner, error) {
	tuples, err := cfg.Patterns()
	if err != nil {
		return nil, err
	}
	l := New(t)
	alloc := ntuple.NewAllocator(cfg.GetInt64(config.ConfigMemoryLimit))
	for _, tp := range tuples {
		if err := l.AddPattern(tp.Cells, tp.Isomorphism, alloc); err != nil {
			return nil, err
		}
	}
	return l, nil
}
