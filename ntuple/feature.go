// Package ntuple implements the features of an n-tuple network: small
// weight tables, each indexed by the tiles at a fixed set of cells.
package ntuple

import (
	"errors"
	"io"

	"github.com/domino14/tdl2048/board"
)

var (
	ErrEmptyPattern = errors.New("no pattern defined")
	ErrCellRange    = errors.New("pattern cell out of range")
	ErrTupleLength  = errors.New("pattern too long")
	ErrIsomorphism  = errors.New("isomorphism level must be 1, 4, or 8")
	ErrMemoryLimit  = errors.New("memory limit exceeded")
	ErrFeatureName  = errors.New("unexpected feature")
	ErrFeatureSize  = errors.New("unexpected feature size")
)

// Feature is a weight table that contributes to a board's value.
type Feature interface {
	// Estimate returns this feature's contribution to the value of b.
	Estimate(b board.Board) float64
	// Update adjusts the weights of b by u and returns the updated
	// contribution.
	Update(b board.Board, u float64) float64
	// Name identifies the feature in weight files.
	Name() string
	Size() int
	Weights() []float32
	// Dump writes the weights that b touches.
	Dump(b board.Board, w io.Writer)
}
