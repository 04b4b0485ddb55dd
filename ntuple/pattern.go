package ntuple

import (
	"fmt"
	"io"
	"strings"

	"github.com/domino14/tdl2048/board"
)

// MaxTupleLength bounds the cells in a pattern; 16^8 weights is already
// far past any sensible memory limit.
const MaxTupleLength = 8

// Isomorphism levels.
const (
	IsoNone     = 1 // the pattern as given
	IsoRotate   = 4 // plus its rotations
	IsoDihedral = 8 // plus rotations of its mirror image
)

// identity is a board whose cell p holds the value p. Transforming it
// shows where each cell ends up.
const identity board.Board = 0xfedcba9876543210

// Pattern is an n-tuple feature. Its weights are shared by up to eight
// symmetric copies of the tuple.
type Pattern struct {
	isom   [][]int
	weight []float32
}

// NewPattern builds a pattern over cells, sharing its weights across iso
// symmetric variants (1, 4 or 8).
func NewPattern(cells []int, iso int, alloc *Allocator) (*Pattern, error) {
	if len(cells) == 0 {
		return nil, ErrEmptyPattern
	}
	if len(cells) > MaxTupleLength {
		return nil, fmt.Errorf("%w: %d cells, at most %d", ErrTupleLength, len(cells), MaxTupleLength)
	}
	for _, c := range cells {
		if c < 0 || c >= board.NumCells {
			return nil, fmt.Errorf("%w: %d", ErrCellRange, c)
		}
	}
	if iso != IsoNone && iso != IsoRotate && iso != IsoDihedral {
		return nil, fmt.Errorf("%w: got %d", ErrIsomorphism, iso)
	}
	weight, err := alloc.Alloc(1 << (len(cells) * 4))
	if err != nil {
		return nil, err
	}
	return &Pattern{isom: isomorphisms(cells, iso), weight: weight}, nil
}

// Applying [0 1 2 3] to a board rotated clockwise reads the same tiles as
// applying [12 8 4 0] to the original, so each variant is found by
// transforming the identity board and reading off the tuple's cells.
func isomorphisms(cells []int, iso int) [][]int {
	isom := make([][]int, iso)
	for i := 0; i < iso; i++ {
		idx := identity
		if i >= 4 {
			idx.Mirror()
		}
		idx.Rotate(i)
		isom[i] = make([]int, len(cells))
		for j, t := range cells {
			isom[i][j] = idx.At(t)
		}
	}
	return isom
}

func (p *Pattern) Estimate(b board.Board) float64 {
	value := 0.0
	for _, iso := range p.isom {
		value += float64(p.weight[indexOf(iso, b)])
	}
	return value
}

// Update spreads u evenly over the variants and returns the sum of the
// weights it touched, each read right after its own share is added. When
// variants of a symmetric board share a weight, the earlier reads miss the
// later shares.
func (p *Pattern) Update(b board.Board, u float64) float64 {
	adjust := float32(u / float64(len(p.isom)))
	value := 0.0
	for _, iso := range p.isom {
		index := indexOf(iso, b)
		p.weight[index] += adjust
		value += float64(p.weight[index])
	}
	return value
}

func (p *Pattern) Name() string {
	return fmt.Sprintf("%d-tuple pattern %s", len(p.isom[0]), nameOf(p.isom[0]))
}

func (p *Pattern) Size() int {
	return len(p.weight)
}

func (p *Pattern) Weights() []float32 {
	return p.weight
}

// Isomorphisms returns the cell lists of the active variants. The first
// is the tuple as given.
func (p *Pattern) Isomorphisms() [][]int {
	return p.isom
}

func (p *Pattern) Dump(b board.Board, w io.Writer) {
	for _, iso := range p.isom {
		index := indexOf(iso, b)
		tiles := make([]int, len(iso))
		for i := range iso {
			tiles[i] = (index >> (4 * i)) & 0x0f
		}
		fmt.Fprintf(w, "#%s[%s] = %g\n", nameOf(iso), nameOf(tiles), p.weight[index])
	}
}

// indexOf packs the tiles at cells into an index, the first cell in the
// lowest nibble.
func indexOf(cells []int, b board.Board) int {
	index := 0
	for i, pos := range cells {
		index |= b.At(pos) << (4 * i)
	}
	return index
}

func nameOf(cells []int) string {
	var sb strings.Builder
	for _, c := range cells {
		fmt.Fprintf(&sb, "%x", c)
	}
	return sb.String()
}
