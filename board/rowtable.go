package board

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// NumRows is the number of distinct 16-bit rows.
const NumRows = 1 << 16

// RowEntry holds the precomputed outcome of sliding one 16-bit row.
type RowEntry struct {
	Left  uint16
	Right uint16
	Score int
}

// RowTable is a perfect-hash table over every possible row. Each of the
// four row slides in a board move is one lookup into it.
type RowTable [NumRows]RowEntry

// BuildRowTable computes the outcome of every row. It is read-only
// afterwards and may be shared freely.
func BuildRowTable() *RowTable {
	t := &RowTable{}
	for r := 0; r < NumRows; r++ {
		row := unpackRow(uint16(r))
		left, score := MoveLeftRow(row)
		mirrored, _ := MoveLeftRow(reverseRow(row))
		t[r] = RowEntry{
			Left:  packRow(left),
			Right: packRow(reverseRow(mirrored)),
			Score: score,
		}
	}
	log.Debug().Int("rows", NumRows).Msg("built-row-table")
	return t
}

// Find returns the entry for a raw row.
func (t *RowTable) Find(row uint16) RowEntry {
	return t[row]
}

var (
	defaultTable     *RowTable
	defaultTableOnce sync.Once
)

// DefaultRowTable builds a shared table on first use. Binaries call it once
// before any training starts.
func DefaultRowTable() *RowTable {
	defaultTableOnce.Do(func() {
		defaultTable = BuildRowTable()
	})
	return defaultTable
}

// MoveLeftRow slides a row of log2 tile values to the left. Empty cells are
// skipped, the first pair of equal neighbours merges into one tile of value
// v+1, and the reward for the merge is 1<<(v+1).
func MoveLeftRow(row [4]int) ([4]int, int) {
	var buf [4]int
	n := 0
	for _, t := range row {
		if t != 0 {
			buf[n] = t
			n++
		}
	}
	var res [4]int
	score := 0
	k := 0
	for i := 0; i < n; i++ {
		if i+1 < n && buf[i] == buf[i+1] {
			merged := buf[i] + 1
			res[k] = merged
			score += 1 << merged
			i++
		} else {
			res[k] = buf[i]
		}
		k++
	}
	return res, score
}

func unpackRow(r uint16) [4]int {
	return [4]int{int(r & 0xf), int(r>>4) & 0xf, int(r>>8) & 0xf, int(r>>12) & 0xf}
}

func packRow(v [4]int) uint16 {
	return uint16(v[0]&0xf) | uint16(v[1]&0xf)<<4 | uint16(v[2]&0xf)<<8 | uint16(v[3]&0xf)<<12
}

func reverseRow(v [4]int) [4]int {
	return [4]int{v[3], v[2], v[1], v[0]}
}

// ReverseRow mirrors a raw row, nibble 0 swapping with nibble 3.
func ReverseRow(r uint16) uint16 {
	return packRow(reverseRow(unpackRow(r)))
}
