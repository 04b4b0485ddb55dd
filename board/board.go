// Package board contains the 64-bit packed 2048 board and the row table
// that makes sliding it cheap.
//
// Cell indices are row-major:
//
//	 0  1  2  3
//	 4  5  6  7
//	 8  9 10 11
//	12 13 14 15
//
// Cell i lives in bits 4i..4i+3 and holds the log2 of the displayed tile
// (0 for an empty cell). Row i lives in bits 16i..16i+15.
package board

// Opcodes for the four slides.
const (
	OpUp = iota
	OpRight
	OpDown
	OpLeft
)

// NumCells is the number of cells on the board.
const NumCells = 16

// Board is a packed 4x4 grid of nibbles.
type Board uint64

// Rand is the randomness a board needs to spawn tiles. *frand.RNG
// satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

func (b Board) Raw() uint64 {
	return uint64(b)
}

// Fetch returns row i as a 16-bit value.
func (b Board) Fetch(i int) uint16 {
	return uint16(b >> (uint(i) << 4))
}

// Place sets row i.
func (b *Board) Place(i int, r uint16) {
	shift := uint(i) << 4
	*b = (*b &^ (0xffff << shift)) | Board(r)<<shift
}

// At returns the nibble at cell i.
func (b Board) At(i int) int {
	return int(b>>(uint(i)<<2)) & 0x0f
}

// Set sets the nibble at cell i.
func (b *Board) Set(i int, t int) {
	shift := uint(i) << 2
	*b = (*b &^ (0x0f << shift)) | Board(t&0x0f)<<shift
}

// Init resets the board to its starting state: two random tiles.
func (b *Board) Init(rng Rand) {
	*b = 0
	b.Popup(rng)
	b.Popup(rng)
}

// Popup adds a random tile to an empty cell: a 2 with probability 0.9,
// otherwise a 4. A full board is left alone.
func (b *Board) Popup(rng Rand) {
	var space [NumCells]int
	num := 0
	for i := 0; i < NumCells; i++ {
		if b.At(i) == 0 {
			space[num] = i
			num++
		}
	}
	if num == 0 {
		return
	}
	tile := 1
	if rng.Float64() >= 0.9 {
		tile = 2
	}
	b.Set(space[rng.Intn(num)], tile)
}

// Move applies the slide for opcode and returns its reward, or -1 if the
// slide is illegal (the board is then unchanged).
func (b *Board) Move(t *RowTable, opcode int) int {
	switch opcode {
	case OpUp:
		return b.MoveUp(t)
	case OpRight:
		return b.MoveRight(t)
	case OpDown:
		return b.MoveDown(t)
	case OpLeft:
		return b.MoveLeft(t)
	default:
		return -1
	}
}

func (b *Board) MoveLeft(t *RowTable) int {
	var moved Board
	prev := *b
	score := 0
	for i := 0; i < 4; i++ {
		e := t.Find(b.Fetch(i))
		moved |= Board(e.Left) << (uint(i) << 4)
		score += e.Score
	}
	if moved == prev {
		return -1
	}
	*b = moved
	return score
}

func (b *Board) MoveRight(t *RowTable) int {
	var moved Board
	prev := *b
	score := 0
	for i := 0; i < 4; i++ {
		e := t.Find(b.Fetch(i))
		moved |= Board(e.Right) << (uint(i) << 4)
		score += e.Score
	}
	if moved == prev {
		return -1
	}
	*b = moved
	return score
}

func (b *Board) MoveUp(t *RowTable) int {
	b.RotateClockwise()
	score := b.MoveRight(t)
	b.RotateCounterclockwise()
	return score
}

func (b *Board) MoveDown(t *RowTable) int {
	b.RotateClockwise()
	score := b.MoveLeft(t)
	b.RotateCounterclockwise()
	return score
}

// Transpose swaps rows and columns.
func (b *Board) Transpose() {
	x := uint64(*b)
	x = (x & 0xf0f00f0ff0f00f0f) | ((x & 0x0000f0f00000f0f0) << 12) | ((x & 0x0f0f00000f0f0000) >> 12)
	x = (x & 0xff00ff0000ff00ff) | ((x & 0x00000000ff00ff00) << 24) | ((x & 0x00ff00ff00000000) >> 24)
	*b = Board(x)
}

// Mirror reflects the board horizontally, exchanging columns.
func (b *Board) Mirror() {
	x := uint64(*b)
	x = ((x & 0x000f000f000f000f) << 12) | ((x & 0x00f000f000f000f0) << 4) |
		((x & 0x0f000f000f000f00) >> 4) | ((x & 0xf000f000f000f000) >> 12)
	*b = Board(x)
}

// Flip reflects the board vertically, exchanging rows.
func (b *Board) Flip() {
	x := uint64(*b)
	x = ((x & 0x000000000000ffff) << 48) | ((x & 0x00000000ffff0000) << 16) |
		((x & 0x0000ffff00000000) >> 16) | ((x & 0xffff000000000000) >> 48)
	*b = Board(x)
}

// Rotate turns the board clockwise r quarter turns. Negative r turns
// counterclockwise.
func (b *Board) Rotate(r int) {
	switch ((r % 4) + 4) % 4 {
	case 1:
		b.RotateClockwise()
	case 2:
		b.Reverse()
	case 3:
		b.RotateCounterclockwise()
	}
}

func (b *Board) RotateClockwise() {
	b.Transpose()
	b.Mirror()
}

func (b *Board) RotateCounterclockwise() {
	b.Transpose()
	b.Flip()
}

// Reverse rotates the board a half turn.
func (b *Board) Reverse() {
	b.Mirror()
	b.Flip()
}

// MaxTile returns the largest nibble on the board.
func (b Board) MaxTile() int {
	m := 0
	for i := 0; i < NumCells; i++ {
		if t := b.At(i); t > m {
			m = t
		}
	}
	return m
}

// EmptyCount returns the number of empty cells.
func (b Board) EmptyCount() int {
	n := 0
	for i := 0; i < NumCells; i++ {
		if b.At(i) == 0 {
			n++
		}
	}
	return n
}
