package board

import (
	"errors"
	"fmt"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
)

var boardPlaintextRegex = regexp.MustCompile(`\|(.+)\|`)

var errBadBoardText = errors.New("board text must have 4 rows of 4 tiles")

// TileValue returns the displayed value of a nibble; empty cells show as 0.
func TileValue(t int) int {
	return (1 << t) &^ 1
}

// String returns the raw board as 16 hex digits, the highest cell first.
func (b Board) String() string {
	return fmt.Sprintf("%016x", uint64(b))
}

// ToDisplayText renders the board in a box, one row per line.
//
//	+------------------------+
//	|     2     8   128     4|
//	|     8    32    64   256|
//	|     2     4    32   128|
//	|     4     2     8    16|
//	+------------------------+
func (b Board) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString("+" + strings.Repeat("-", 24) + "+\n")
	for i := 0; i < NumCells; i += 4 {
		sb.WriteString("|")
		for j := i; j < i+4; j++ {
			fmt.Fprintf(&sb, "%6d", TileValue(b.At(j)))
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("+" + strings.Repeat("-", 24) + "+")
	return sb.String()
}

// ParseBoard reads either a raw hex value (as printed by String, with or
// without a 0x prefix) or a display text grid as printed by ToDisplayText.
func ParseBoard(s string) (Board, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "|") {
		raw, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing board %q: %w", s, err)
		}
		return Board(raw), nil
	}
	rows := boardPlaintextRegex.FindAllStringSubmatch(s, -1)
	if len(rows) != 4 {
		return 0, errBadBoardText
	}
	var b Board
	for r, row := range rows {
		fields := strings.Fields(row[1])
		if len(fields) != 4 {
			return 0, errBadBoardText
		}
		for c, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return 0, fmt.Errorf("parsing tile %q: %w", f, err)
			}
			t, err := tileFromValue(v)
			if err != nil {
				return 0, err
			}
			b.Set(r*4+c, t)
		}
	}
	return b, nil
}

func tileFromValue(v int) (int, error) {
	if v == 0 {
		return 0, nil
	}
	if v < 2 || v&(v-1) != 0 || v > 1<<15 {
		return 0, fmt.Errorf("%d is not a valid tile", v)
	}
	return bits.TrailingZeros(uint(v)), nil
}
