package move

import (
	"errors"
	"fmt"
	"math"

	"github.com/domino14/tdl2048/board"
)

// ErrNumericException is returned when a move's estimated value is NaN.
// It usually means the learning rate is too large.
var ErrNumericException = errors.New("numeric exception")

var opNames = [4]string{"up", "right", "down", "left"}

// Move is one decision: the state, the action, its reward, the
// afterstate, and the estimated value of taking it.
type Move struct {
	before board.Board
	after  board.Board
	opcode int
	reward int
	value  float64
}

// New assigns a state and applies the action to generate its afterstate.
// An illegal action yields a reward of -1 and a value of -Inf.
func New(b board.Board, opcode int, t *board.RowTable) *Move {
	m := &Move{before: b, after: b, opcode: opcode}
	m.reward = m.after.Move(t, opcode)
	if m.reward != -1 {
		m.value = float64(m.reward)
	} else {
		m.value = math.Inf(-1)
	}
	return m
}

// NewTerminal returns the record of a state in which no action is taken.
func NewTerminal(b board.Board) *Move {
	return &Move{before: b, after: b, opcode: -1, reward: -1, value: math.Inf(-1)}
}

func (m *Move) State() board.Board {
	return m.before
}

func (m *Move) Afterstate() board.Board {
	return m.after
}

func (m *Move) Action() int {
	return m.opcode
}

func (m *Move) Reward() int {
	return m.reward
}

func (m *Move) Value() float64 {
	return m.value
}

func (m *Move) SetValue(v float64) {
	m.value = v
}

// Valid reports whether the move changes the board. A NaN value is an
// error.
func (m *Move) Valid() (bool, error) {
	if math.IsNaN(m.value) {
		return false, fmt.Errorf("%w: %s has value NaN", ErrNumericException, m.Name())
	}
	return m.after != m.before && m.opcode != -1 && m.reward != -1, nil
}

// Name returns the action's name.
func (m *Move) Name() string {
	if m.opcode >= 0 && m.opcode < len(opNames) {
		return opNames[m.opcode]
	}
	return "none"
}

// String provides a string just for debugging purposes.
func (m *Move) String() string {
	s := fmt.Sprintf("moving %s, reward = %d", m.Name(), m.reward)
	if ok, _ := m.Valid(); ok {
		return s + fmt.Sprintf(", value = %g\n%s", m.value, m.after.ToDisplayText())
	}
	return s + " (invalid)"
}
