package learning

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/config"
	"github.com/domino14/tdl2048/move"
	"github.com/domino14/tdl2048/ntuple"
)

func newLearner(t *testing.T, tuples [][]int, iso int) *Learner {
	l := New(board.DefaultRowTable())
	err := l.AddPatterns(tuples, iso, ntuple.NewAllocator(ntuple.DefaultMemoryLimit))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestEstimateAndUpdate(t *testing.T) {
	l := newLearner(t, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}, ntuple.IsoDihedral)
	b := board.Board(0x4312752186532731)
	assert.Equal(t, 0.0, l.Estimate(b))
	v := l.Update(b, 10)
	assert.InDelta(t, 10, v, 1e-5)
	assert.InDelta(t, 10, l.Estimate(b), 1e-5)
	// Each feature took half.
	for _, f := range l.Features() {
		assert.InDelta(t, 5, f.Estimate(b), 1e-5)
	}
}

func TestSelectBestMoveTies(t *testing.T) {
	is := is.New(t)
	l := newLearner(t, [][]int{{0, 1, 2, 3}}, ntuple.IsoDihedral)

	var b board.Board
	b.Set(5, 1)
	best, err := l.SelectBestMove(b)
	is.NoErr(err)
	// All four moves are worth 0; the first one wins.
	is.Equal(best.Action(), board.OpUp)
	is.Equal(best.State(), b)

	b = 0
	b.Set(0, 1)
	b.Set(1, 1)
	best, err = l.SelectBestMove(b)
	is.NoErr(err)
	is.Equal(best.Action(), board.OpRight)
	is.Equal(best.Reward(), 4)
	is.Equal(best.Value(), 4.0)
}

func TestSelectBestMoveUsesEstimate(t *testing.T) {
	is := is.New(t)
	l := newLearner(t, [][]int{{0, 1, 2, 3}}, ntuple.IsoNone)
	var b board.Board
	b.Set(5, 1)
	// Make the afterstate of "down" (tile on cell 13) valuable: its
	// first row is empty, as is the afterstate of "right" and "left".
	var down board.Board
	down.Set(13, 1)
	l.Features()[0].Weights()[0] = 2
	best, err := l.SelectBestMove(b)
	is.NoErr(err)
	is.Equal(best.Action(), board.OpRight)
	is.Equal(best.Value(), 2.0)

	l.Features()[0].Weights()[0x10] = 3
	best, err = l.SelectBestMove(b)
	is.NoErr(err)
	is.Equal(best.Action(), board.OpUp)
	is.Equal(best.Afterstate().At(1), 1)
	is.True(best.Afterstate() != down)
}

func TestSelectBestMoveGameOver(t *testing.T) {
	is := is.New(t)
	l := newLearner(t, DefaultNetwork[:1], ntuple.IsoDihedral)
	b, err := board.ParseBoard(board.SampleGameOver)
	is.NoErr(err)
	best, err := l.SelectBestMove(b)
	is.NoErr(err)
	ok, err := best.Valid()
	is.NoErr(err)
	is.True(!ok)
	is.Equal(best.Action(), -1)
}

func TestSelectBestMoveNaN(t *testing.T) {
	is := is.New(t)
	l := newLearner(t, [][]int{{0, 1, 2, 3}}, ntuple.IsoNone)
	l.Features()[0].Weights()[0] = float32(math.NaN())
	var b board.Board
	b.Set(5, 1)
	_, err := l.SelectBestMove(b)
	is.True(errors.Is(err, move.ErrNumericException))
}

func TestLearnFromEpisode(t *testing.T) {
	is := is.New(t)
	table := board.DefaultRowTable()
	l := newLearner(t, [][]int{{0, 1, 2, 3}}, ntuple.IsoNone)

	var s0 board.Board
	s0.Set(0, 1)
	s0.Set(1, 1)
	m0 := move.New(s0, board.OpLeft, table)
	is.Equal(m0.Reward(), 4)

	s1 := m0.Afterstate()
	s1.Set(1, 2)
	m1 := move.New(s1, board.OpLeft, table)
	is.Equal(m1.Reward(), 8)

	path := []*move.Move{m0, m1, move.NewTerminal(m1.Afterstate())}
	l.LearnFromEpisode(path, 0.5)
	// The last afterstate is pulled toward 0 (the terminal value), the
	// first toward the reward of the second move.
	is.Equal(l.Estimate(m1.Afterstate()), 0.0)
	is.Equal(l.Estimate(m0.Afterstate()), 4.0)

	l.LearnFromEpisode(path, 0.5)
	is.Equal(l.Estimate(m0.Afterstate()), 6.0)
	is.Equal(len(path), 3)

	// Nothing to learn from an empty or terminal-only path.
	l.LearnFromEpisode(nil, 0.5)
	l.LearnFromEpisode(path[2:], 0.5)
	is.Equal(l.Estimate(m0.Afterstate()), 6.0)
}

func fillDistinct(l *Learner) {
	n := 1
	for _, f := range l.Features() {
		w := f.Weights()
		for i := range w {
			w[i] = float32(n) * 0.25
			n++
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	is := is.New(t)
	tuples := [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}
	src := newLearner(t, tuples, ntuple.IsoDihedral)
	fillDistinct(src)

	var buf bytes.Buffer
	is.NoErr(src.Save(&buf))

	dst := newLearner(t, tuples, ntuple.IsoDihedral)
	is.NoErr(dst.Load(&buf))
	for i, f := range dst.Features() {
		is.Equal(f.Size(), 1<<16)
		is.Equal(f.Weights(), src.Features()[i].Weights())
	}
	is.Equal(dst.Digest(), src.Digest())
}

func TestSaveLoadFile(t *testing.T) {
	is := is.New(t)
	tuples := [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}
	src := newLearner(t, tuples, ntuple.IsoDihedral)
	fillDistinct(src)
	path := filepath.Join(t.TempDir(), "weights.bin")
	is.NoErr(src.SaveFile(path))

	info, err := os.Stat(path)
	is.NoErr(err)
	name := len("4-tuple pattern 0123")
	is.Equal(info.Size(), int64(8+2*(4+name+8+4*(1<<16))))

	dst := newLearner(t, tuples, ntuple.IsoDihedral)
	is.NoErr(dst.LoadFile(path))
	is.Equal(dst.Digest(), src.Digest())

	fresh := newLearner(t, tuples, ntuple.IsoDihedral)
	is.NoErr(fresh.LoadFile(filepath.Join(t.TempDir(), "missing.bin")))
	is.Equal(fresh.Estimate(board.Board(0x4312752186532731)), 0.0)
}

func TestLoadMismatch(t *testing.T) {
	is := is.New(t)
	src := newLearner(t, [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}, ntuple.IsoDihedral)
	fillDistinct(src)
	var buf bytes.Buffer
	is.NoErr(src.Save(&buf))
	data := buf.Bytes()

	fewer := newLearner(t, [][]int{{0, 1, 2, 3}}, ntuple.IsoDihedral)
	err := fewer.Load(bytes.NewReader(data))
	is.True(errors.Is(err, ErrFeatureCount))

	// The first feature matches, the second doesn't: neither is applied.
	renamed := newLearner(t, [][]int{{0, 1, 2, 3}, {4, 5, 6, 8}}, ntuple.IsoDihedral)
	err = renamed.Load(bytes.NewReader(data))
	is.True(errors.Is(err, ntuple.ErrFeatureName))
	is.Equal(renamed.Features()[0].Weights()[1], float32(0))
}

func TestDump(t *testing.T) {
	is := is.New(t)
	l := newLearner(t, [][]int{{0, 1}}, ntuple.IsoNone)
	var buf bytes.Buffer
	l.Dump(board.Board(0x21), &buf)
	is.Equal(buf.String(), board.Board(0x21).ToDisplayText()+"\nestimate = 0\n#01[12] = 0\n")
}

func TestMemoryString(t *testing.T) {
	is := is.New(t)
	is.Equal(memoryString(4*(1<<24)), "64MB")
	is.Equal(memoryString(4*(1<<16)), "256KB")
	is.Equal(memoryString(3<<30), "3GB")
	is.Equal(memoryString(100), "100B")
}

func TestNewFromConfig(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigPatterns, "0,1,2,3;4,5,6,7")
	cfg.Set(config.ConfigIsomorphism, 4)
	l, err := NewFromConfig(cfg, board.DefaultRowTable())
	is.NoErr(err)
	is.Equal(len(l.Features()), 2)
	is.Equal(l.Features()[1].Name(), "4-tuple pattern 4567")
	is.Equal(len(l.Features()[0].(*ntuple.Pattern).Isomorphisms()), 4)

	cfg.Set(config.ConfigPatterns, "0,1,2,3:1;4,5,6,7;0,1,4,5:8")
	l, err = NewFromConfig(cfg, board.DefaultRowTable())
	is.NoErr(err)
	is.Equal(len(l.Features()), 3)
	for i, want := range []int{1, 4, 8} {
		is.Equal(len(l.Features()[i].(*ntuple.Pattern).Isomorphisms()), want)
	}

	cfg.Set(config.ConfigMemoryLimit, 1<<16)
	_, err = NewFromConfig(cfg, board.DefaultRowTable())
	is.True(errors.Is(err, ntuple.ErrMemoryLimit))
}
