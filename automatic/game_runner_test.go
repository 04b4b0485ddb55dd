package automatic

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/learning"
	"github.com/domino14/tdl2048/move"
	"github.com/domino14/tdl2048/ntuple"
	"github.com/domino14/tdl2048/stats"
)

func newLearner(t testing.TB) *learning.Learner {
	l := learning.New(board.DefaultRowTable())
	err := l.AddPatterns([][]int{{0, 1, 2, 3}, {4, 5, 6, 7}}, ntuple.IsoDihedral,
		ntuple.NewAllocator(ntuple.DefaultMemoryLimit))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func newRunner(t testing.TB, seed int64) *GameRunner {
	return NewGameRunner(newLearner(t), NewRNG(SeedFromInt(seed)))
}

func TestPlayEpisode(t *testing.T) {
	is := is.New(t)
	r := newRunner(t, 1)
	ep, err := r.PlayEpisode()
	is.NoErr(err)
	is.True(len(ep.Path) >= 2)

	score := 0
	for _, m := range ep.Path[:len(ep.Path)-1] {
		ok, err := m.Valid()
		is.NoErr(err)
		is.True(ok)
		score += m.Reward()
	}
	is.Equal(score, ep.Score)

	last := ep.Path[len(ep.Path)-1]
	ok, err := last.Valid()
	is.NoErr(err)
	is.True(!ok)
	is.Equal(last.State(), ep.Final)
	for op := board.OpUp; op <= board.OpLeft; op++ {
		ok, _ := move.New(ep.Final, op, board.DefaultRowTable()).Valid()
		is.True(!ok)
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	is := is.New(t)
	var runs [2][]int
	var digests [2]string
	for i := range runs {
		r := newRunner(t, 42)
		r.SetHook(func(n int, final board.Board, score int) {
			is.Equal(n, len(runs[i])+1)
			runs[i] = append(runs[i], score)
		})
		is.NoErr(r.Train(context.Background(), 20))
		digests[i] = r.learner.Digest()
	}
	is.Equal(len(runs[0]), 20)
	is.Equal(runs[0], runs[1])
	is.Equal(digests[0], digests[1])

	other := newRunner(t, 43)
	is.NoErr(other.Train(context.Background(), 20))
	is.True(other.learner.Digest() != digests[0])
}

func TestTrainLearns(t *testing.T) {
	is := is.New(t)
	r := newRunner(t, 7)
	r.SetAlpha(0.05)
	is.NoErr(r.Train(context.Background(), 5))
	nonzero := 0
	for _, f := range r.learner.Features() {
		for _, w := range f.Weights() {
			if w != 0 {
				nonzero++
			}
		}
	}
	is.True(nonzero > 0)
}

func TestTrainReportsStats(t *testing.T) {
	is := is.New(t)
	r := newRunner(t, 3)
	var out, statsLog bytes.Buffer
	r.SetStats(stats.NewTrainingStats(5), &out, &statsLog)
	is.NoErr(r.Train(context.Background(), 12))

	is.True(strings.HasPrefix(out.String(), "5\tavg = "))
	is.True(strings.Contains(out.String(), "\n10\tavg = "))
	is.Equal(strings.Count(statsLog.String(), "---\n"), 2)

	report, err := analyzeStatsLog(&statsLog)
	is.NoErr(err)
	is.True(strings.HasPrefix(report, "Reports: 2 (episodes 5 to 10)\n"))
}

func TestTrainCancelled(t *testing.T) {
	is := is.New(t)
	r := newRunner(t, 1)
	called := false
	r.SetHook(func(int, board.Board, int) { called = true })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Train(ctx, 10)
	is.True(errors.Is(err, context.Canceled))
	is.True(!called)
	is.Equal(IsTraining.Value(), int64(0))
}

func BenchmarkPlayEpisode(b *testing.B) {
	r := newRunner(b, 1)
	for i := 0; i < b.N; i++ {
		r.PlayEpisode()
	}
}
