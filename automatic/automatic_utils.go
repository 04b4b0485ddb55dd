package automatic

import (
	"context"
	"errors"
	"expvar"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/learning"
	"github.com/domino14/tdl2048/move"
	"github.com/domino14/tdl2048/stats"
)

var (
	EpisodesPlayed *expvar.Int
	IsTraining     *expvar.Int
	IsEvaluating   *expvar.Int
)

func init() {
	EpisodesPlayed = expvar.NewInt("episodesPlayed")
	IsTraining = expvar.NewInt("isTraining")
	IsEvaluating = expvar.NewInt("isEvaluating")
}

var ErrAlreadyEvaluating = errors.New("games are already being evaluated, please wait till complete")

// evaluating guards Evaluate; IsEvaluating only reports it.
var evaluating atomic.Bool

type job struct {
	game int
}

// Evaluate plays games with the greedy policy of l and no learning, over
// the given number of threads. Game i draws its tiles from a generator
// seeded with seed+i, so the result does not depend on threads.
func Evaluate(ctx context.Context, l *learning.Learner, games, threads int, seed int64) (*stats.Summary, error) {
	if !evaluating.CompareAndSwap(false, true) {
		return nil, ErrAlreadyEvaluating
	}
	defer evaluating.Store(false)
	IsEvaluating.Add(1)
	defer IsEvaluating.Add(-1)
	if threads < 1 {
		threads = 1
	}
	log.Debug().Int("games", games).Int("threads", threads).Msg("starting-evaluation")

	scores := make([]int, games)
	maxTiles := make([]int, games)
	jobs := make(chan job, 100)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < games; i++ {
			select {
			case jobs <- job{game: i}:
			case <-gctx.Done():
				log.Info().Int("queued", i).Msg("got stop signal, exiting soon...")
				return gctx.Err()
			}
		}
		return nil
	})
	for t := 0; t < threads; t++ {
		g.Go(func() error {
			path := make([]*move.Move, 0, pathCapacity)
			for j := range jobs {
				rng := NewRNG(SeedFromInt(seed + int64(j.game)))
				var (
					score int
					final board.Board
					err   error
				)
				path, score, final, err = playGame(l, rng, path[:0])
				if err != nil {
					return err
				}
				// Each game owns its slot.
				scores[j.game] = score
				maxTiles[j.game] = final.MaxTile()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s := stats.Summarize(games, scores, maxTiles)
	log.Info().Int("games", games).Float64("avg", s.Average).Int("max", s.Max).
		Float64("ci95", s.CI95).Msg("evaluation-finished")
	return s, nil
}
