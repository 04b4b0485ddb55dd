// Package automatic drives self-play: it plays episodes with the greedy
// policy of a learner, trains the learner on them and reports progress.
package automatic

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/learning"
	"github.com/domino14/tdl2048/move"
	"github.com/domino14/tdl2048/stats"
)

// Most games end well before this many moves.
const pathCapacity = 1 << 12

// Hook is called after every training episode with its number, final
// board and score.
type Hook func(n int, final board.Board, score int)

// Episode is one finished game.
type Episode struct {
	// Path holds one record per move plus the terminal record. It is
	// reused by the next episode of the same runner.
	Path  []*move.Move
	Score int
	Final board.Board
}

// GameRunner is the master struct here for the self-play loop. It is not
// safe for concurrent use.
type GameRunner struct {
	learner *learning.Learner
	rng     board.Rand
	alpha   float64
	hook    Hook

	stats    *stats.TrainingStats
	out      io.Writer
	statsLog io.Writer

	path []*move.Move
}

// NewGameRunner instantiates a runner that trains l with the default
// learning rate, drawing tiles from rng.
func NewGameRunner(l *learning.Learner, rng board.Rand) *GameRunner {
	return &GameRunner{
		learner: l,
		rng:     rng,
		alpha:   learning.DefaultAlpha,
		out:     os.Stdout,
		path:    make([]*move.Move, 0, pathCapacity),
	}
}

func (r *GameRunner) SetAlpha(alpha float64) {
	r.alpha = alpha
}

func (r *GameRunner) SetHook(h Hook) {
	r.hook = h
}

// SetStats turns on the periodic report. Reports are printed to out; if
// statsLog is not nil each report is also appended to it as a yaml
// document.
func (r *GameRunner) SetStats(ts *stats.TrainingStats, out io.Writer, statsLog io.Writer) {
	r.stats = ts
	if out != nil {
		r.out = out
	}
	r.statsLog = statsLog
}

// PlayEpisode plays one game to the end with the learner's greedy policy.
func (r *GameRunner) PlayEpisode() (Episode, error) {
	path, score, final, err := playGame(r.learner, r.rng, r.path[:0])
	r.path = path
	if err != nil {
		return Episode{}, err
	}
	return Episode{Path: path, Score: score, Final: final}, nil
}

func playGame(l *learning.Learner, rng board.Rand, path []*move.Move) ([]*move.Move, int, board.Board, error) {
	var b board.Board
	b.Init(rng)
	score := 0
	for {
		best, err := l.SelectBestMove(b)
		if err != nil {
			return path, score, b, err
		}
		path = append(path, best)
		// SelectBestMove has already checked the value.
		if ok, _ := best.Valid(); !ok {
			break
		}
		score += best.Reward()
		b = best.Afterstate()
		b.Popup(rng)
	}
	log.Trace().Int("score", score).Int("moves", len(path)-1).Msg("episode-over")
	return path, score, b, nil
}

// Train plays and learns from total episodes. Cancellation is checked
// between episodes.
func (r *GameRunner) Train(ctx context.Context, total int) error {
	IsTraining.Add(1)
	defer IsTraining.Add(-1)
	log.Info().Int("episodes", total).Float64("alpha", r.alpha).Msg("starting-training")

	for n := 1; n <= total; n++ {
		select {
		case <-ctx.Done():
			log.Info().Int("episode", n-1).Msg("got stop signal, stopping training")
			return ctx.Err()
		default:
		}
		ep, err := r.PlayEpisode()
		if err != nil {
			return fmt.Errorf("episode %d: %w", n, err)
		}
		r.learner.LearnFromEpisode(ep.Path, r.alpha)
		EpisodesPlayed.Add(1)

		if r.hook != nil {
			r.hook(n, ep.Final, ep.Score)
		}
		if r.stats != nil {
			summary, err := r.stats.Record(n, ep.Final, ep.Score)
			if err != nil {
				return err
			}
			if summary != nil {
				if err := r.report(summary); err != nil {
					return err
				}
			}
		}
	}
	log.Info().Int("episodes", total).Msg("training-finished")
	return nil
}

func (r *GameRunner) report(s *stats.Summary) error {
	log.Debug().Int("episode", s.Episode).Float64("avg", s.Average).
		Int("max", s.Max).Float64("ci95", s.CI95).Msg("training-stats")
	fmt.Fprintln(r.out, s.String())
	if r.statsLog == nil {
		return nil
	}
	out, err := s.YAML()
	if err != nil {
		return err
	}
	_, err = r.statsLog.Write(out)
	return err
}
