package stats

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/domino14/tdl2048/board"
)

var ErrStatisticSize = errors.New("wrong statistic size")

const (
	DefaultUnit = 1000

	histogramBins  = 10
	histogramWidth = 40
)

// TileRate describes one row of the report: the share of games that reached
// at least Tile, and the share that ended with Tile as the largest tile.
type TileRate struct {
	Tile    int     `yaml:"tile"`
	WinRate float64 `yaml:"win_rate"`
	Share   float64 `yaml:"share"`
}

// Summary is the report over one block of games.
type Summary struct {
	Episode int        `yaml:"episode"`
	Games   int        `yaml:"games"`
	Average float64    `yaml:"average"`
	Max     int        `yaml:"max"`
	CI95    float64    `yaml:"ci95"`
	Tiles   []TileRate `yaml:"tiles"`

	scores []float64
}

// TrainingStats collects final scores and largest tiles, and reports on
// them every unit episodes.
type TrainingStats struct {
	unit     int
	scores   []int
	maxTiles []int
}

func NewTrainingStats(unit int) *TrainingStats {
	if unit <= 0 {
		unit = DefaultUnit
	}
	return &TrainingStats{
		unit:     unit,
		scores:   make([]int, 0, unit),
		maxTiles: make([]int, 0, unit),
	}
}

func (t *TrainingStats) Unit() int {
	return t.unit
}

// Record adds the result of episode n, ending on board b with the given
// score. Every unit episodes it returns the summary of the block and starts
// a new one; otherwise it returns nil.
func (t *TrainingStats) Record(n int, b board.Board, score int) (*Summary, error) {
	t.scores = append(t.scores, score)
	t.maxTiles = append(t.maxTiles, b.MaxTile())
	if n%t.unit != 0 {
		return nil, nil
	}
	defer t.reset()
	if len(t.scores) != t.unit || len(t.maxTiles) != t.unit {
		return nil, fmt.Errorf("%w: %d games recorded at episode %d, unit is %d",
			ErrStatisticSize, len(t.scores), n, t.unit)
	}
	return Summarize(n, t.scores, t.maxTiles), nil
}

func (t *TrainingStats) reset() {
	t.scores = t.scores[:0]
	t.maxTiles = t.maxTiles[:0]
}

// Summarize builds the report for a block of games; maxTiles holds the
// largest tile exponent of each game.
func Summarize(episode int, scores []int, maxTiles []int) *Summary {
	s := &Summary{Episode: episode, Games: len(scores)}
	if len(scores) == 0 {
		return s
	}
	st := &Statistic{}
	s.scores = make([]float64, len(scores))
	for i, sc := range scores {
		st.Push(float64(sc))
		s.scores[i] = float64(sc)
	}
	s.Average = float64(lo.Sum(scores)) / float64(len(scores))
	s.Max = lo.Max(scores)
	s.CI95 = st.ConfidenceInterval(95)

	var count [board.NumCells]int
	for _, t := range maxTiles {
		count[t]++
	}
	coef := 100 / float64(len(maxTiles))
	accu := len(maxTiles)
	for t := 0; t < board.NumCells && accu > 0; t++ {
		if count[t] != 0 {
			s.Tiles = append(s.Tiles, TileRate{
				Tile:    board.TileValue(t),
				WinRate: float64(accu) * coef,
				Share:   float64(count[t]) * coef,
			})
		}
		accu -= count[t]
	}
	return s
}

// String renders the summary as a table, for example:
//
//	1000	avg = 273901	max = 382324
//		8192	93.7%	(22.4%)
//		16384	71.3%	(71.3%)
func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\tavg = %v\tmax = %d", s.Episode, s.Average, s.Max)
	for _, r := range s.Tiles {
		fmt.Fprintf(&sb, "\n\t%d\t%.1f%%\t(%.1f%%)", r.Tile, r.WinRate, r.Share)
	}
	return sb.String()
}

// Histogram prints the score distribution of the block.
func (s *Summary) Histogram(w io.Writer) error {
	if len(s.scores) == 0 {
		return nil
	}
	h := histogram.Hist(histogramBins, s.scores)
	return histogram.Fprintf(w, h, histogram.Linear(histogramWidth), func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	})
}

// YAML renders the summary as one document of the stats log.
func (s *Summary) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append([]byte("---\n"), out...), nil
}
