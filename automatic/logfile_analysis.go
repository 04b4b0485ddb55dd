package automatic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/domino14/tdl2048/stats"
)

// AnalyzeStatsLog reads the yaml reports appended to a stats log during
// training and summarizes how the average score evolved.
func AnalyzeStatsLog(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return analyzeStatsLog(file)
}

func analyzeStatsLog(r io.Reader) (string, error) {
	dec := yaml.NewDecoder(r)
	var (
		reports  []stats.Summary
		averages stats.Statistic
	)
	for {
		var s stats.Summary
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("report %d: %w", len(reports)+1, err)
		}
		reports = append(reports, s)
		averages.Push(s.Average)
	}
	if len(reports) == 0 {
		return "", errors.New("no reports in stats log")
	}
	first, last := reports[0], reports[len(reports)-1]
	best := 0
	for _, s := range reports {
		best = max(best, s.Max)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Reports: %d (episodes %d to %d)\n", len(reports), first.Episode, last.Episode)
	fmt.Fprintf(&sb, "First average: %.1f\n", first.Average)
	fmt.Fprintf(&sb, "Last average: %.1f ± %.1f\n", last.Average, last.CI95)
	fmt.Fprintf(&sb, "Best block average: %.1f\n", averages.Max())
	fmt.Fprintf(&sb, "Best score: %d\n", best)
	if len(last.Tiles) > 0 {
		top := last.Tiles[len(last.Tiles)-1]
		fmt.Fprintf(&sb, "Largest tile in last block: %d (%.1f%%)\n", top.Tile, top.Share)
	}
	return sb.String(), nil
}
