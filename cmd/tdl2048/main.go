package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/tdl2048/automatic"
	"github.com/domino14/tdl2048/board"
	"github.com/domino14/tdl2048/config"
	"github.com/domino14/tdl2048/learning"
	"github.com/domino14/tdl2048/stats"
)

var (
	GitVersion string
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogger(cfg.GetBool(config.ConfigDebug))
	log.Info().Str("version", GitVersion).Interface("config", cfg.SanitizedSettings()).Msg("TDL2048")

	stopProfile := func() {}
	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		var err error
		stopProfile, err = startCPUProfile(path)
		if err != nil {
			panic("could not start CPU profile: " + err.Error())
		}
	}
	defer stopProfile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		// log.Fatal exits without running deferred calls.
		stopProfile()
		log.Fatal().Err(err).Msg("training-failed")
	}

	if cfg.GetString(config.ConfigMemProfile) != "" {
		writeMemProfile(cfg.GetString(config.ConfigMemProfile))
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	table := board.DefaultRowTable()
	l, err := learning.NewFromConfig(cfg, table)
	if err != nil {
		return err
	}
	if path := cfg.GetString(config.ConfigLoadWeights); path != "" {
		if err := l.LoadFile(path); err != nil {
			return err
		}
	}

	seed, err := trainingSeed(cfg)
	if err != nil {
		return err
	}
	r := automatic.NewGameRunner(l, automatic.NewRNG(seed))
	r.SetAlpha(cfg.GetFloat64(config.ConfigAlpha))

	var statsLog io.Writer
	if path := cfg.GetString(config.ConfigStatsLog); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		statsLog = f
	}
	r.SetStats(stats.NewTrainingStats(cfg.GetInt(config.ConfigUnit)), os.Stdout, statsLog)
	if cfg.GetBool(config.ConfigHistogram) {
		r.SetHook(histogramHook(cfg.GetInt(config.ConfigUnit)))
	}

	err = r.Train(ctx, cfg.GetInt(config.ConfigTotal))
	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return err
	}
	// Weights learned before an interrupt are still worth keeping.
	if path := cfg.GetString(config.ConfigSaveWeights); path != "" {
		if err := l.SaveFile(path); err != nil {
			return err
		}
	}
	if interrupted {
		return nil
	}

	if games := cfg.GetInt(config.ConfigEvalGames); games > 0 {
		summary, err := automatic.Evaluate(ctx, l, games,
			cfg.GetInt(config.ConfigEvalThreads), cfg.GetInt64(config.ConfigSeed))
		if err != nil {
			return err
		}
		fmt.Println(summary.String())
		fmt.Printf("95%% CI: ± %.1f\n", summary.CI95)
		if cfg.GetBool(config.ConfigHistogram) {
			if err := summary.Histogram(os.Stdout); err != nil {
				return err
			}
		}
	}
	return nil
}

// trainingSeed picks the seed of the tile generator: the first seed of the
// seeds file, the configured integer seed, or a fresh random one.
func trainingSeed(cfg *config.Config) ([32]byte, error) {
	if path := cfg.GetString(config.ConfigSeedsFile); path != "" {
		seeds, err := automatic.LoadSeeds(path)
		if err != nil {
			return [32]byte{}, err
		}
		if len(seeds) == 0 {
			return [32]byte{}, fmt.Errorf("no seeds in %s", path)
		}
		return seeds[0], nil
	}
	if n := cfg.GetInt64(config.ConfigSeed); n != 0 {
		return automatic.SeedFromInt(n), nil
	}
	seeds, err := automatic.GenerateSeeds(1)
	if err != nil {
		return [32]byte{}, err
	}
	log.Info().Str("seed", base64.RawURLEncoding.EncodeToString(seeds[0][:])).Msg("random-seed")
	return seeds[0], nil
}

// histogramHook prints the score histogram of every block of unit
// episodes.
func histogramHook(unit int) automatic.Hook {
	scores := make([]int, 0, unit)
	tiles := make([]int, 0, unit)
	return func(n int, final board.Board, score int) {
		scores = append(scores, score)
		tiles = append(tiles, final.MaxTile())
		if len(scores) < unit {
			return
		}
		if err := stats.Summarize(n, scores, tiles).Histogram(os.Stdout); err != nil {
			log.Err(err).Msg("histogram-error")
		}
		scores = scores[:0]
		tiles = tiles[:0]
	}
}

func setupLogger(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

// startCPUProfile starts profiling into path. The returned function stops
// the profile and closes the file; calling it again does nothing.
func startCPUProfile(path string) (func(), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}, nil
}

func writeMemProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		panic("could not create memory profile: " + err.Error())
	}
	defer f.Close()
	memstats := &runtime.MemStats{}
	runtime.ReadMemStats(memstats)
	log.Info().Interface("memstats", memstats).Msg("memory-stats")
	if err := pprof.WriteHeapProfile(f); err != nil {
		panic("could not write memory profile: " + err.Error())
	}
	log.Info().Msg("wrote memory profile")
}
