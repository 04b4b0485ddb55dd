package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigAlpha        = "alpha"
	ConfigTotal        = "total"
	ConfigSeed         = "seed"
	ConfigUnit         = "unit"
	ConfigIsomorphism  = "isomorphism"
	ConfigPatterns     = "patterns"
	ConfigLoadWeights  = "load-weights"
	ConfigSaveWeights  = "save-weights"
	ConfigMemoryLimit  = "memory-limit"
	ConfigStatsLog     = "stats-log"
	ConfigEvalGames    = "eval-games"
	ConfigEvalThreads  = "eval-threads"
	ConfigDebug        = "debug"
	ConfigCPUProfile   = "cpu-profile"
	ConfigMemProfile   = "mem-profile"
	ConfigSeedsFile    = "seeds-file"
	ConfigHistogram    = "histogram"
	DefaultPatterns    = "0,1,2,3,4,5;4,5,6,7,8,9;0,1,2,4,5,6;4,5,6,8,9,10"
	DefaultMemoryLimit = 1 << 30

	minTupleLength = 4
	maxTupleLength = 6
)

var (
	ErrBadPattern = errors.New("bad pattern")
	ErrBadSetting = errors.New("bad setting")
)

// Config holds the settings of a run. Values come, in decreasing order of
// precedence, from flags, TDL2048_ environment variables, an optional
// tdl2048.yaml file, and defaults.
type Config struct {
	*viper.Viper
}

func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigAlpha, 0.1)
	c.SetDefault(ConfigTotal, 100000)
	c.SetDefault(ConfigSeed, 0)
	c.SetDefault(ConfigUnit, 1000)
	c.SetDefault(ConfigIsomorphism, 8)
	c.SetDefault(ConfigPatterns, DefaultPatterns)
	c.SetDefault(ConfigLoadWeights, "")
	c.SetDefault(ConfigSaveWeights, "")
	c.SetDefault(ConfigMemoryLimit, DefaultMemoryLimit)
	c.SetDefault(ConfigStatsLog, "")
	c.SetDefault(ConfigEvalGames, 0)
	c.SetDefault(ConfigEvalThreads, 4)
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigMemProfile, "")
	c.SetDefault(ConfigSeedsFile, "")
	c.SetDefault(ConfigHistogram, false)
}

// Load parses args and the environment, and reads tdl2048.yaml if one is
// found in the working directory or in $HOME/.tdl2048.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	c.setDefaults()

	fs := pflag.NewFlagSet("tdl2048", pflag.ContinueOnError)
	fs.Float64(ConfigAlpha, 0.1, "learning rate")
	fs.Int(ConfigTotal, 100000, "number of training episodes")
	fs.Int64(ConfigSeed, 0, "seed for the tile generator; 0 picks a random one")
	fs.Int(ConfigUnit, 1000, "episodes per statistics report")
	fs.Int(ConfigIsomorphism, 8, "symmetric copies per pattern: 1, 4 or 8, unless the tuple sets its own")
	fs.String(ConfigPatterns, DefaultPatterns, "semicolon-separated tuples of comma-separated cells, each optionally ending in :level")
	fs.String(ConfigLoadWeights, "", "weight file to start from")
	fs.String(ConfigSaveWeights, "", "weight file to write after training")
	fs.Int64(ConfigMemoryLimit, DefaultMemoryLimit, "ceiling on weight memory, in bytes")
	fs.String(ConfigStatsLog, "", "file to append yaml statistics reports to")
	fs.Int(ConfigEvalGames, 0, "games to play after training without learning")
	fs.Int(ConfigEvalThreads, 4, "threads for evaluation games")
	fs.Bool(ConfigDebug, false, "debug logging")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigMemProfile, "", "write a memory profile to this file")
	fs.String(ConfigSeedsFile, "", "file of base64 seeds; the first one seeds training")
	fs.Bool(ConfigHistogram, false, "print a score histogram with each report")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetEnvPrefix("tdl2048")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	c.SetConfigName("tdl2048")
	c.SetConfigType("yaml")
	c.AddConfigPath(".")
	c.AddConfigPath("$HOME/.tdl2048")
	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return c.Validate()
}

// Validate checks the settings that have a fixed range.
func (c *Config) Validate() error {
	if c.GetFloat64(ConfigAlpha) <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrBadSetting, ConfigAlpha)
	}
	if c.GetInt(ConfigTotal) < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrBadSetting, ConfigTotal)
	}
	if c.GetInt(ConfigUnit) <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrBadSetting, ConfigUnit)
	}
	if !validIsomorphism(c.GetInt(ConfigIsomorphism)) {
		return fmt.Errorf("%w: %s must be 1, 4 or 8", ErrBadSetting, ConfigIsomorphism)
	}
	if c.GetInt64(ConfigMemoryLimit) <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrBadSetting, ConfigMemoryLimit)
	}
	_, err := c.Patterns()
	return err
}

// Tuple is one configured pattern: its cells and how many symmetric
// variants share its weights.
type Tuple struct {
	Cells       []int
	Isomorphism int
}

// Patterns returns the configured tuples. Tuples without their own level
// use the isomorphism setting.
func (c *Config) Patterns() ([]Tuple, error) {
	return ParsePatterns(c.GetString(ConfigPatterns), c.GetInt(ConfigIsomorphism))
}

// ParsePatterns parses tuples written as "0,1,2,3:4;4,5,6,7". Each tuple has
// 4 to 6 distinct cells in [0, 15], optionally followed by its isomorphism
// level (1, 4 or 8); iso is used for tuples that have none.
func ParsePatterns(s string, iso int) ([]Tuple, error) {
	var tuples []Tuple
	for _, field := range strings.Split(s, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		level := iso
		cellList, levelStr, found := strings.Cut(field, ":")
		if found {
			var err error
			level, err = strconv.Atoi(strings.TrimSpace(levelStr))
			if err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrBadPattern, field, err)
			}
		}
		if !validIsomorphism(level) {
			return nil, fmt.Errorf("%w %q: isomorphism %d, want 1, 4 or 8", ErrBadPattern, field, level)
		}
		var cells []int
		seen := map[int]bool{}
		for _, cs := range strings.Split(cellList, ",") {
			cell, err := strconv.Atoi(strings.TrimSpace(cs))
			if err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrBadPattern, field, err)
			}
			if cell < 0 || cell > 15 {
				return nil, fmt.Errorf("%w %q: cell %d out of range", ErrBadPattern, field, cell)
			}
			if seen[cell] {
				return nil, fmt.Errorf("%w %q: cell %d repeated", ErrBadPattern, field, cell)
			}
			seen[cell] = true
			cells = append(cells, cell)
		}
		if len(cells) < minTupleLength || len(cells) > maxTupleLength {
			return nil, fmt.Errorf("%w %q: %d cells, want %d to %d", ErrBadPattern, field,
				len(cells), minTupleLength, maxTupleLength)
		}
		tuples = append(tuples, Tuple{Cells: cells, Isomorphism: level})
	}
	if len(tuples) == 0 {
		return nil, fmt.Errorf("%w: no tuples", ErrBadPattern)
	}
	return tuples, nil
}

func validIsomorphism(iso int) bool {
	switch iso {
	case 1, 4, 8:
		return true
	}
	return false
}

// SanitizedSettings returns the settings for logging.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}
