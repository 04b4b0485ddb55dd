package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	is.NoErr(cfg.Load(nil))
	is.Equal(cfg.GetFloat64(ConfigAlpha), 0.1)
	is.Equal(cfg.GetInt(ConfigTotal), 100000)
	is.Equal(cfg.GetInt(ConfigUnit), 1000)
	is.Equal(cfg.GetInt(ConfigIsomorphism), 8)
	is.Equal(cfg.GetInt64(ConfigMemoryLimit), int64(1<<30))
	is.Equal(cfg.GetBool(ConfigDebug), false)
	tuples, err := cfg.Patterns()
	is.NoErr(err)
	is.Equal(tuples, []Tuple{
		{Cells: []int{0, 1, 2, 3, 4, 5}, Isomorphism: 8},
		{Cells: []int{4, 5, 6, 7, 8, 9}, Isomorphism: 8},
		{Cells: []int{0, 1, 2, 4, 5, 6}, Isomorphism: 8},
		{Cells: []int{4, 5, 6, 8, 9, 10}, Isomorphism: 8},
	})
	is.NoErr(DefaultConfig().Validate())
}

func TestFlagsAndEnv(t *testing.T) {
	is := is.New(t)
	t.Setenv("TDL2048_SAVE_WEIGHTS", "from-env.bin")
	t.Setenv("TDL2048_TOTAL", "50")
	cfg := &Config{}
	is.NoErr(cfg.Load([]string{"--alpha", "0.0025", "--total", "10", "--patterns", "0,1,2,3;4,5,6,7"}))
	is.Equal(cfg.GetFloat64(ConfigAlpha), 0.0025)
	is.Equal(cfg.GetInt(ConfigTotal), 10)
	is.Equal(cfg.GetString(ConfigSaveWeights), "from-env.bin")
	tuples, err := cfg.Patterns()
	is.NoErr(err)
	is.Equal(len(tuples), 2)
}

func TestConfigFile(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	is.NoErr(os.WriteFile(filepath.Join(dir, "tdl2048.yaml"), []byte("unit: 250\nisomorphism: 4\n"), 0644))
	wd, err := os.Getwd()
	is.NoErr(err)
	is.NoErr(os.Chdir(dir))
	defer os.Chdir(wd)

	cfg := &Config{}
	is.NoErr(cfg.Load([]string{"--isomorphism", "1"}))
	is.Equal(cfg.GetInt(ConfigUnit), 250)
	is.Equal(cfg.GetInt(ConfigIsomorphism), 1)
	tuples, err := cfg.Patterns()
	is.NoErr(err)
	is.Equal(tuples[0].Isomorphism, 1)
}

func TestValidate(t *testing.T) {
	is := is.New(t)
	for _, args := range [][]string{
		{"--alpha", "0"},
		{"--unit", "0"},
		{"--total=-1"},
		{"--isomorphism", "2"},
		{"--memory-limit", "0"},
	} {
		err := (&Config{}).Load(args)
		is.True(errors.Is(err, ErrBadSetting))
	}
	err := (&Config{}).Load([]string{"--patterns", "0,1,2"})
	is.True(errors.Is(err, ErrBadPattern))
	err = (&Config{}).Load([]string{"--patterns", "0,1,2,3:3"})
	is.True(errors.Is(err, ErrBadPattern))
}

func TestParsePatterns(t *testing.T) {
	is := is.New(t)
	tuples, err := ParsePatterns(" 0, 1, 2, 3 ; 12,13,14,15,11,10;", 8)
	is.NoErr(err)
	is.Equal(tuples, []Tuple{
		{Cells: []int{0, 1, 2, 3}, Isomorphism: 8},
		{Cells: []int{12, 13, 14, 15, 11, 10}, Isomorphism: 8},
	})

	tuples, err = ParsePatterns("0,1,2,3,4,5:4; 4,5,6,7,8,9 ;0,1,2,4:1", 8)
	is.NoErr(err)
	is.Equal(tuples, []Tuple{
		{Cells: []int{0, 1, 2, 3, 4, 5}, Isomorphism: 4},
		{Cells: []int{4, 5, 6, 7, 8, 9}, Isomorphism: 8},
		{Cells: []int{0, 1, 2, 4}, Isomorphism: 1},
	})

	for _, bad := range []string{
		"",
		"0,1,2",
		"0,1,2,3,4,5,6",
		"0,1,2,16",
		"0,1,2,-1",
		"0,1,1,2",
		"0,1,x,2",
		"0,1,2,3:2",
		"0,1,2,3:",
		"0,1,2,3:x",
	} {
		_, err := ParsePatterns(bad, 8)
		is.True(errors.Is(err, ErrBadPattern))
	}
}
