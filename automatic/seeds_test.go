package automatic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestSeedsRoundTrip(t *testing.T) {
	is := is.New(t)
	seeds, err := GenerateSeeds(3)
	is.NoErr(err)
	seeds = append(seeds, SeedFromInt(12))
	path := filepath.Join(t.TempDir(), "seeds.txt")
	is.NoErr(SaveSeeds(seeds, path))

	loaded, err := LoadSeeds(path)
	is.NoErr(err)
	is.Equal(loaded, seeds)
}

func TestLoadSeedsBadLength(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "seeds.txt")
	is.NoErr(os.WriteFile(path, []byte("# comment\n\nAAAA\n"), 0644))
	_, err := LoadSeeds(path)
	is.True(err != nil)
}

func TestSeedFromInt(t *testing.T) {
	is := is.New(t)
	is.Equal(SeedFromInt(1), SeedFromInt(1))
	is.True(SeedFromInt(1) != SeedFromInt(2))
	a, b := NewRNG(SeedFromInt(9)), NewRNG(SeedFromInt(9))
	for i := 0; i < 10; i++ {
		is.Equal(a.Intn(1000), b.Intn(1000))
	}
}
