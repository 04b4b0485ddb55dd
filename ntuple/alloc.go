package ntuple

import (
	"fmt"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

// DefaultMemoryLimit is the default ceiling on weight storage, in bytes.
const DefaultMemoryLimit = 1 << 30

const weightBytes = 4

// Allocator hands out zeroed weight tables and refuses to go past its
// ceiling. It is not safe for concurrent use.
type Allocator struct {
	limit int64 // in weights
	total int64
}

// NewAllocator returns an allocator limited to limitBytes, or to the
// machine's total memory if that is smaller.
func NewAllocator(limitBytes int64) *Allocator {
	if limitBytes <= 0 {
		limitBytes = DefaultMemoryLimit
	}
	if sys := memory.TotalMemory(); sys > 0 && uint64(limitBytes) > sys {
		log.Info().Uint64("total-system-memory-bytes", sys).
			Int64("requested-limit-bytes", limitBytes).
			Msg("capping-weight-memory-limit")
		limitBytes = int64(sys)
	}
	return &Allocator{limit: limitBytes / weightBytes}
}

// Alloc returns n zeroed weights.
func (a *Allocator) Alloc(n int) ([]float32, error) {
	if a.total+int64(n) > a.limit {
		return nil, fmt.Errorf("%w: need %d more weights, %d of %d in use",
			ErrMemoryLimit, n, a.total, a.limit)
	}
	a.total += int64(n)
	return make([]float32, n), nil
}

// InUse returns the number of bytes handed out so far.
func (a *Allocator) InUse() int64 {
	return a.total * weightBytes
}
