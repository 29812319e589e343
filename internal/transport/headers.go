package transport

import (
	"math/rand"
	"sync"
)

// recentWindow is how many previously picked header sets a Rotator avoids.
const recentWindow = 3

// Rotator selects header sets from a configured pool, avoiding the most
// recently used ones so consecutive sessions do not present an identical
// header fingerprint.
type Rotator struct {
	mu     sync.Mutex
	sets   []map[string]string
	recent []int
}

// NewRotator creates a rotator over the given pool. An empty pool is valid;
// Pick then returns nil.
func NewRotator(sets []map[string]string) *Rotator {
	return &Rotator{
		sets:   sets,
		recent: make([]int, 0, recentWindow),
	}
}

// Pick returns a header set from the pool. When the pool is larger than the
// recent window, the pick avoids the last few choices; smaller pools fall
// back to a plain random pick.
func (r *Rotator) Pick() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sets) == 0 {
		return nil
	}
	if len(r.sets) == 1 {
		return r.sets[0]
	}

	idx := rand.Intn(len(r.sets))
	if len(r.sets) > recentWindow {
		for r.wasRecent(idx) {
			idx = rand.Intn(len(r.sets))
		}
	}

	r.recent = append(r.recent, idx)
	if len(r.recent) > recentWindow {
		r.recent = r.recent[1:]
	}

	return r.sets[idx]
}

func (r *Rotator) wasRecent(idx int) bool {
	for _, p := range r.recent {
		if p == idx {
			return true
		}
	}
	return false
}
