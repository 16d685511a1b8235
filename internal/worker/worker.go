// Package worker implements the per-shard search loop (spec §4.4): it
// combines the (a, x, b, y) enumerator with one c^z residue index per
// filter prime and emits the points that survive the whole filter chain.
package worker

import (
	"fmt"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/rawblock/beal-search/internal/enumerator"
	"github.com/rawblock/beal-search/internal/residx"
	"github.com/rawblock/beal-search/pkg/models"
)

// Worker owns a set of c^z indices — one per filter prime — built once
// and reused across every shard it is handed. Index construction costs
// minutes and hundreds of megabytes, so a Worker binds to the first
// configuration it sees and refuses any later mismatch rather than
// rebuilding mid-run (spec §4.5, §9).
type Worker struct {
	maxMemoryBytes uint64

	mu       sync.Mutex
	bound    bool
	config   models.SearchConfig
	indices  []*residx.Index // one per prime, in declared order

	shardsCompleted int64
	candidatesFound int64
}

// New creates an unbound Worker. maxMemoryBytes caps the combined bitset
// allocation across all filter indices; 0 disables the check.
func New(maxMemoryBytes uint64) *Worker {
	return &Worker{maxMemoryBytes: maxMemoryBytes}
}

// ErrConfigMismatch is returned by Bind when the worker is already bound
// to a different configuration. Per spec §7 this is fatal at the caller:
// the worker process should log it and exit so supervision can rebind it.
var ErrConfigMismatch = errors.New("worker: configuration mismatch with already-bound indices")

// ErrResourceExhausted is returned by Bind when the requested
// configuration's combined bitset allocation would exceed the worker's
// declared memory ceiling (spec §5, §7 kind 2). Fatal at construction,
// before any shard is accepted.
var ErrResourceExhausted = errors.New("worker: configuration exceeds declared memory ceiling")

// Bind builds the filter-chain indices for cfg on first call. Every
// subsequent call must supply an equal configuration, or Bind returns
// ErrConfigMismatch without touching the existing indices.
func (w *Worker) Bind(cfg models.SearchConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.bound {
		if !w.config.Equal(cfg) {
			return ErrConfigMismatch
		}
		return nil
	}

	required := uint64(len(cfg.Primes)) * residx.BitsetBytes
	if w.maxMemoryBytes > 0 && required > w.maxMemoryBytes {
		return errors.Wrapf(ErrResourceExhausted, "need %d MiB for %d primes, ceiling is %d MiB",
			required/(1<<20), len(cfg.Primes), w.maxMemoryBytes/(1<<20))
	}

	indices := make([]*residx.Index, 0, len(cfg.Primes))
	for _, p := range cfg.Primes {
		idx, err := residx.Build(cfg.MaxBase, cfg.MaxPow, p)
		if err != nil {
			return errors.Wrapf(err, "building residue index for prime %d", p)
		}
		indices = append(indices, idx)
	}

	w.config = cfg
	w.indices = indices
	w.bound = true
	log.Printf("[Worker] bound to config maxBase=%d maxPow=%d primes=%v (runId=%s)",
		cfg.MaxBase, cfg.MaxPow, cfg.Primes, cfg.RunID)
	return nil
}

// Bound reports whether the worker has committed to a configuration.
func (w *Worker) Bound() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bound
}

// Stats returns cumulative shard/candidate counters for status reporting.
func (w *Worker) Stats() (shardsCompleted, candidatesFound int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shardsCompleted, w.candidatesFound
}

// Run drives the enumerator for a single shard through the filter chain
// to exhaustion and returns every surviving point, in enumerator order
// (spec §4.4, §5 — a worker suspends only at RPC boundaries, so Run itself
// never yields until the shard is complete).
func (w *Worker) Run(shard models.Shard) ([]models.Point, error) {
	w.mu.Lock()
	if !w.bound {
		w.mu.Unlock()
		return nil, fmt.Errorf("worker: Run called before Bind")
	}
	cfg := w.config
	indices := w.indices
	w.mu.Unlock()

	if shard.A < 1 || shard.A > cfg.MaxBase {
		return nil, fmt.Errorf("worker: shard a=%d out of range [1,%d]", shard.A, cfg.MaxBase)
	}

	var candidates []models.Point
	cursor := enumerator.New(cfg.MaxBase, cfg.MaxPow, shard.A)

	for {
		point, done := cursor.Next()
		if done {
			break
		}
		if passesFilterChain(indices, point) {
			candidates = append(candidates, models.Point{A: point.A, X: point.X, B: point.B, Y: point.Y})
		}
	}

	w.mu.Lock()
	w.shardsCompleted++
	w.candidatesFound += int64(len(candidates))
	w.mu.Unlock()

	log.Printf("[Worker] shard a=%d complete: %d candidates", shard.A, len(candidates))
	return candidates, nil
}

// passesFilterChain applies each index in declared order, short-circuiting
// on the first rejection (spec §4.4). Filter primes are applied in the
// order they were declared so the most discriminating prime can be placed
// first by configuration.
func passesFilterChain(indices []*residx.Index, p enumerator.Point) bool {
	for _, idx := range indices {
		ra := idx.Value(p.A, p.X)
		rb := idx.Value(p.B, p.Y)
		r := uint32((uint64(ra) + uint64(rb)) % uint64(idx.Modulus()))
		if !idx.Contains(r) {
			return false
		}
	}
	return true
}
