// Package coordinator implements the shard queue and the get_work /
// finish_work RPC semantics of spec §4.5: strict a-axis partitioning,
// at-most-once dispensing (absent re-dispatch), and idempotent
// completion recording guarded by a single critical section.
package coordinator

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rawblock/beal-search/internal/db"
	"github.com/rawblock/beal-search/pkg/models"
)

// Coordinator holds the shard state and the result log for one search
// run's lifetime (spec §3 Lifecycles). All shard-set mutation and log
// appends happen under a single mutex, matching the donor PostgresStore's
// transaction-scoped critical sections.
type Coordinator struct {
	config models.SearchConfig
	log    *ResultLog
	store  *db.PostgresStore // optional durable mirror

	mu              sync.Mutex
	nextDispense    uint32
	outstanding     map[uint32]bool
	completed       map[uint32]bool
	totalCandidates int64
}

// New creates a Coordinator for config, writing completed candidates to
// resultLog (required) and, if store is non-nil, mirroring shard
// completions into Postgres. completedFromStore pre-seeds already-finished
// shards recovered from a prior process lifetime (spec §9 open question on
// re-dispatch is distinct from this: this is plain restart recovery, not
// lost-worker re-dispatch).
func New(config models.SearchConfig, resultLog *ResultLog, store *db.PostgresStore, completedFromStore map[uint32]bool) *Coordinator {
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	completed := make(map[uint32]bool, len(completedFromStore))
	for a := range completedFromStore {
		completed[a] = true
	}
	return &Coordinator{
		config:       config,
		log:          resultLog,
		store:        store,
		nextDispense: 1,
		outstanding:  make(map[uint32]bool),
		completed:    completed,
	}
}

// RunID returns the search run identifier carried on every work-spec.
func (c *Coordinator) RunID() string {
	return c.config.RunID
}

// GetWork returns the next undispensed, incomplete shard wrapped with the
// search configuration, or ok=false when the a-axis is exhausted (spec
// §4.5, §6). Dispensing order is simply increasing a — implementation
// defined per spec, chosen for its determinism and simplicity.
func (c *Coordinator) GetWork() (models.WorkSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.nextDispense <= c.config.MaxBase {
		a := c.nextDispense
		c.nextDispense++
		if c.completed[a] || c.outstanding[a] {
			continue
		}
		c.outstanding[a] = true
		return models.WorkSpec{Config: c.config, Shard: models.Shard{A: a}}, true
	}
	return models.WorkSpec{}, false
}

// FinishWork records shard completion and appends every candidate to the
// result log. If the shard was already marked complete the call is a
// no-op (duplicate-delivery idempotence, spec §4.5, §8). The duplicate
// check, log append, and (if configured) database mirror all happen
// inside one critical section (spec §5).
//
// A log-write failure is fatal to the coordinator process (spec §6, §7
// kind 3: "log-write failure at the coordinator: fatal; the coordinator
// aborts rather than silently dropping candidates"). There is no safe
// recovery from a write that may have partially landed, so FinishWork
// aborts immediately instead of returning the failure to its caller as
// an ordinary HTTP error that would leave the server running.
func (c *Coordinator) FinishWork(ctx context.Context, shard models.Shard, candidates []models.Point) (duplicate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed[shard.A] {
		return true
	}

	if err := c.log.Append(candidates); err != nil {
		log.Fatalf("[Coordinator] FATAL: result log write failed for shard a=%d, aborting: %+v",
			shard.A, errors.Wrapf(err, "appending %d candidates", len(candidates)))
	}

	if c.store != nil {
		if dbErr := c.store.RecordShardCompletion(ctx, c.config.RunID, shard.A, candidates); dbErr != nil {
			log.Printf("[Coordinator] warning: failed to mirror shard a=%d completion to DB: %v", shard.A, dbErr)
		}
	}

	c.completed[shard.A] = true
	delete(c.outstanding, shard.A)
	c.totalCandidates += int64(len(candidates))

	log.Printf("[Coordinator] shard a=%d complete: %d candidates (total so far: %d)",
		shard.A, len(candidates), c.totalCandidates)
	return false
}

// Status is a point-in-time snapshot for the dashboard/status endpoint.
type Status struct {
	RunID           string `json:"runId"`
	MaxBase         uint32 `json:"maxBase"`
	Dispensed       uint32 `json:"dispensed"`
	Completed       int    `json:"completed"`
	Outstanding     int    `json:"outstanding"`
	TotalCandidates int64  `json:"totalCandidates"`
	Exhausted       bool   `json:"exhausted"`
}

// Status returns a snapshot of the queue's progress.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	dispensed := c.nextDispense - 1
	exhausted := c.nextDispense > c.config.MaxBase && len(c.outstanding) == 0
	return Status{
		RunID:           c.config.RunID,
		MaxBase:         c.config.MaxBase,
		Dispensed:       dispensed,
		Completed:       len(c.completed),
		Outstanding:     len(c.outstanding),
		TotalCandidates: c.totalCandidates,
		Exhausted:       exhausted,
	}
}
