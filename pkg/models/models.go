// Package models holds the wire types shared between the coordinator and
// workers: search parameters, shards, work-specs, points, and candidates.
package models

// SearchConfig is the immutable (M_b, M_p, P) triple every worker in a
// search run must agree on (spec §3, §4.5 worker compatibility).
type SearchConfig struct {
	MaxBase  uint32   `json:"maxBase"`
	MaxPow   uint32   `json:"maxPow"`
	Primes   []uint32 `json:"primes"`
	RunID    string   `json:"runId"`
}

// Equal reports whether two configurations are interchangeable: same
// bounds, same primes in the same declared order (§4.4 ordering tie-breaks
// depend on prime order, so a reordering is a different configuration).
func (c SearchConfig) Equal(other SearchConfig) bool {
	if c.MaxBase != other.MaxBase || c.MaxPow != other.MaxPow {
		return false
	}
	if len(c.Primes) != len(other.Primes) {
		return false
	}
	for i, p := range c.Primes {
		if other.Primes[i] != p {
			return false
		}
	}
	return true
}

// Shard is the unit of distribution: a single a-value (spec §3).
type Shard struct {
	A uint32 `json:"a"`
}

// WorkSpec is what the coordinator hands a worker: a shard plus the
// configuration it must be evaluated under (spec §3, §6).
type WorkSpec struct {
	Config SearchConfig `json:"config"`
	Shard  Shard        `json:"shard"`
}

// Point is a candidate tuple (a, x, b, y); see spec §3.
type Point struct {
	A uint32 `json:"a"`
	X uint32 `json:"x"`
	B uint32 `json:"b"`
	Y uint32 `json:"y"`
}

// FinishWorkRequest is the body of the finish_work RPC (spec §6).
type FinishWorkRequest struct {
	Shard      Shard   `json:"shard"`
	Candidates []Point `json:"candidates"`
}
