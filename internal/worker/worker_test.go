package worker

import (
	"errors"
	"testing"

	"github.com/rawblock/beal-search/internal/kernel"
	"github.com/rawblock/beal-search/internal/residx"
	"github.com/rawblock/beal-search/pkg/models"
)

func cfg(maxBase, maxPow uint32, primes ...uint32) models.SearchConfig {
	return models.SearchConfig{MaxBase: maxBase, MaxPow: maxPow, Primes: primes, RunID: "test-run"}
}

// referenceCandidates computes the expected candidate set directly from
// kernel.Modpow/Gcd, independent of the enumerator/residx implementations,
// mirroring spec §8 scenario 5.
func referenceCandidates(maxBase, maxPow, aFixed uint32, primes []uint32) []models.Point {
	var out []models.Point
	for b := uint32(1); b <= aFixed; b++ {
		if kernel.Gcd(aFixed, b) != 1 {
			continue
		}
		for x := uint32(3); x <= maxPow; x++ {
			for y := uint32(3); y <= maxPow; y++ {
				accept := true
				for _, m := range primes {
					ra := kernel.Modpow(uint64(aFixed), uint64(x), m)
					rb := kernel.Modpow(uint64(b), uint64(y), m)
					r := (ra + rb) % m
					if !residueAppearsSomewhere(maxBase, maxPow, m, r) {
						accept = false
						break
					}
				}
				if accept {
					out = append(out, models.Point{A: aFixed, X: x, B: b, Y: y})
				}
			}
		}
	}
	return out
}

func residueAppearsSomewhere(maxBase, maxPow, m, r uint32) bool {
	for c := uint32(1); c <= maxBase; c++ {
		for z := uint32(3); z <= maxPow; z++ {
			if kernel.Modpow(uint64(c), uint64(z), m) == r {
				return true
			}
		}
	}
	return false
}

func TestRunMatchesReferenceFilterChain(t *testing.T) {
	const maxBase, maxPow = 10, 5
	primes := []uint32{101, 103}

	w := New(0)
	if err := w.Bind(cfg(maxBase, maxPow, primes...)); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	got, err := w.Run(models.Shard{A: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := referenceCandidates(maxBase, maxPow, 7, primes)
	if len(got) != len(want) {
		t.Fatalf("got %d candidates, want %d\ngot:  %+v\nwant: %+v", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRunIsDeterministicAcrossRepeatedShards(t *testing.T) {
	w := New(0)
	if err := w.Bind(cfg(10, 5, 101, 103)); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	first, err := w.Run(models.Shard{A: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := w.Run(models.Shard{A: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("re-run length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-run diverged at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBindRefusesMismatchedConfiguration(t *testing.T) {
	w := New(0)
	if err := w.Bind(cfg(10, 5, 101)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	err := w.Bind(cfg(10, 5, 103))
	if !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("expected ErrConfigMismatch, got %v", err)
	}
}

func TestBindIsIdempotentForIdenticalConfiguration(t *testing.T) {
	w := New(0)
	c := cfg(10, 5, 101, 103)
	if err := w.Bind(c); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	if err := w.Bind(c); err != nil {
		t.Fatalf("second identical Bind should succeed, got: %v", err)
	}
}

func TestBindRefusesOverMemoryCeiling(t *testing.T) {
	w := New(residx.BitsetBytes) // room for exactly one index
	err := w.Bind(cfg(10, 5, 101, 103))
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
}

func TestRunBeforeBindFails(t *testing.T) {
	w := New(0)
	if _, err := w.Run(models.Shard{A: 1}); err == nil {
		t.Fatal("expected error running before Bind")
	}
}

func TestRunRejectsShardOutsideRange(t *testing.T) {
	w := New(0)
	if err := w.Bind(cfg(10, 5, 101)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := w.Run(models.Shard{A: 11}); err == nil {
		t.Fatal("expected error for shard a=11 outside [1,10]")
	}
}

func TestStatsAccumulateAcrossShards(t *testing.T) {
	w := New(0)
	if err := w.Bind(cfg(10, 5, 101, 103)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := w.Run(models.Shard{A: 7}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := w.Run(models.Shard{A: 8}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	shards, _ := w.Stats()
	if shards != 2 {
		t.Fatalf("shardsCompleted = %d, want 2", shards)
	}
}
