package residx

import (
	"testing"

	"github.com/rawblock/beal-search/internal/kernel"
)

func TestBuildRejectsInvalidBounds(t *testing.T) {
	if _, err := Build(0, 5, 97); err == nil {
		t.Fatal("expected error for maxBase=0")
	}
	if _, err := Build(5, 2, 97); err == nil {
		t.Fatal("expected error for maxPow<3")
	}
	if _, err := Build(5, 5, 0); err == nil {
		t.Fatal("expected error for modulus=0")
	}
}

func TestValueMatchesModpow(t *testing.T) {
	const m = 4294967291 // largest 32-bit prime
	idx, err := Build(10, 10, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for c := uint32(1); c <= 10; c++ {
		for z := uint32(3); z <= 10; z++ {
			want := kernel.Modpow(uint64(c), uint64(z), m)
			if got := idx.Value(c, z); got != want {
				t.Fatalf("Value(%d,%d) = %d, want %d", c, z, got, want)
			}
		}
	}
}

// TestFullCoverageAndCardinality is spec §8 scenario 4: after Build with
// M_b=100, M_p=100, every populated (c,z) must round-trip through
// Contains(Value(c,z)), and the bitset's cardinality must equal the
// number of distinct residues produced (<= 100*98).
func TestFullCoverageAndCardinality(t *testing.T) {
	const m = 4294967291
	const maxBase, maxPow = 100, 100

	idx, err := Build(maxBase, maxPow, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	distinct := make(map[uint32]bool)
	for c := uint32(1); c <= maxBase; c++ {
		for z := uint32(3); z <= maxPow; z++ {
			r := idx.Value(c, z)
			distinct[r] = true
			if !idx.Contains(r) {
				t.Fatalf("Contains(Value(%d,%d)=%d) = false, want true", c, z, r)
			}
		}
	}

	if maxPossible := maxBase * (maxPow - 2); len(distinct) > maxPossible {
		t.Fatalf("distinct residue count %d exceeds theoretical max %d", len(distinct), maxPossible)
	}

	if got, want := idx.exists.popcount(), uint64(len(distinct)); got != want {
		t.Fatalf("bitset popcount = %d, want %d (distinct residues produced)", got, want)
	}
}

// TestContainsRoundTripsToAPopulatedPair checks, for every populated
// (c,z), that r = Value(c,z) is reported by Contains(r) and that
// WitnessesFor(r) leads back to that same (c,z).
func TestContainsRoundTripsToAPopulatedPair(t *testing.T) {
	const m = 65537
	idx, err := Build(20, 8, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for c := uint32(1); c <= 20; c++ {
		for z := uint32(3); z <= 8; z++ {
			r := idx.Value(c, z)
			if !idx.Contains(r) {
				t.Fatalf("Contains(%d) = false for populated pair (%d,%d)", r, c, z)
			}
			witnesses := idx.WitnessesFor(r)
			found := false
			for _, w := range witnesses {
				if w.C == c && w.Z == z {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("WitnessesFor(%d) does not include producing pair (%d,%d)", r, c, z)
			}
		}
	}
}

func TestBitsetSizeIsFixedRegardlessOfBounds(t *testing.T) {
	small, err := Build(2, 3, 97)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := small.exists.bytesAllocated(); got != BitsetBytes {
		t.Fatalf("bitset allocation = %d bytes, want %d (fixed at 2^32 bits)", got, BitsetBytes)
	}
}
