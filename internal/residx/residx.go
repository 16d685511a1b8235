// Package residx implements the c^z residue index (spec §4.2): a
// precomputed table of c^z mod m for 1 <= c <= M_b, 3 <= z <= M_p, plus a
// flat bitset over the full 2^32 residue range supporting O(1) membership
// queries. One Index is built per filter prime.
package residx

import (
	"fmt"
	"log"

	"github.com/rawblock/beal-search/internal/kernel"
)

// BitsetBytes is the fixed memory cost of one Index's membership bitset,
// independent of M_b/M_p — the table is addressed by the full 32-bit
// residue, not by the number of populated entries (~512 MiB, per spec §3).
const BitsetBytes = bitsetWords * 8

// Index answers value(c, z) and contains(r) for one filter prime.
type Index struct {
	modulus uint32
	maxBase uint32
	maxPow  uint32
	vals    [][]uint32 // vals[c][z], c in [1,maxBase], z in [3,maxPow]
	exists  *bitset
}

// Build constructs the index for modulus m, populating vals[c][z] for
// every c in [1, maxBase] and z in [3, maxPow] and marking each resulting
// residue in the membership bitset. Total work is maxBase*(maxPow-2)
// modular exponentiations (spec §4.2).
func Build(maxBase, maxPow, m uint32) (*Index, error) {
	if maxBase < 1 {
		return nil, fmt.Errorf("residx: maxBase must be >= 1, got %d", maxBase)
	}
	if maxPow < 3 {
		return nil, fmt.Errorf("residx: maxPow must be >= 3, got %d", maxPow)
	}
	if m == 0 {
		return nil, fmt.Errorf("residx: modulus must be non-zero")
	}

	idx := &Index{
		modulus: m,
		maxBase: maxBase,
		maxPow:  maxPow,
		vals:    make([][]uint32, maxBase+1),
		exists:  newBitset(),
	}

	for c := uint32(1); c <= maxBase; c++ {
		row := make([]uint32, maxPow+1)
		for z := uint32(3); z <= maxPow; z++ {
			r := kernel.Modpow(uint64(c), uint64(z), m)
			row[z] = r
			idx.exists.set(r)
		}
		idx.vals[c] = row
	}

	log.Printf("[ResidueIndex] built modulus=%d maxBase=%d maxPow=%d bitset=%d MiB",
		m, maxBase, maxPow, BitsetBytes/(1<<20))

	return idx, nil
}

// Modulus returns the prime this index was built for.
func (idx *Index) Modulus() uint32 {
	return idx.modulus
}

// Value returns the stored residue c^z mod m for 1 <= c <= maxBase and
// 3 <= z <= maxPow. Undefined outside the populated range — callers in
// the search loop never query outside it (spec §4.2).
func (idx *Index) Value(c, z uint32) uint32 {
	return idx.vals[c][z]
}

// Contains reports whether some populated (c, z) produced residue r.
// False positives in the filtering sense are possible and expected
// (spec §4.2) — that is the point of a probabilistic filter, not a bug in
// this method, which itself is exact with respect to what was populated.
func (idx *Index) Contains(r uint32) bool {
	return idx.exists.get(r)
}

// Witness is a (c, z) pair whose residue matches a surviving candidate.
type Witness struct {
	C, Z uint32
}

// WitnessesFor scans vals for every (c, z) producing residue r. This is a
// linear scan with no back-pointer from the bitset (spec §4.2) — it is run
// at most once per surviving candidate during downstream verification,
// never on the hot per-point probe path.
func (idx *Index) WitnessesFor(r uint32) []Witness {
	var out []Witness
	for c := uint32(1); c <= idx.maxBase; c++ {
		row := idx.vals[c]
		for z := uint32(3); z <= idx.maxPow; z++ {
			if row[z] == r {
				out = append(out, Witness{C: c, Z: z})
			}
		}
	}
	return out
}
