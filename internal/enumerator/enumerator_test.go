package enumerator

import (
	"testing"

	"github.com/rawblock/beal-search/internal/kernel"
)

func drain(e *Enumerator) []Point {
	var pts []Point
	for {
		p, done := e.Next()
		if done {
			break
		}
		pts = append(pts, p)
	}
	return pts
}

// referenceSet builds { (aFixed, x, b, y) : 1<=b<=aFixed, gcd(aFixed,b)=1,
// 3<=x,y<=maxPow } directly, independent of the enumerator implementation.
func referenceSet(maxPow, aFixed uint32) map[Point]bool {
	set := make(map[Point]bool)
	for b := uint32(1); b <= aFixed; b++ {
		if kernel.Gcd(aFixed, b) != 1 {
			continue
		}
		for x := uint32(3); x <= maxPow; x++ {
			for y := uint32(3); y <= maxPow; y++ {
				set[Point{A: aFixed, X: x, B: b, Y: y}] = true
			}
		}
	}
	return set
}

func TestEnumeratorMatchesReferenceSetExactly(t *testing.T) {
	for _, tc := range []struct{ maxBase, maxPow, aFixed uint32 }{
		{10, 6, 1},
		{10, 6, 6},
		{10, 6, 7},
		{12, 5, 12},
		{30, 8, 30},
	} {
		e := New(tc.maxBase, tc.maxPow, tc.aFixed)
		got := drain(e)

		want := referenceSet(tc.maxPow, tc.aFixed)
		if len(got) != len(want) {
			t.Fatalf("aFixed=%d: got %d points, want %d", tc.aFixed, len(got), len(want))
		}
		seen := make(map[Point]bool, len(got))
		for _, p := range got {
			if seen[p] {
				t.Fatalf("aFixed=%d: point %+v emitted twice", tc.aFixed, p)
			}
			seen[p] = true
			if !want[p] {
				t.Fatalf("aFixed=%d: emitted invalid point %+v", tc.aFixed, p)
			}
		}
	}
}

func TestEnumeratorOrderIsLexicographicByBXY(t *testing.T) {
	e := New(10, 5, 10)
	pts := drain(e)

	for i := 1; i < len(pts); i++ {
		prev, cur := pts[i-1], pts[i]
		prevKey := [3]uint32{prev.B, prev.X, prev.Y}
		curKey := [3]uint32{cur.B, cur.X, cur.Y}
		if !lessOrEqual(prevKey, curKey) {
			t.Fatalf("order violation at index %d: %+v then %+v", i, prev, cur)
		}
	}
}

func lessOrEqual(a, b [3]uint32) bool {
	for i := 0; i < 3; i++ {
		if a[i] < b[i] {
			return true
		}
		if a[i] > b[i] {
			return false
		}
	}
	return true
}

func TestEnumeratorIsDeterministicAcrossRuns(t *testing.T) {
	first := drain(New(20, 7, 15))
	second := drain(New(20, 7, 15))

	if len(first) != len(second) {
		t.Fatalf("re-run produced different length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-run diverged at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDoneAfterExhaustionNeverYieldsAgain(t *testing.T) {
	e := New(3, 3, 1) // aFixed=1: only b=1 is coprime with 1
	_, done := e.Next()
	if done {
		t.Fatal("expected at least one point for aFixed=1")
	}
	for {
		_, done := e.Next()
		if done {
			break
		}
	}
	// Further calls must keep reporting done.
	for i := 0; i < 3; i++ {
		p, done := e.Next()
		if !done {
			t.Fatalf("expected done after exhaustion, got point %+v", p)
		}
	}
}

// TestKnownIdentityPruned is spec §8 scenario 1: 3^3 + 6^3 = 3^5. For
// aFixed=6, (6,3,3,3) would match the shape but gcd(6,3)=3>1, so it must
// never be emitted.
func TestKnownIdentityPruned(t *testing.T) {
	e := New(10, 5, 6)
	for _, p := range drain(e) {
		if p.B == 3 {
			t.Fatalf("enumerator emitted b=3 for aFixed=6, but gcd(6,3)=3>1: %+v", p)
		}
	}
}

// TestSharedFactorSkipsSelfPairing is spec §8 scenario 2: for aFixed=3,
// gcd(3,3)=3 so b=3 is skipped and b must range only over {1, 2}
// (gcd(3,2)=1).
func TestSharedFactorSkipsSelfPairing(t *testing.T) {
	e := New(10, 5, 3)
	bs := make(map[uint32]bool)
	for _, p := range drain(e) {
		bs[p.B] = true
	}
	if len(bs) != 2 || !bs[1] || !bs[2] {
		t.Fatalf("expected b to range only over {1, 2} for aFixed=3, got %v", bs)
	}
}

func TestInvalidAFixedIsImmediatelyDone(t *testing.T) {
	for _, aFixed := range []uint32{0, 11} {
		e := New(10, 5, aFixed)
		if _, done := e.Next(); !done {
			t.Fatalf("aFixed=%d out of [1,maxBase] should yield no points", aFixed)
		}
	}
}
