// Package enumerator implements the (a, x, b, y) cursor over a single
// fixed a-value's half-space (spec §4.3): a restartable, stateful
// iterator rather than a callback, since the call rate is the innermost
// loop of the whole search.
package enumerator

import "github.com/rawblock/beal-search/internal/kernel"

// Enumerator is a resumable cursor over { (aFixed, x, b, y) : 1 <= b <=
// aFixed, gcd(aFixed, b) = 1, 3 <= x,y <= maxPow }, emitted in lexicographic
// (b, x, y) order with y innermost. Re-creating an Enumerator for the same
// (maxBase, maxPow, aFixed) and draining it yields an identical sequence —
// required so re-executing a shard is reproducible (spec §4.3).
type Enumerator struct {
	maxBase uint32
	maxPow  uint32
	aFixed  uint32

	b    uint32
	x    uint32
	y    uint32
	done bool
}

// Point is one emitted (aFixed, x, b, y) tuple.
type Point struct {
	A, X, B, Y uint32
}

// New creates a cursor for a single shard: aFixed must satisfy
// 1 <= aFixed <= maxBase. The cursor starts positioned on the first valid
// point, which the first Next call returns.
func New(maxBase, maxPow, aFixed uint32) *Enumerator {
	e := &Enumerator{
		maxBase: maxBase,
		maxPow:  maxPow,
		aFixed:  aFixed,
		b:       1,
		x:       3,
		y:       3,
	}
	if aFixed < 1 || aFixed > maxBase || maxPow < 3 {
		e.done = true
		return e
	}
	// b advancement skips any b with gcd(aFixed, b) > 1 before the first
	// point is ever yielded (spec §4.3's coprime precondition).
	for e.b <= e.aFixed && kernel.Gcd(e.aFixed, e.b) != 1 {
		e.b++
	}
	if e.b > e.aFixed {
		e.done = true
	}
	return e
}

// Next returns the current point and advances the cursor. done is true
// exactly when no more valid points remain; point is invalid and must not
// be consumed once done is true (spec §4.3).
func (e *Enumerator) Next() (Point, bool) {
	if e.done {
		return Point{}, true
	}

	p := Point{A: e.aFixed, X: e.x, B: e.b, Y: e.y}
	e.advance()
	return p, false
}

// advance moves the cursor to the next valid point, or marks it done.
// Order: y innermost, then x, then b; b-advancement re-applies the
// coprime-skip precondition so every yielded b satisfies gcd(aFixed,b)=1.
func (e *Enumerator) advance() {
	e.y++
	if e.y <= e.maxPow {
		return
	}
	e.y = 3
	e.x++
	if e.x <= e.maxPow {
		return
	}
	e.x = 3
	e.b++
	for e.b <= e.aFixed && kernel.Gcd(e.aFixed, e.b) != 1 {
		e.b++
	}
	if e.b > e.aFixed {
		e.done = true
	}
}

// Done reports whether the cursor is exhausted without consuming a point.
func (e *Enumerator) Done() bool {
	return e.done
}
