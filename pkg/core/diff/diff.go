// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package diff implements a generic, comparator-driven linear merge
// over two sorted slices, classifying every element of both inputs as
// belonging to the left-only, right-only, or both-sides callback.
package diff

// Run walks a and b, both already sorted ascending under less, and
// invokes onlyA for each element found only in a, onlyB for each found
// only in b, and both for each pair considered the same entity.
//
// less(x, y) reports whether x sorts strictly before y. eq(x, y)
// reports whether x and y, once tied under less (neither before the
// other), should be treated as the same entity; eq may be a finer
// comparison than less (e.g. less compares by version alone while eq
// additionally compares path and content hash). At each step: if one
// side is exhausted, the other drains through its own callback; else
// if less(a, b), a is reported via onlyA and a alone advances; else if
// !eq(a, b), b is reported via onlyB and b alone advances (a revisits
// the new head of b on the next step); else both is invoked and both
// sides advance.
func Run[A, B any](
	a []A, b []B,
	less func(A, B) bool,
	eq func(A, B) bool,
	onlyA func(A),
	onlyB func(B),
	both func(A, B),
) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case less(a[i], b[j]):
			onlyA(a[i])
			i++
		case !eq(a[i], b[j]):
			onlyB(b[j])
			j++
		default:
			both(a[i], b[j])
			i++
			j++
		}
	}
	for ; i < len(a); i++ {
		onlyA(a[i])
	}
	for ; j < len(b); j++ {
		onlyB(b[j])
	}
}
