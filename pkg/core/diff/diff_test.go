// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xsco-labs/dbmig/pkg/core/diff"
)

func TestRunIntegerRanges(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := []int{2, 4}

	var onlyA, onlyB []int
	var both [][2]int
	diff.Run(a, b,
		func(x, y int) bool { return x < y },
		func(x, y int) bool { return x == y },
		func(x int) { onlyA = append(onlyA, x) },
		func(y int) { onlyB = append(onlyB, y) },
		func(x, y int) { both = append(both, [2]int{x, y}) },
	)

	assert.Equal(t, []int{1, 3, 5}, onlyA)
	assert.Empty(t, onlyB)
	assert.Equal(t, [][2]int{{2, 2}, {4, 4}}, both)
}

func TestRunEveryElementReportedExactlyOnce(t *testing.T) {
	a := []int{1, 2, 4, 6, 8}
	b := []int{2, 3, 6, 7}

	seenA := map[int]int{}
	seenB := map[int]int{}
	diff.Run(a, b,
		func(x, y int) bool { return x < y },
		func(x, y int) bool { return x == y },
		func(x int) { seenA[x]++ },
		func(y int) { seenB[y]++ },
		func(x, y int) { seenA[x]++; seenB[y]++ },
	)

	for _, x := range a {
		assert.Equal(t, 1, seenA[x], "element %d of a must be reported exactly once", x)
	}
	for _, y := range b {
		assert.Equal(t, 1, seenB[y], "element %d of b must be reported exactly once", y)
	}
}

func TestRunOneSideEmpty(t *testing.T) {
	a := []int{1, 2, 3}
	var onlyA []int
	diff.Run[int, int](a, nil,
		func(x, y int) bool { return x < y },
		func(x, y int) bool { return x == y },
		func(x int) { onlyA = append(onlyA, x) },
		func(int) { t.Fatal("onlyB should not be called with an empty b") },
		func(int, int) { t.Fatal("both should not be called with an empty b") },
	)
	assert.Equal(t, a, onlyA)
}
