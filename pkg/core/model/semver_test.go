// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xsco-labs/dbmig/pkg/core/model"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"0.0.0",
		"1.2.3",
		"1.2.3-alpha",
		"1.2.3-alpha.1",
		"1.2.3+build.5",
		"1.2.3-rc.1+script.7",
		"1.0.0+script.007",
	}
	for _, s := range cases {
		v, err := model.Parse(s)
		require.NoError(t, err, s)
		v2, err := model.Parse(v.String())
		require.NoError(t, err, v.String())
		assert.True(t, v.EqualMetadata(v2), "round-trip %q -> %q -> %q", s, v.String(), v2.String())
	}
}

func TestParseNormalizesLeadingZeros(t *testing.T) {
	a, err := model.Parse("1.0.0+script.007")
	require.NoError(t, err)
	b, err := model.Parse("1.0.0+script.7")
	require.NoError(t, err)
	assert.True(t, a.EqualMetadata(b))
	assert.Equal(t, "1.0.0+script.7", a.String())
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"",
		"1.2",
		"01.2.3",
		"1.2.3-",
		"1.2.3+",
		"1.2.3-.",
		"1.2.3-01",
		"1.2.3-a_b",
	}
	for _, s := range bad {
		_, err := model.Parse(s)
		assert.Error(t, err, s)
	}
}

func TestIsScriptVersion(t *testing.T) {
	v := model.NewScriptVersion(1, 2, 3, 7)
	assert.True(t, v.IsScriptVersion())
	n, ok := v.ScriptNumber()
	assert.True(t, ok)
	assert.Equal(t, uint64(7), n)

	bare := model.New(1, 2, 3)
	assert.False(t, bare.IsScriptVersion())
}

func TestCompareStrictIgnoresBuildMetadata(t *testing.T) {
	a, err := model.Parse("1.2.3+script.1")
	require.NoError(t, err)
	b, err := model.Parse("1.2.3+script.2")
	require.NoError(t, err)
	assert.Equal(t, 0, model.CompareStrict(a, b))
	assert.NotEqual(t, 0, model.CompareMetadata(a, b))
}

func TestCompareLowHighAlignment(t *testing.T) {
	bare, err := model.Parse("1.2.3")
	require.NoError(t, err)
	scripted, err := model.Parse("1.2.3+script.1")
	require.NoError(t, err)

	assert.Less(t, model.CompareLow(bare, scripted), 0,
		"bare sorts below a scripted sibling under the low alignment")
	assert.Greater(t, model.CompareHigh(bare, scripted), 0,
		"bare sorts above a scripted sibling under the high alignment")
}

func TestNextIncrements(t *testing.T) {
	v := model.NewScriptVersion(1, 2, 3, 9)

	assert.True(t, v.NextPatch(false).EqualMetadata(model.New(1, 2, 4)))
	assert.True(t, v.NextMinor(false).EqualMetadata(model.New(1, 3, 0)))
	assert.True(t, v.NextMajor(false).EqualMetadata(model.New(2, 0, 0)))

	kept := v.NextPatch(true)
	n, ok := kept.ScriptNumber()
	assert.True(t, ok)
	assert.Equal(t, uint64(9), n)
}
