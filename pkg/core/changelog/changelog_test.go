// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package changelog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xsco-labs/dbmig/internal/test/dbcontainer"
	"github.com/xsco-labs/dbmig/pkg/core/changelog"
	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptstream"
)

func mustVer(t *testing.T, s string) model.SemVer {
	t.Helper()
	v, err := model.Parse(s)
	require.NoError(t, err, s)
	return v
}

func TestChangelogLifecycle(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}

	cl := changelog.New("default")
	v100 := mustVer(t, "1.0.0+script.1")
	v110 := mustVer(t, "1.1.0+script.1")

	err := pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		installed, err := cl.Installed(ctx, conn)
		require.NoError(t, err)
		assert.False(t, installed, "changelog table should not exist yet")

		v, err := cl.Version(ctx, conn)
		require.NoError(t, err)
		assert.True(t, v.IsZero())

		err = conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "install/1.0.0+script.1_base.sql",
				scriptstream.Install, nil, v100, "hash1", "tester", time.Second)
		})
		require.NoError(t, err)

		cur, err := cl.Version(ctx, conn)
		require.NoError(t, err)
		assert.True(t, cur.EqualMetadata(v100))

		err = conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.1.0+script.1_a.sql",
				scriptstream.Upgrade, &v100, v110, "hash2", "tester", 2*time.Second)
		})
		require.NoError(t, err)

		cur, err = cl.Version(ctx, conn)
		require.NoError(t, err)
		assert.True(t, cur.EqualMetadata(v110))

		prev, err := cl.PreviousVersion(ctx, conn)
		require.NoError(t, err)
		assert.True(t, prev.EqualMetadata(v100))

		hist, err := cl.ContiguousHistory(ctx, conn, true)
		require.NoError(t, err)
		require.Len(t, hist, 2)
		assert.Equal(t, changelog.Install, hist[0].Action)
		assert.Equal(t, changelog.Upgrade, hist[1].Action)

		steps, err := cl.RollbackSteps(ctx, conn, v100)
		require.NoError(t, err)
		require.Len(t, steps, 1)
		assert.True(t, steps[0].FromVersion.EqualMetadata(v110))
		assert.True(t, steps[0].ToVersion.EqualMetadata(v100))
		assert.Equal(t, "hash2", steps[0].Hash)

		report, err := cl.Show(ctx, conn)
		require.NoError(t, err)
		assert.True(t, report.Installed)
		assert.True(t, report.Current.EqualMetadata(v110))
		return nil
	})
	require.NoError(t, err)
}

func TestRollbackCancelsForwardStep(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	cl := changelog.New("rollback-cancel")
	v100 := mustVer(t, "1.0.0+script.1")
	v110 := mustVer(t, "1.1.0+script.1")

	err := pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "install/1.0.0+script.1_base.sql",
				scriptstream.Install, nil, v100, "hash1", "tester", time.Second)
		}))
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.1.0+script.1_a.sql",
				scriptstream.Upgrade, &v100, v110, "hash2", "tester", time.Second)
		}))
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.1.0+script.1_a.sql",
				scriptstream.Rollback, &v110, v100, "hash2", "tester", time.Second)
		}))

		cur, err := cl.Version(ctx, conn)
		require.NoError(t, err)
		assert.True(t, cur.EqualMetadata(v100), "after rollback the current version reverts")

		hist, err := cl.ContiguousHistory(ctx, conn, true)
		require.NoError(t, err)
		assert.Len(t, hist, 1, "the rollback row cancels the upgrade row it undid")
		assert.Equal(t, changelog.Install, hist[0].Action)
		return nil
	})
	require.NoError(t, err)
}

func TestOverrideVersionResetsBoundary(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	cl := changelog.New("override")
	v200 := mustVer(t, "2.0.0")

	err := pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		require.NoError(t, cl.OverrideVersion(ctx, conn, v200, "operator"))

		cur, err := cl.Version(ctx, conn)
		require.NoError(t, err)
		assert.True(t, cur.EqualMetadata(v200))

		hist, err := cl.ContiguousHistory(ctx, conn, true)
		require.NoError(t, err)
		assert.Empty(t, hist, "override rows never themselves appear in the contiguous history")
		return nil
	})
	require.NoError(t, err)
}
