// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package check_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xsco-labs/dbmig/internal/test/dbcontainer"
	"github.com/xsco-labs/dbmig/pkg/core/changelog"
	"github.com/xsco-labs/dbmig/pkg/core/check"
	"github.com/xsco-labs/dbmig/pkg/core/fsys"
	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptrepo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptstream"
)

func mustVer(t *testing.T, s string) model.SemVer {
	t.Helper()
	v, err := model.Parse(s)
	require.NoError(t, err, s)
	return v
}

func hashOf(t *testing.T, content string, action scriptstream.Action) string {
	t.Helper()
	res, err := scriptstream.Process(bytes.NewReader([]byte(content)), action)
	require.NoError(t, err)
	return res.Hash
}

func TestCheckNoIssuesWhenInSync(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/1.0.0+script.1_base.sql", []byte("CREATE TABLE t (id INT);"))
	mem.WriteFile("repo/upgrade/1.1.0+script.1_a.sql", []byte("ALTER TABLE t ADD COLUMN n TEXT;"))
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("check-sync")
	v100 := mustVer(t, "1.0.0+script.1")
	v110 := mustVer(t, "1.1.0+script.1")
	installHash := hashOf(t, "CREATE TABLE t (id INT);", scriptstream.Install)
	upgradeHash := hashOf(t, "ALTER TABLE t ADD COLUMN n TEXT;", scriptstream.Upgrade)

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "install/1.0.0+script.1_base.sql",
				scriptstream.Install, nil, v100, installHash, "tester", time.Second)
		}))
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.1.0+script.1_a.sql",
				scriptstream.Upgrade, &v100, v110, upgradeHash, "tester", time.Second)
		}))

		issues, err := check.Run(ctx, conn, cl, rep, mem)
		require.NoError(t, err)
		assert.Empty(t, issues)
		return nil
	})
	require.NoError(t, err)
}

func TestCheckDetectsHashMismatch(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/1.0.0+script.1_base.sql", []byte("CREATE TABLE t (id INT);"))
	mem.WriteFile("repo/upgrade/.keep", nil) // an empty upgrade directory
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("check-mismatch")
	v100 := mustVer(t, "1.0.0+script.1")

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "install/1.0.0+script.1_base.sql",
				scriptstream.Install, nil, v100, "stale-hash-from-an-edited-file", "tester", time.Second)
		}))

		issues, err := check.Run(ctx, conn, cl, rep, mem)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, check.HashMismatch, issues[0].Kind)
		assert.Equal(t, "install/1.0.0+script.1_base.sql", issues[0].Path)
		return nil
	})
	require.NoError(t, err)
}

func TestCheckDetectsMissingFromChangelog(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/1.0.0+script.1_base.sql", []byte("CREATE TABLE t (id INT);"))
	mem.WriteFile("repo/upgrade/1.1.0+script.1_a.sql", []byte("ALTER TABLE t ADD COLUMN n TEXT;"))
	mem.WriteFile("repo/upgrade/1.2.0+script.1_b.sql", []byte("ALTER TABLE t ADD COLUMN m TEXT;"))
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("check-missing-cl")
	v100 := mustVer(t, "1.0.0+script.1")
	v120 := mustVer(t, "1.2.0+script.1")
	installHash := hashOf(t, "CREATE TABLE t (id INT);", scriptstream.Install)
	lastUpgradeHash := hashOf(t, "ALTER TABLE t ADD COLUMN m TEXT;", scriptstream.Upgrade)

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "install/1.0.0+script.1_base.sql",
				scriptstream.Install, nil, v100, installHash, "tester", time.Second)
		}))
		// The changelog jumps straight from 1.0.0 to 1.2.0; the 1.1.0
		// upgrade file exists on disk but was never recorded applied.
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.2.0+script.1_b.sql",
				scriptstream.Upgrade, &v100, v120, lastUpgradeHash, "tester", time.Second)
		}))

		issues, err := check.Run(ctx, conn, cl, rep, mem)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, check.MissingFromChangelog, issues[0].Kind)
		assert.Equal(t, "upgrade/1.1.0+script.1_a.sql", issues[0].Path)
		return nil
	})
	require.NoError(t, err)
}

func TestCheckDetectsMissingFromRepository(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/1.0.0+script.1_base.sql", []byte("CREATE TABLE t (id INT);"))
	mem.WriteFile("repo/upgrade/.keep", nil) // an empty upgrade directory
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("check-missing-repo")
	v100 := mustVer(t, "1.0.0+script.1")
	v110 := mustVer(t, "1.1.0+script.1")
	installHash := hashOf(t, "CREATE TABLE t (id INT);", scriptstream.Install)

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "install/1.0.0+script.1_base.sql",
				scriptstream.Install, nil, v100, installHash, "tester", time.Second)
		}))
		// The changelog remembers applying a 1.1.0 upgrade whose file
		// has since been deleted from the repository.
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.1.0+script.1_a.sql",
				scriptstream.Upgrade, &v100, v110, "some-hash", "tester", time.Second)
		}))

		issues, err := check.Run(ctx, conn, cl, rep, mem)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, check.MissingFromRepository, issues[0].Kind)
		assert.Equal(t, "upgrade/1.1.0+script.1_a.sql", issues[0].Path)
		return nil
	})
	require.NoError(t, err)
}

// TestCheckFirstVersionIgnoresOverrideBoundaryFromVersion exercises the
// history window that follows an override row: installBoundaryWindow
// strips the override itself, so history[0] is the first upgrade row
// applied afterwards, whose FromVersion is non-nil. expectedScripts
// must anchor on history[0].ToVersion regardless, so that very first
// upgrade's own script is outside the checked range (it established
// the override's target, the same way an install script establishes
// its own version) and is reported, not silently treated as expected.
func TestCheckFirstVersionIgnoresOverrideBoundaryFromVersion(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/.keep", nil) // an empty install directory
	mem.WriteFile("repo/upgrade/1.1.0+script.1_a.sql", []byte("ALTER TABLE t ADD COLUMN a TEXT;"))
	mem.WriteFile("repo/upgrade/1.2.0+script.1_b.sql", []byte("ALTER TABLE t ADD COLUMN b TEXT;"))
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("check-override-boundary")
	v100 := mustVer(t, "1.0.0")
	v110 := mustVer(t, "1.1.0+script.1")
	v120 := mustVer(t, "1.2.0+script.1")
	hash110 := hashOf(t, "ALTER TABLE t ADD COLUMN a TEXT;", scriptstream.Upgrade)
	hash120 := hashOf(t, "ALTER TABLE t ADD COLUMN b TEXT;", scriptstream.Upgrade)

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		require.NoError(t, cl.OverrideVersion(ctx, conn, v100, "operator"))
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.1.0+script.1_a.sql",
				scriptstream.Upgrade, &v100, v110, hash110, "tester", time.Second)
		}))
		require.NoError(t, conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			return cl.Write(ctx, tx, "upgrade/1.2.0+script.1_b.sql",
				scriptstream.Upgrade, &v110, v120, hash120, "tester", time.Second)
		}))

		issues, err := check.Run(ctx, conn, cl, rep, mem)
		require.NoError(t, err)
		require.Len(t, issues, 1, "only the upgrade that lands exactly on the override boundary is unaccounted for")
		assert.Equal(t, check.MissingFromRepository, issues[0].Kind)
		assert.Equal(t, "upgrade/1.1.0+script.1_a.sql", issues[0].Path)
		return nil
	})
	require.NoError(t, err)
}
