// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xsco-labs/dbmig/internal/test/dbcontainer"
	"github.com/xsco-labs/dbmig/pkg/core/cerr"
	"github.com/xsco-labs/dbmig/pkg/core/changelog"
	"github.com/xsco-labs/dbmig/pkg/core/fsys"
	"github.com/xsco-labs/dbmig/pkg/core/migrate"
	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptrepo"
)

func mustVer(t *testing.T, s string) model.SemVer {
	t.Helper()
	v, err := model.Parse(s)
	require.NoError(t, err, s)
	return v
}

func TestMigrateInstallUpgradeAndRollback(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/1.0.0+script.1_base.sql",
		[]byte("CREATE TABLE widgets (id INT);"))
	mem.WriteFile("repo/upgrade/1.1.0+script.1_a.sql",
		[]byte("ALTER TABLE widgets ADD COLUMN name TEXT;\n--//@UNDO\nALTER TABLE widgets DROP COLUMN name;"))
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("migrate-lifecycle")
	d := &migrate.Driver{Pool: pool, Repo: rep, FS: mem, Changelog: cl, ChangedBy: "tester"}

	require.NoError(t, d.Migrate(ctx, mustVer(t, "1.1.0+script.1")))

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		cur, err := cl.Version(ctx, conn)
		require.NoError(t, err)
		assert.True(t, cur.EqualMetadata(mustVer(t, "1.1.0+script.1")))

		rows, err := conn.Query(ctx, "SELECT name FROM widgets")
		require.NoError(t, err)
		rows.Close()
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, d.Migrate(ctx, mustVer(t, "1.0.0+script.1")))

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		cur, err := cl.Version(ctx, conn)
		require.NoError(t, err)
		assert.True(t, cur.EqualMetadata(mustVer(t, "1.0.0+script.1")))

		_, err = conn.Query(ctx, "SELECT name FROM widgets")
		assert.Error(t, err, "the rolled-back column should no longer exist")
		return nil
	})
	require.NoError(t, err)
}

func TestMigrateRejectsDriftedScriptOnRollback(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/1.0.0+script.1_base.sql",
		[]byte("CREATE TABLE gadgets (id INT);"))
	mem.WriteFile("repo/upgrade/1.1.0+script.1_a.sql",
		[]byte("ALTER TABLE gadgets ADD COLUMN name TEXT;\n--//@UNDO\nALTER TABLE gadgets DROP COLUMN name;"))
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("migrate-drift")
	d := &migrate.Driver{Pool: pool, Repo: rep, FS: mem, Changelog: cl, ChangedBy: "tester"}
	require.NoError(t, d.Migrate(ctx, mustVer(t, "1.1.0+script.1")))

	// The deployed script is edited after the fact, so its recomputed
	// hash no longer matches what the changelog recorded for it.
	mem.WriteFile("repo/upgrade/1.1.0+script.1_a.sql",
		[]byte("ALTER TABLE gadgets ADD COLUMN name TEXT;\n--//@UNDO\nALTER TABLE gadgets DROP COLUMN name; -- edited\n"))
	rep, err = scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)
	d.Repo = rep

	err = d.Migrate(ctx, mustVer(t, "1.0.0+script.1"))
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.KindScriptChangedSinceDeployment))
}

func TestMigrateNoSuitableInstallScript(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/2.0.0+script.1_base.sql",
		[]byte("CREATE TABLE t (id INT);"))
	mem.WriteFile("repo/upgrade/.keep", nil) // an empty upgrade directory
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("migrate-no-install")
	d := &migrate.Driver{Pool: pool, Repo: rep, FS: mem, Changelog: cl, ChangedBy: "tester"}

	err = d.Migrate(ctx, mustVer(t, "1.0.0"))
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.KindNoSuitableInstall))
}

func TestMigrateDeclinedConfirmationCancels(t *testing.T) {
	ctx := context.Background()
	_, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return
	}

	mem := fsys.NewMem()
	mem.WriteFile("repo/install/1.0.0+script.1_base.sql",
		[]byte("CREATE TABLE declined (id INT);"))
	mem.WriteFile("repo/upgrade/.keep", nil) // an empty upgrade directory
	rep, err := scriptrepo.Load(mem, "repo", ".sql")
	require.NoError(t, err)

	cl := changelog.New("migrate-declined")
	d := &migrate.Driver{
		Pool: pool, Repo: rep, FS: mem, Changelog: cl, ChangedBy: "tester",
		Confirm: func(context.Context, string) (bool, error) { return false, nil },
	}

	err = d.Migrate(ctx, mustVer(t, "1.0.0+script.1"))
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.KindUserCancelled))

	err = pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		installed, err := cl.Installed(ctx, conn)
		require.NoError(t, err)
		assert.False(t, installed, "a declined step must not touch the database")
		return nil
	})
	require.NoError(t, err)
}
