// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package migrate orchestrates installing, upgrading, or rolling back
// a database's schema to a requested version, coordinating the
// scriptrepo, changelog, and scriptstream packages with one
// transaction per script so its execution and changelog row are
// always committed, or rolled back, together.
package migrate

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xsco-labs/dbmig/pkg/core/cerr"
	"github.com/xsco-labs/dbmig/pkg/core/changelog"
	"github.com/xsco-labs/dbmig/pkg/core/fsys"
	"github.com/xsco-labs/dbmig/pkg/core/log"
	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptrepo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptstream"
)

// Confirmer prompts the operator about to run the named step and
// reports whether they allowed it to proceed. A nil Confirmer (the
// Driver's zero value) means every step proceeds without asking,
// matching an unattended or --force invocation; interactive prompting
// and its console formatting are the CLI layer's concern, not this
// package's.
type Confirmer func(ctx context.Context, step string) (bool, error)

// Driver coordinates one migration command against one database
// connection pool, repository, and changelog.
type Driver struct {
	Pool      repo.Pool
	Repo      *scriptrepo.Repository
	FS        fsys.FS
	Changelog *changelog.Changelog
	ChangedBy string
	Confirm   Confirmer
}

// Migrate brings the database to target: installing a baseline if no
// version is recorded yet, then upgrading if the current version is
// lower, or rolling back if it is higher. If the resulting version still
// differs from target once these steps finish (e.g. because no
// upgrade path reaches it exactly), a warning is logged rather than an
// error returned, per the migrate driver's final step.
func (d *Driver) Migrate(ctx context.Context, target model.SemVer) error {
	return d.Pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		current, err := d.Changelog.Version(ctx, conn)
		if err != nil {
			return fmt.Errorf("reading current version: %w", err)
		}
		if current.IsZero() {
			if err := d.installBaseline(ctx, conn, target); err != nil {
				return err
			}
			if current, err = d.Changelog.Version(ctx, conn); err != nil {
				return fmt.Errorf("reading installed version: %w", err)
			}
		}
		switch {
		case model.CompareMetadata(current, target) < 0:
			if err := d.upgrade(ctx, conn, current, target); err != nil {
				return err
			}
		case model.CompareMetadata(current, target) > 0:
			if err := d.rollback(ctx, conn, target); err != nil {
				return err
			}
		}
		final, err := d.Changelog.Version(ctx, conn)
		if err != nil {
			return fmt.Errorf("reading final version: %w", err)
		}
		if !final.EqualMetadata(target) {
			log.Warn(ctx, "migration finished away from requested target",
				slog.String("target", target.String()),
				slog.String("final", final.String()),
			)
		}
		return nil
	})
}

// installBaseline locates the nearest install script at or below
// target and runs it, establishing the database's first version.
func (d *Driver) installBaseline(ctx context.Context, conn repo.Conn, target model.SemVer) error {
	entry, ok := d.Repo.NearestInstallScript(target)
	if !ok {
		return cerr.New(cerr.KindNoSuitableInstall, fmt.Errorf(
			"no install script at or below %s", target,
		))
	}
	return d.runScript(ctx, conn, entry, scriptstream.Install, nil, entry.Version, "")
}

// upgrade runs every upgrade script strictly after current and up to
// and including target, in order, advancing the current version after
// each successful step.
func (d *Driver) upgrade(ctx context.Context, conn repo.Conn, current, target model.SemVer) error {
	entries, err := d.Repo.UpgradeScripts(current, target)
	if err != nil {
		return err
	}
	prev := current
	for _, e := range entries {
		from := prev
		if err := d.runScript(ctx, conn, e, scriptstream.Upgrade, &from, e.Version, ""); err != nil {
			return err
		}
		prev = e.Version
	}
	return nil
}

// rollback asks the changelog for the steps required to return to
// target, verifies the plan's first step matches the current version,
// and runs each step's upgrade script in rollback mode, passing along
// the hash recorded at deployment time so a drifted file is rejected.
func (d *Driver) rollback(ctx context.Context, conn repo.Conn, target model.SemVer) error {
	steps, err := d.Changelog.RollbackSteps(ctx, conn, target)
	if err != nil {
		return fmt.Errorf("computing rollback plan: %w", err)
	}
	if len(steps) == 0 {
		return cerr.New(cerr.KindNoRollbackPath, fmt.Errorf(
			"no rollback path from current version to %s", target,
		))
	}
	current, err := d.Changelog.Version(ctx, conn)
	if err != nil {
		return fmt.Errorf("reading current version: %w", err)
	}
	if !steps[0].FromVersion.EqualMetadata(current) {
		return cerr.New(cerr.KindInternalInconsistency, fmt.Errorf(
			"rollback plan's first step %s does not match current version %s",
			steps[0].FromVersion, current,
		))
	}
	for _, step := range steps {
		entry, ok := d.Repo.UpgradeScriptAt(step.FromVersion)
		if !ok {
			return cerr.New(cerr.KindNoRollbackPath, fmt.Errorf(
				"upgrade script for version %s is missing from the repository", step.FromVersion,
			))
		}
		from := step.FromVersion
		if err := d.runScript(ctx, conn, entry, scriptstream.Rollback, &from, step.ToVersion, step.Hash); err != nil {
			return err
		}
	}
	return nil
}

// runScript reads, hashes, and optionally confirms entry, then runs
// its statements (tokenised for the given action) and writes the
// matching changelog row in one transaction. If expectedHash is
// non-empty and disagrees with the recomputed hash, the script is
// rejected before any confirmation prompt or transaction is opened, as
// a drift detector on a script already deployed under the hash the
// changelog recorded.
func (d *Driver) runScript(
	ctx context.Context, conn repo.Conn,
	entry scriptrepo.ScriptEntry, action scriptstream.Action,
	from *model.SemVer, to model.SemVer, expectedHash string,
) error {
	content, err := d.FS.ReadFile(entry.Path)
	if err != nil {
		return cerr.New(cerr.KindFilesystem, fmt.Errorf(
			"reading script %q: %w", entry.Path, err,
		))
	}
	res, err := scriptstream.Process(bytes.NewReader(content), action)
	if err != nil {
		return fmt.Errorf("processing script %q: %w", entry.Path, err)
	}
	if expectedHash != "" && res.Hash != expectedHash {
		return cerr.New(cerr.KindScriptChangedSinceDeployment, fmt.Errorf(
			"script %q has changed since it was deployed", entry.Path,
		))
	}
	if d.Confirm != nil {
		ok, err := d.Confirm(ctx, fmt.Sprintf("%s %s (%s)", action, to, entry.Path))
		if err != nil {
			return fmt.Errorf("confirming %s of %s: %w", action, entry.Path, err)
		}
		if !ok {
			return cerr.New(cerr.KindUserCancelled, fmt.Errorf(
				"%s of %s was declined", action, entry.Path,
			))
		}
	}
	start := time.Now()
	err = conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
		for i, stmt := range res.Statements {
			log.Debug(ctx, "running statement",
				slog.String("path", entry.Path), slog.Int("index", i))
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("executing statement in %q: %w", entry.Path, err)
			}
		}
		elapsed := time.Since(start)
		return d.Changelog.Write(
			ctx, tx, entry.Path, action, from, to, res.Hash, d.ChangedBy, elapsed,
		)
	})
	if err != nil {
		return err
	}
	log.Info(ctx, "applied script",
		slog.String("path", entry.Path),
		slog.String("action", action.String()),
		slog.String("to", to.String()),
	)
	return nil
}
