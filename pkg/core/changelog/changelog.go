// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package changelog persists the ordered sequence of actions applied
// to one database's schema, under one changeset label, and answers the
// queries the check and migrate drivers need: the current and previous
// version, the contiguous history since the last install boundary, and
// the rollback plan required to reach an earlier version. All writes
// happen under a caller-owned transaction so a script's execution and
// its changelog row are always committed (or rolled back) together.
package changelog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptstream"
)

// EmptyHash is the SHA-256 hash of the empty string, used as the
// sha256_hash of an override row (which has no associated script).
const EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func init() {
	if got := hex.EncodeToString(sha256.New().Sum(nil)); got != EmptyHash {
		panic(fmt.Sprintf("changelog: EmptyHash constant %q does not match sha256(\"\") %q", EmptyHash, got))
	}
}

// Action is the closed set of ways a changelog row may have been
// produced. Unlike scriptstream.Action, this set additionally
// includes Override, a pseudo-action with no associated script.
type Action string

const (
	Install  Action = "install"
	Upgrade  Action = "upgrade"
	Rollback Action = "rollback"
	Override Action = "override"
)

// scriptAction converts a scriptstream.Action into the matching
// changelog Action, used when Write records a script execution.
func scriptAction(a scriptstream.Action) Action {
	switch a {
	case scriptstream.Install:
		return Install
	case scriptstream.Upgrade:
		return Upgrade
	case scriptstream.Rollback:
		return Rollback
	default:
		return Action(a.String())
	}
}

// Row is one persisted changelog entry.
type Row struct {
	ID             int64
	Changeset      string
	Applied        time.Time
	Decommissioned *time.Time
	ScriptPath     string
	Action         Action
	FromVersion    *model.SemVer
	ToVersion      model.SemVer
	Hash           string
	ChangedBy      string
	TimeTaken      time.Duration
}

// RollbackStep describes one script execution required to move the
// database from FromVersion back to ToVersion during a rollback.
type RollbackStep struct {
	FromVersion model.SemVer
	ToVersion   model.SemVer
	Hash        string
}

// Changelog is bound to one changeset label and is opened fresh for
// each command invocation. It holds no database session of its own:
// every method takes the repo.Queryer or repo.Conn to run against.
type Changelog struct {
	changeset string
}

// New returns a Changelog bound to changeset.
func New(changeset string) *Changelog {
	return &Changelog{changeset: changeset}
}

const ddl = `
CREATE TABLE IF NOT EXISTS dbmig_changelog (
	id BIGSERIAL PRIMARY KEY,
	changeset TEXT NOT NULL,
	applied TIMESTAMPTZ NOT NULL DEFAULT now(),
	decommissioned TIMESTAMPTZ,
	script_path TEXT NOT NULL,
	action TEXT NOT NULL,
	from_version TEXT,
	to_version TEXT NOT NULL,
	sha256_hash CHAR(64) NOT NULL,
	changed_by TEXT NOT NULL,
	time_taken INTERVAL NOT NULL
);
CREATE OR REPLACE FUNCTION dbmig_decommission_prior() RETURNS TRIGGER AS $body$
BEGIN
	UPDATE dbmig_changelog SET decommissioned = now()
	WHERE changeset = NEW.changeset AND id <> NEW.id AND decommissioned IS NULL;
	RETURN NEW;
END;
$body$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS dbmig_decommission_trigger ON dbmig_changelog;
CREATE TRIGGER dbmig_decommission_trigger AFTER INSERT ON dbmig_changelog
FOR EACH ROW EXECUTE FUNCTION dbmig_decommission_prior();
`

// ensureTable creates the changelog table if it does not already
// exist, and (re)creates its decommissioning trigger and the supporting
// function on every call.
// The trigger is purely informational (§3's Invariants never consult
// the decommissioned column) but is carried since it is part of the
// persisted table's documented shape.
func ensureTable(ctx context.Context, q repo.Queryer) error {
	if _, err := q.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring changelog table: %w", err)
	}
	return nil
}

// Installed reports whether the changelog table exists.
func (cl *Changelog) Installed(ctx context.Context, q repo.Queryer) (bool, error) {
	rows, err := q.Query(ctx, `SELECT to_regclass('dbmig_changelog') IS NOT NULL`)
	if err != nil {
		return false, fmt.Errorf("checking changelog table: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return false, rows.Err()
	}
	var exists bool
	if err := rows.Scan(&exists); err != nil {
		return false, fmt.Errorf("scanning changelog table check: %w", err)
	}
	return exists, rows.Err()
}

// Version returns the to_version of the most recent row for this
// changeset, or model.Zero() if there are none.
func (cl *Changelog) Version(ctx context.Context, q repo.Queryer) (model.SemVer, error) {
	row, ok, err := cl.latestRow(ctx, q)
	if err != nil || !ok {
		return model.Zero(), err
	}
	return row.ToVersion, nil
}

// PreviousVersion returns the from_version of the most recent row for
// this changeset, or model.Zero() if there are none or it is null.
func (cl *Changelog) PreviousVersion(ctx context.Context, q repo.Queryer) (model.SemVer, error) {
	row, ok, err := cl.latestRow(ctx, q)
	if err != nil || !ok || row.FromVersion == nil {
		return model.Zero(), err
	}
	return *row.FromVersion, nil
}

func (cl *Changelog) latestRow(ctx context.Context, q repo.Queryer) (Row, bool, error) {
	installed, err := cl.Installed(ctx, q)
	if err != nil || !installed {
		return Row{}, false, err
	}
	rows, err := cl.selectRows(ctx, q, `WHERE changeset = $1 ORDER BY id DESC LIMIT 1`, cl.changeset)
	if err != nil {
		return Row{}, false, err
	}
	if len(rows) == 0 {
		return Row{}, false, nil
	}
	return rows[0], true, nil
}

// ShowReport summarises a changeset's state for the show command.
type ShowReport struct {
	Changeset string
	Installed bool
	Current   model.SemVer
	Previous  model.SemVer
}

// Show reports whether the changelog table exists and, if so, this
// changeset's current and previous versions.
func (cl *Changelog) Show(ctx context.Context, q repo.Queryer) (ShowReport, error) {
	report := ShowReport{Changeset: cl.changeset}
	installed, err := cl.Installed(ctx, q)
	if err != nil || !installed {
		return report, err
	}
	report.Installed = true
	if report.Current, err = cl.Version(ctx, q); err != nil {
		return report, err
	}
	if report.Previous, err = cl.PreviousVersion(ctx, q); err != nil {
		return report, err
	}
	return report, nil
}

// OverrideVersion forces the current version to v without running any
// script, inside its own transaction: the table is created if absent,
// then a single override row is inserted with a null from_version, the
// hash of the empty string, and zero elapsed time.
func (cl *Changelog) OverrideVersion(
	ctx context.Context, conn repo.Conn, v model.SemVer, changedBy string,
) error {
	return conn.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
		if err := ensureTable(ctx, tx); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO dbmig_changelog
				(changeset, script_path, action, from_version, to_version, sha256_hash, changed_by, time_taken)
			VALUES ($1, '', $2, NULL, $3, $4, $5, interval '0')
		`, cl.changeset, string(Override), v.String(), EmptyHash, changedBy)
		if err != nil {
			return fmt.Errorf("inserting override row: %w", err)
		}
		return nil
	})
}

// Write records one script execution, creating the changelog table
// first if it does not yet exist. Write does not commit: the caller
// owns the transaction boundary (typically the migrate driver, which
// opens one transaction per script so its execution and this row are
// atomic).
func (cl *Changelog) Write(
	ctx context.Context, q repo.Queryer,
	scriptPath string, action scriptstream.Action,
	from *model.SemVer, to model.SemVer, hash string,
	changedBy string, elapsed time.Duration,
) error {
	if err := ensureTable(ctx, q); err != nil {
		return err
	}
	var fromStr any
	if from != nil {
		fromStr = from.String()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO dbmig_changelog
			(changeset, script_path, action, from_version, to_version, sha256_hash, changed_by, time_taken)
		VALUES ($1, $2, $3, $4, $5, $6, $7, make_interval(secs => $8))
	`, cl.changeset, scriptPath, string(scriptAction(action)), fromStr, to.String(), hash, changedBy, elapsed.Seconds())
	if err != nil {
		return fmt.Errorf("inserting changelog row: %w", err)
	}
	return nil
}
