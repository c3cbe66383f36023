// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xsco-labs/dbmig/pkg/core/changelog"
	"github.com/xsco-labs/dbmig/pkg/core/migrate"
	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/scriptrepo"
)

var migrateVersion string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Install, upgrade, or roll back the database to a target version",
	Long: `Migrate brings the database to the requested --version: it
installs a baseline if the changelog is empty, upgrades forward through
the repository's upgrade scripts if the target is newer, or rolls back
through the changelog's recorded steps if the target is older. Each
script runs in its own transaction together with the changelog row it
produces. Unless --force is given, every step is confirmed
interactively before its transaction opens.`,
	RunE: runMigrate,
	Args: cobra.NoArgs,
}

func runMigrate(_ *cobra.Command, _ []string) error {
	target, err := model.Parse(migrateVersion)
	if err != nil {
		return fmt.Errorf("parsing --version %q: %w", migrateVersion, err)
	}

	ctx := runContext()
	l, err := setup(ctx)
	if err != nil {
		return err
	}
	defer l.pool.Close()

	rep, err := scriptrepo.Load(l.cfg.Repository.FS(), l.cfg.Repository.Root, l.cfg.Repository.Extension)
	if err != nil {
		return fmt.Errorf("loading script repository: %w", err)
	}

	d := &migrate.Driver{
		Pool:      l.pool,
		Repo:      rep,
		FS:        l.cfg.Repository.FS(),
		Changelog: changelog.New(l.cfg.Changeset),
		ChangedBy: l.cfg.Applier,
		Confirm:   confirmer(),
	}
	if err := d.Migrate(ctx, target); err != nil {
		return fmt.Errorf("migrating to %s: %w", target, err)
	}
	return nil
}

func init() {
	migrateCmd.Flags().StringVar(&migrateVersion, "version", "", "target schema version")
	_ = migrateCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(migrateCmd)
}
