// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xsco-labs/dbmig/pkg/core/changelog"
	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
)

var overrideVersion string

var overrideVersionCmd = &cobra.Command{
	Use:   "override-version",
	Short: "Force the changelog's current version without running any script",
	Long: `Override-version inserts a changelog row recording --version
as the current version, without reading or running any script. It
exists for recovering a changelog that has fallen out of sync with the
database's actual state; it does not verify that the database schema
actually matches the version being recorded.`,
	RunE: runOverrideVersion,
	Args: cobra.NoArgs,
}

func runOverrideVersion(_ *cobra.Command, _ []string) error {
	v, err := model.Parse(overrideVersion)
	if err != nil {
		return fmt.Errorf("parsing --version %q: %w", overrideVersion, err)
	}

	ctx := runContext()
	l, err := setup(ctx)
	if err != nil {
		return err
	}
	defer l.pool.Close()

	if c := confirmer(); c != nil {
		ok, err := c(ctx, fmt.Sprintf("override changelog version to %s", v))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("override-version to %s was declined", v)
		}
	}

	cl := changelog.New(l.cfg.Changeset)
	return l.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		return cl.OverrideVersion(ctx, conn, v, l.cfg.Applier)
	})
}

func init() {
	overrideVersionCmd.Flags().StringVar(&overrideVersion, "version", "", "version to record")
	_ = overrideVersionCmd.MarkFlagRequired("version")
	rootCmd.AddCommand(overrideVersionCmd)
}
