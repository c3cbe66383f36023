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
	"github.com/xsco-labs/dbmig/pkg/core/repo"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the changeset's current and previous schema version",
	RunE:  show,
	Args:  cobra.NoArgs,
}

func show(_ *cobra.Command, _ []string) error {
	ctx := runContext()
	l, err := setup(ctx)
	if err != nil {
		return err
	}
	defer l.pool.Close()

	cl := changelog.New(l.cfg.Changeset)
	var report changelog.ShowReport
	err = l.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		var err error
		report, err = cl.Show(ctx, conn)
		return err
	})
	if err != nil {
		return fmt.Errorf("reading changelog: %w", err)
	}
	printShow(report)
	return nil
}

func printShow(r changelog.ShowReport) {
	fmt.Printf("changeset:  %s\n", r.Changeset)
	if !r.Installed {
		fmt.Println("status:     no changelog table installed yet")
		return
	}
	fmt.Printf("current:    %s\n", r.Current)
	if !r.Previous.IsZero() {
		fmt.Printf("previous:   %s\n", r.Previous)
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
