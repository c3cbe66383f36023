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
	"github.com/xsco-labs/dbmig/pkg/core/check"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptrepo"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Cross-reference the changelog against the on-disk script repository",
	Long: `Check loads the changelog's contiguous history (with rolled
back steps cancelled out) and the script repository's expected scripts
over the same version range, and reports every script missing from
either side and every script whose recomputed hash, path, or action
disagrees with what the changelog recorded. A report with no issues
exits 0; any issue exits 1 after printing the full report.`,
	RunE: runCheck,
	Args: cobra.NoArgs,
}

func runCheck(_ *cobra.Command, _ []string) error {
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
	cl := changelog.New(l.cfg.Changeset)

	var issues []check.Issue
	err = l.pool.Conn(ctx, func(ctx context.Context, conn repo.Conn) error {
		var err error
		issues, err = check.Run(ctx, conn, cl, rep, l.cfg.Repository.FS())
		return err
	})
	if err != nil {
		return fmt.Errorf("running check: %w", err)
	}

	for _, issue := range issues {
		printIssue(issue)
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d issue(s) found", len(issues))
	}
	fmt.Println("no issues found")
	return nil
}

func printIssue(i check.Issue) {
	switch i.Kind {
	case check.MissingFromRepository:
		fmt.Printf("missing_from_repository  %-10s %-8s %s\n", i.Version, i.Action, i.Path)
	case check.MissingFromChangelog:
		fmt.Printf("missing_from_changelog    %-10s %-8s %s\n", i.Version, i.Action, i.Path)
	case check.HashMismatch:
		fmt.Printf("hash_mismatch             %-10s %-8s %s\n", i.Version, i.Action, i.Path)
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
