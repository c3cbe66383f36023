// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root and sub-commands of the dbmig
// command line tool, organized using the cobra library, mirroring the
// teacher project's cmd/caweb/command package structure.
//
//	dbmig show      [-c /path/to/config.yaml]
//	dbmig check     [-c /path/to/config.yaml]
//	dbmig migrate   --version X.Y.Z [-c ...] [--force]
//	dbmig override-version --version X.Y.Z [-c ...] [--force]
package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/xsco-labs/dbmig/pkg/adapter/config"
	"github.com/xsco-labs/dbmig/pkg/adapter/db/postgres"
)

var (
	cfgPath string
	force   bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dbmig",
	Short: "A version-driven PostgreSQL schema migration engine",
	Long: `dbmig applies, checks, and rolls back versioned SQL scripts
against a PostgreSQL database, recording every applied step in a
changelog table so the database's current schema version is always
known and its history can be verified against the on-disk repository
of scripts.`,
}

// Execute runs the rootCmd which parses CLI arguments and flags and
// dispatches to the most specific cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath, initLogging)
	rootCmd.PersistentFlags().StringVarP(
		&cfgPath, "config", "c", "", "config file path",
	)
	rootCmd.PersistentFlags().BoolVar(
		&force, "force", false,
		"skip interactive confirmation before each script",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug-level logging",
	)
}

// fixConfigPath ensures that cfgPath is set respectively by either the
// CLI args, the DBMIG_CONFIG environment variable, or its default
// value.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("DBMIG_CONFIG"); !found {
		cfgPath = "dbmig.yaml"
	}
}

// initLogging installs the run-ID-aware slog handler at the level
// requested by --verbose.
func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(runIDHandler{Handler: h}))
}

// runContext attaches a fresh run ID to a background context, so every
// log line emitted for the lifetime of one command invocation can be
// correlated, both with each other and with the changelog row(s) it
// produced.
func runContext() context.Context {
	return withRunID(context.Background(), uuid.NewString())
}

// loaded bundles the config and connection pool every subcommand
// needs; callers must Close the pool once done.
type loaded struct {
	cfg  *config.Config
	pool *postgres.Pool
}

func setup(ctx context.Context) (*loaded, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", cfgPath, err)
	}
	pool, err := cfg.Database.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &loaded{cfg: cfg, pool: pool}, nil
}
