// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config is an adapter which allows users to write a yaml
// configuration file and lets the cmd/dbmig CLI instantiate its
// database connection pool and migration settings from it.
// The command layer keeps the parsed and validated Config for the
// duration of one command and passes its fields to the core
// components as individual params.
package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xsco-labs/dbmig/pkg/adapter/db/postgres"
	"github.com/xsco-labs/dbmig/pkg/core/fsys"
	"gopkg.in/yaml.v3"
)

// Config contains all settings which are required in order to point
// the migration engine at a database and a repository of scripts.
// Fields are primitive or locally-defined structs so this file may be
// versioned independently of the core and adapter layers it feeds.
type Config struct {
	Database   Database   `yaml:"database"`
	Repository Repository `yaml:"repository"`
	Changeset  string     `yaml:"changeset"`
	Applier    string     `yaml:"applier"`
}

// Database contains the database related configuration settings.
type Database struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required,min=1,max=65535"`
	Name     string `yaml:"name" validate:"required"`
	Role     string `yaml:"role" validate:"required"`
	PassFile string `yaml:"pass-file" validate:"required"`
}

// NewPool instantiates a new database connection pool based on the
// connection information stored in d, reading the role's password
// from the file named by PassFile rather than embedding it in the
// configuration file itself.
func (d Database) NewPool(ctx context.Context) (*postgres.Pool, error) {
	pass, err := os.ReadFile(d.PassFile)
	if err != nil {
		return nil, fmt.Errorf("reading pass-file: %w", err)
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(d.Role, strings.TrimSpace(string(pass))),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	p, err := postgres.NewPool(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("pool creation: %w", err)
	}
	return p, nil
}

// Repository contains the on-disk repository layout settings.
type Repository struct {
	// Root is the path of the repository's root directory, containing
	// the install and upgrade subdirectories.
	Root string `yaml:"root" validate:"required"`

	// Extension is the script file extension recognized by ScriptDir,
	// including the leading dot. Defaults to ".sql".
	Extension string `yaml:"extension"`
}

// FS returns the filesystem abstraction used to load this
// repository's scripts. It is always the real OS filesystem, whatever
// the Repository value; tests of the core packages pass an in-memory
// fsys.Mem to those packages directly instead.
func (Repository) FS() fsys.FS {
	return fsys.OS{}
}

// Load reads, validates, and normalizes the configuration file at
// path, returning its settings as a *Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	c := &Config{}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if err = c.ValidateAndNormalize(); err != nil {
		return nil, fmt.Errorf("validating configs: %w", err)
	}
	return c, nil
}

// ValidateAndNormalize fills in default values for the settings which
// were left unspecified and validates the result, returning an error
// naming the offending field(s) if it is not acceptable.
func (c *Config) ValidateAndNormalize() error {
	if c.Changeset == "" {
		c.Changeset = "default"
	}
	if c.Repository.Extension == "" {
		c.Repository.Extension = ".sql"
	}
	if c.Applier == "" {
		c.Applier = defaultApplier()
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// defaultApplier derives an identity string for the changed_by column
// from the current OS user and host, falling back to "unknown" when
// either lookup fails (e.g. inside a minimal container image).
func defaultApplier() string {
	name := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return name
	}
	return name + "@" + host
}
