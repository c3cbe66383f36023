// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package postgres

import (
	"context"

	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"gorm.io/gorm"
)

// Conn represents a database connection obtained from a Pool.
// It is unsafe to be used concurrently. A connection may be used
// in order to execute one or more SQL statements or start transactions
// one at a time. Conn embeds the *gorm.DB, hence, may be used like
// GORM from within the scriptrepo/changelog packages.
type Conn struct {
	*gorm.DB
}

// TxHandler is a handler function which takes a context and an ongoing
// transaction.
type TxHandler = repo.TxHandler

// Tx begins a new transaction on this connection, calls f with the
// fresh transaction, and commits it when f returns nil; any error
// returned by f (or a panic recovered from f) rolls the transaction
// back instead.
func (c *Conn) Tx(ctx context.Context, f TxHandler) error {
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(ctx, &Tx{DB: tx})
	})
}

// Exec runs SQL statements with given args given ctx context.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tt := c.DB.WithContext(ctx).Exec(sql, args...)
	if err := tt.Error; err != nil {
		return 0, err
	}
	return tt.RowsAffected, nil
}

// Query runs a SQL statement with given args given ctx context.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (repo.Rows, error) {
	rows, err := c.DB.WithContext(ctx).Raw(sql, args...).Rows()
	return rowsAdapter{rows}, err
}

// IsConn method prevents a non-Conn object (such as a Tx) to
// mistakenly implement the Conn interface.
func (c *Conn) IsConn() {
}

// GORM returns the embedded *gorm.DB instance, configuring it
// to operate on the given ctx context (in a gorm.Session).
func (c *Conn) GORM(ctx context.Context) *gorm.DB {
	return c.DB.WithContext(ctx)
}
