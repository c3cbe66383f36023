// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package changelog

import (
	"context"
	"fmt"
	"time"

	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
)

// selectRows runs a SELECT over dbmig_changelog's columns with the
// given suffix (a WHERE/ORDER BY/LIMIT clause) and args, returning the
// matched rows in whatever order the suffix requests.
func (cl *Changelog) selectRows(
	ctx context.Context, q repo.Queryer, suffix string, args ...any,
) ([]Row, error) {
	query := `
		SELECT id, changeset, applied, decommissioned, script_path, action,
		       from_version, to_version, sha256_hash, changed_by,
		       EXTRACT(EPOCH FROM time_taken)
		FROM dbmig_changelog
	` + suffix
	rset, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying changelog rows: %w", err)
	}
	defer rset.Close()
	var rows []Row
	for rset.Next() {
		var (
			r           Row
			fromVerStr  *string
			toVerStr    string
			elapsedSecs float64
		)
		if err := rset.Scan(
			&r.ID, &r.Changeset, &r.Applied, &r.Decommissioned, &r.ScriptPath,
			&r.Action, &fromVerStr, &toVerStr, &r.Hash, &r.ChangedBy, &elapsedSecs,
		); err != nil {
			return nil, fmt.Errorf("scanning changelog row: %w", err)
		}
		if fromVerStr != nil {
			v, err := model.Parse(*fromVerStr)
			if err != nil {
				return nil, fmt.Errorf("parsing from_version %q: %w", *fromVerStr, err)
			}
			r.FromVersion = &v
		}
		to, err := model.Parse(toVerStr)
		if err != nil {
			return nil, fmt.Errorf("parsing to_version %q: %w", toVerStr, err)
		}
		r.ToVersion = to
		r.TimeTaken = time.Duration(elapsedSecs * float64(time.Second))
		rows = append(rows, r)
	}
	return rows, rset.Err()
}
