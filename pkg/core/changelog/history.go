// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package changelog

import (
	"context"

	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
)

// installBoundaryWindow returns every row for this changeset in
// chronological order, truncated to start at the most recent install
// or override row (inclusive); if no such row exists, the whole
// history is returned. Override rows are then dropped, since they are
// a pseudo-action that never corresponds to a script.
func (cl *Changelog) installBoundaryWindow(ctx context.Context, q repo.Queryer) ([]Row, error) {
	installed, err := cl.Installed(ctx, q)
	if err != nil || !installed {
		return nil, err
	}
	all, err := cl.selectRows(ctx, q, `WHERE changeset = $1 ORDER BY id ASC`, cl.changeset)
	if err != nil {
		return nil, err
	}
	boundary := 0
	for i, r := range all {
		if r.Action == Install || r.Action == Override {
			boundary = i
		}
	}
	window := all[boundary:]
	out := make([]Row, 0, len(window))
	for _, r := range window {
		if r.Action != Override {
			out = append(out, r)
		}
	}
	return out, nil
}

// filterRolledBack applies the skip-counter algorithm over rows
// (assumed in chronological order): scanning newest-first, each
// Rollback row increments a skip counter and is itself dropped; each
// non-rollback row is dropped (and the counter decremented) while the
// counter is positive, or kept otherwise. The result is returned back
// in chronological order.
func filterRolledBack(rows []Row) []Row {
	skip := 0
	kept := make([]Row, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		if r.Action == Rollback {
			skip++
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		kept = append(kept, r)
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// ContiguousHistory returns the rows from the most recent install or
// override row (inclusive) up to the current row, in chronological
// order, with override rows filtered out. If excludeRolledBack is set,
// the result is further post-processed with filterRolledBack so that
// every rollback row cancels the forward step it undid.
func (cl *Changelog) ContiguousHistory(
	ctx context.Context, q repo.Queryer, excludeRolledBack bool,
) ([]Row, error) {
	window, err := cl.installBoundaryWindow(ctx, q)
	if err != nil {
		return nil, err
	}
	if !excludeRolledBack {
		return window, nil
	}
	return filterRolledBack(window), nil
}

// RollbackSteps computes the ordered list of RollbackSteps required to
// move the database from its current version back to target, using
// the changelog restricted to the most recent install boundary. The
// anchor search only considers Upgrade rows: a Rollback row also
// carries a non-nil FromVersion (the higher version it rolled back
// from), so matching against it too could anchor the plan on a step
// that does not actually lead to target. It returns an empty slice
// (not an error) if target does not appear as the from_version of any
// Upgrade row in that window, meaning no rollback path exists from the
// current state to target.
func (cl *Changelog) RollbackSteps(
	ctx context.Context, q repo.Queryer, target model.SemVer,
) ([]RollbackStep, error) {
	window, err := cl.installBoundaryWindow(ctx, q)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, r := range window {
		if r.Action == Upgrade && r.FromVersion != nil && r.FromVersion.EqualMetadata(target) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}
	filtered := filterRolledBack(window[idx:])
	if len(filtered) == 0 {
		return nil, nil
	}
	n := len(filtered)
	steps := make([]RollbackStep, n)
	for i := 0; i < n; i++ {
		r := filtered[n-1-i]
		to := model.Zero()
		if r.FromVersion != nil {
			to = *r.FromVersion
		}
		steps[i] = RollbackStep{FromVersion: r.ToVersion, ToVersion: to, Hash: r.Hash}
	}
	return steps, nil
}
