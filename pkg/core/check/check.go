// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package check cross-references a Repository's scripts with a
// Changelog's history and reports any divergence: a changelog entry
// with no corresponding file, a file with no changelog entry, or a
// file whose recomputed hash (or path, or recorded action) disagrees
// with what the changelog remembers. It never mutates state and never
// aborts early; every issue it finds is collected into one report.
package check

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xsco-labs/dbmig/pkg/core/changelog"
	"github.com/xsco-labs/dbmig/pkg/core/diff"
	"github.com/xsco-labs/dbmig/pkg/core/fsys"
	"github.com/xsco-labs/dbmig/pkg/core/model"
	"github.com/xsco-labs/dbmig/pkg/core/repo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptrepo"
	"github.com/xsco-labs/dbmig/pkg/core/scriptstream"
)

// IssueKind classifies one discrepancy found by Run.
type IssueKind int

const (
	// MissingFromRepository is a changelog row with no corresponding
	// script file in the repository.
	MissingFromRepository IssueKind = iota
	// MissingFromChangelog is a repository script with no
	// corresponding changelog row.
	MissingFromChangelog
	// HashMismatch is a script present in both, whose path, action,
	// or content hash disagrees between the two sides.
	HashMismatch
)

func (k IssueKind) String() string {
	switch k {
	case MissingFromRepository:
		return "missing_from_repository"
	case MissingFromChangelog:
		return "missing_from_changelog"
	case HashMismatch:
		return "hash_mismatch"
	default:
		return fmt.Sprintf("issue(%d)", int(k))
	}
}

// Issue is one discrepancy found between the repository and the
// changelog for a given version.
type Issue struct {
	Kind       IssueKind
	Version    model.SemVer
	Action     string
	Path       string
	Hash       string
	ChangeRow  *changelog.Row // set for MissingFromRepository and HashMismatch
	ScriptPath string         // the repository's path, set for MissingFromChangelog and HashMismatch
}

// scriptRef is one entry of the expected, ordered script list derived
// from the repository between first_version and the check ceiling.
type scriptRef struct {
	entry  scriptrepo.ScriptEntry
	action scriptstream.Action
}

// Run cross-references repo's scripts with cl's history and returns
// every issue found. An empty report (nil, nil) is returned when the
// changelog's excluded-rolled-back history is empty or its ceiling is
// the zero version, per §4.7 step 1.
func Run(
	ctx context.Context, q repo.Queryer,
	cl *changelog.Changelog, rep *scriptrepo.Repository, fs fsys.FS,
) ([]Issue, error) {
	history, err := cl.ContiguousHistory(ctx, q, true)
	if err != nil {
		return nil, fmt.Errorf("loading changelog history: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}
	ceiling := history[len(history)-1].ToVersion
	if ceiling.IsZero() {
		return nil, nil
	}
	firstVersion := history[0].ToVersion

	expected, err := expectedScripts(rep, firstVersion, ceiling)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	diff.Run(
		history, expected,
		func(r changelog.Row, s scriptRef) bool {
			return model.CompareMetadata(r.ToVersion, s.entry.Version) < 0
		},
		func(r changelog.Row, s scriptRef) bool {
			return model.CompareMetadata(r.ToVersion, s.entry.Version) == 0
		},
		func(r changelog.Row) {
			issues = append(issues, Issue{
				Kind:      MissingFromRepository,
				Version:   r.ToVersion,
				Action:    string(r.Action),
				Path:      r.ScriptPath,
				Hash:      r.Hash,
				ChangeRow: &r,
			})
		},
		func(s scriptRef) {
			// A hashing failure (e.g. the file was deleted after the
			// repository was loaded) still reports the issue, with an
			// empty hash, rather than aborting the whole report.
			hash, _ := hashScript(fs, s)
			issues = append(issues, Issue{
				Kind:       MissingFromChangelog,
				Version:    s.entry.Version,
				Action:     s.action.String(),
				Path:       s.entry.Path,
				Hash:       hash,
				ScriptPath: s.entry.Path,
			})
		},
		func(r changelog.Row, s scriptRef) {
			hash, _ := hashScript(fs, s)
			if hash == r.Hash && r.ScriptPath == s.entry.Path && string(r.Action) == s.action.String() {
				return
			}
			issues = append(issues, Issue{
				Kind:       HashMismatch,
				Version:    r.ToVersion,
				Action:     string(r.Action),
				Path:       r.ScriptPath,
				Hash:       hash,
				ChangeRow:  &r,
				ScriptPath: s.entry.Path,
			})
		},
	)
	return issues, nil
}

// expectedScripts builds the ordered list of scripts which should be
// present between firstVersion and ceiling: an install entry is
// prepended when the repository has one at or below firstVersion, and
// the lower bound for the upgrade range is the install's version when
// found, otherwise firstVersion itself (§9's documented open question,
// resolved by mirroring the source exactly).
func expectedScripts(rep *scriptrepo.Repository, firstVersion, ceiling model.SemVer) ([]scriptRef, error) {
	var out []scriptRef
	lower := firstVersion
	if inst, ok := rep.NearestInstallScript(firstVersion); ok {
		out = append(out, scriptRef{entry: inst, action: scriptstream.Install})
		lower = inst.Version
	}
	ups, err := rep.UpgradeScripts(lower, ceiling)
	if err != nil {
		return nil, fmt.Errorf("enumerating expected upgrade scripts: %w", err)
	}
	for _, e := range ups {
		out = append(out, scriptRef{entry: e, action: scriptstream.Upgrade})
	}
	return out, nil
}

// hashScript recomputes s's content hash using the stream mode
// matching its action.
func hashScript(fs fsys.FS, s scriptRef) (string, error) {
	content, err := fs.ReadFile(s.entry.Path)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", s.entry.Path, err)
	}
	res, err := scriptstream.Process(bytes.NewReader(content), s.action)
	if err != nil {
		return "", fmt.Errorf("hashing %q: %w", s.entry.Path, err)
	}
	return res.Hash, nil
}
