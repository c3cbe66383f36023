// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scriptrepo

import (
	"fmt"
	"path"

	"github.com/xsco-labs/dbmig/pkg/core/cerr"
	"github.com/xsco-labs/dbmig/pkg/core/fsys"
	"github.com/xsco-labs/dbmig/pkg/core/model"
)

// Repository composes the install and upgrade ScriptDir instances
// rooted at one repository path, providing the combined queries the
// migrate and check drivers need. It owns its two ScriptDirs
// exclusively and is immutable once loaded.
type Repository struct {
	root    string
	install *ScriptDir
	upgrade *ScriptDir
}

// Load builds a Repository rooted at root, reading its "install" and
// "upgrade" subdirectories (the "latest" subdirectory named in the
// on-disk layout is outside the migration engine's scope and is not
// read here). ext is the script file extension, including the leading
// dot (e.g. ".sql").
func Load(fs fsys.FS, root, ext string) (*Repository, error) {
	install, err := LoadScriptDir(fs, path.Join(root, "install"), ext)
	if err != nil {
		return nil, fmt.Errorf("loading install scripts: %w", err)
	}
	upgrade, err := LoadScriptDir(fs, path.Join(root, "upgrade"), ext)
	if err != nil {
		return nil, fmt.Errorf("loading upgrade scripts: %w", err)
	}
	return &Repository{root: root, install: install, upgrade: upgrade}, nil
}

// Install returns the repository's install ScriptDir.
func (r *Repository) Install() *ScriptDir { return r.install }

// Upgrade returns the repository's upgrade ScriptDir.
func (r *Repository) Upgrade() *ScriptDir { return r.upgrade }

// LatestVersion returns the greater of the install and upgrade
// directories' maximum keys, or model.Zero() if both are empty.
func (r *Repository) LatestVersion() model.SemVer {
	latest := model.Zero()
	if v, ok := r.install.Max(); ok && model.CompareMetadata(v, latest) > 0 {
		latest = v
	}
	if v, ok := r.upgrade.Max(); ok && model.CompareMetadata(v, latest) > 0 {
		latest = v
	}
	return latest
}

// NearestInstallScript returns the single install entry with the
// greatest key less than or equal to target, and true, or a zero
// ScriptEntry and false if no install script qualifies.
func (r *Repository) NearestInstallScript(target model.SemVer) (ScriptEntry, bool) {
	candidates := r.install.LastLessEqual(target)
	if len(candidates) == 0 {
		return ScriptEntry{}, false
	}
	return candidates[len(candidates)-1], true
}

// UpgradeScriptAt returns the single upgrade entry whose key equals
// ver exactly (under the metadata comparator), and true, or a zero
// ScriptEntry and false if none matches.
func (r *Repository) UpgradeScriptAt(ver model.SemVer) (ScriptEntry, bool) {
	for _, e := range r.upgrade.entries {
		if e.Version.EqualMetadata(ver) {
			return e, true
		}
	}
	return ScriptEntry{}, false
}

// UpgradeScripts returns the ordered list of upgrade entries strictly
// after start and up to and including target, after validating that
// the sequence satisfies the contiguity rule: starting from prev =
// start, each next entry must either share prev's major.minor.patch
// (another script bump at the same triple, any script number), or
// advance exactly one of patch, minor, or major by one (clearing the
// lower components). Any other gap fails with KindScriptNonContiguous,
// naming the offending pair and the path of next.
func (r *Repository) UpgradeScripts(start, target model.SemVer) ([]ScriptEntry, error) {
	entries := r.upgrade.Range(start, target)
	prev := start
	for _, e := range entries {
		if !contiguous(prev, e.Version) {
			return nil, cerr.New(cerr.KindScriptNonContiguous, fmt.Errorf(
				"non-contiguous upgrade step %s -> %s (%s)", prev, e.Version, e.Path,
			))
		}
		prev = e.Version
	}
	return entries, nil
}

// contiguous reports whether next is a legal successor of prev under
// the contiguity rule of the upgrade script sequence.
func contiguous(prev, next model.SemVer) bool {
	if prev.Major() == next.Major() && prev.Minor() == next.Minor() && prev.Patch() == next.Patch() {
		return true
	}
	if next.Major() == prev.Major() && next.Minor() == prev.Minor() && next.Patch() == prev.Patch()+1 {
		return true
	}
	if next.Major() == prev.Major() && next.Minor() == prev.Minor()+1 && next.Patch() == 0 {
		return true
	}
	if next.Major() == prev.Major()+1 && next.Minor() == 0 && next.Patch() == 0 {
		return true
	}
	return false
}
