// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scriptrepo

import (
	"fmt"
	"path"
	"sort"

	"github.com/xsco-labs/dbmig/pkg/core/cerr"
	"github.com/xsco-labs/dbmig/pkg/core/fsys"
	"github.com/xsco-labs/dbmig/pkg/core/model"
)

// ScriptEntry is one script version bound to the path of its script
// file, relative to the ScriptDir's root.
type ScriptEntry struct {
	Version model.SemVer
	Path    string
}

// ScriptDir is an ordered, immutable mapping from script version to
// relative file path, loaded once at construction from a directory.
// Entries are kept sorted by the metadata comparator so range queries
// (first_greater, last_less_equal, Range) can be answered by binary
// search.
type ScriptDir struct {
	entries []ScriptEntry
}

// LoadScriptDir scans the directory at root (using fs) and builds a
// ScriptDir. Script files are recognized either directly under root
// (parsed with the top-level filename grammar, where the script.N
// build-metadata is mandatory) or one level down, inside a "X.Y.Z/"
// subdirectory (parsed with the subdirectory grammar, where the script
// number may be bare, "script."-prefixed, or fully qualified). A file
// with a different extension, or a subdirectory whose name does not
// parse as a version, is ignored; a subdirectory named with a script
// version fails with a bad-filename error.
func LoadScriptDir(fs fsys.FS, root, ext string) (*ScriptDir, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, cerr.New(cerr.KindFilesystem, fmt.Errorf(
			"stat %q: %w", root, err,
		))
	}
	if !info.IsDir() {
		return nil, cerr.New(cerr.KindFilesystem, fmt.Errorf(
			"%q is not a directory", root,
		))
	}
	children, err := fs.ReadDir(root)
	if err != nil {
		return nil, cerr.New(cerr.KindFilesystem, fmt.Errorf(
			"reading directory %q: %w", root, err,
		))
	}

	sd := &ScriptDir{}
	for _, child := range children {
		if !child.IsDir {
			if ext != "" && path.Ext(child.Name) != ext {
				continue
			}
			v, err := parseTopLevel(child.Name, ext)
			if err != nil {
				return nil, err
			}
			if err := sd.insert(v, child.Name); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := model.Parse(child.Name); err != nil {
			continue // not a "X.Y.Z" subdirectory, skip silently
		}
		subRoot := path.Join(root, child.Name)
		grandchildren, err := fs.ReadDir(subRoot)
		if err != nil {
			return nil, cerr.New(cerr.KindFilesystem, fmt.Errorf(
				"reading directory %q: %w", subRoot, err,
			))
		}
		for _, gc := range grandchildren {
			if gc.IsDir || (ext != "" && path.Ext(gc.Name) != ext) {
				continue
			}
			v, err := parseSubdir(child.Name, gc.Name, ext)
			if err != nil {
				return nil, err
			}
			rel := path.Join(child.Name, gc.Name)
			if err := sd.insert(v, rel); err != nil {
				return nil, err
			}
		}
	}
	sort.Slice(sd.entries, func(i, j int) bool {
		return model.CompareMetadata(sd.entries[i].Version, sd.entries[j].Version) < 0
	})
	return sd, nil
}

// insert adds (v, relPath) to sd, failing with a uniqueness error if v
// already collides with a previously inserted entry's key.
func (sd *ScriptDir) insert(v model.SemVer, relPath string) error {
	for _, e := range sd.entries {
		if e.Version.EqualMetadata(v) {
			return cerr.New(cerr.KindScriptDirUniqueness, fmt.Errorf(
				"version %s is claimed by both %q and %q", v, e.Path, relPath,
			))
		}
	}
	sd.entries = append(sd.entries, ScriptEntry{Version: v, Path: relPath})
	return nil
}

// Len returns the number of entries in sd.
func (sd *ScriptDir) Len() int {
	return len(sd.entries)
}

// Entries returns a copy of sd's entries in ascending version order.
// Callers must not rely on mutating the returned slice affecting sd.
func (sd *ScriptDir) Entries() []ScriptEntry {
	out := make([]ScriptEntry, len(sd.entries))
	copy(out, sd.entries)
	return out
}

// Max returns the greatest key in sd under the metadata comparator, or
// model.Zero() and false if sd is empty.
func (sd *ScriptDir) Max() (model.SemVer, bool) {
	if len(sd.entries) == 0 {
		return model.Zero(), false
	}
	return sd.entries[len(sd.entries)-1].Version, true
}

// firstGreaterIdx returns the index of the first entry whose key
// compares strictly greater than v under cmp.
func (sd *ScriptDir) firstGreaterIdx(v model.SemVer, cmp func(a, b model.SemVer) int) int {
	return sort.Search(len(sd.entries), func(i int) bool {
		return cmp(sd.entries[i].Version, v) > 0
	})
}

// lastLessEqualIdx returns the index one past the last entry whose key
// compares less than or equal to v under cmp.
func (sd *ScriptDir) lastLessEqualIdx(v model.SemVer, cmp func(a, b model.SemVer) int) int {
	return sort.Search(len(sd.entries), func(i int) bool {
		return cmp(sd.entries[i].Version, v) > 0
	})
}

// FirstGreater returns the entries from the first one whose key
// compares strictly greater than v, under the low (non-script)
// alignment, to the end of sd.
func (sd *ScriptDir) FirstGreater(v model.SemVer) []ScriptEntry {
	idx := sd.firstGreaterIdx(v, model.CompareLow)
	return sd.Entries()[idx:]
}

// LastLessEqual returns the entries from the start of sd up to and
// including the last one whose key compares less than or equal to v,
// under the high (non-script) alignment.
func (sd *ScriptDir) LastLessEqual(v model.SemVer) []ScriptEntry {
	idx := sd.lastLessEqualIdx(v, model.CompareHigh)
	return sd.Entries()[:idx]
}

// Range returns the half-open range of entries with key strictly
// greater than from (low alignment) and less than or equal to to
// (high alignment), in ascending order.
func (sd *ScriptDir) Range(from, to model.SemVer) []ScriptEntry {
	lo := sd.firstGreaterIdx(from, model.CompareLow)
	hi := sd.lastLessEqualIdx(to, model.CompareHigh)
	if hi < lo {
		return nil
	}
	return sd.Entries()[lo:hi]
}
