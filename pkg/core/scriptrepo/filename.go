// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scriptrepo loads a directory of versioned SQL scripts into
// an ordered, invariant-checked mapping from script version to
// relative file path, and composes the install/upgrade pair of such
// directories into a Repository with range queries over the combined
// upgrade history.
package scriptrepo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xsco-labs/dbmig/pkg/core/cerr"
	"github.com/xsco-labs/dbmig/pkg/core/model"
)

// parseTopLevel parses a top-level script filename against the
// grammar X.Y.Z+script.N[_DESC][.ext], where the trailing ".ext"
// (including the leading dot) must equal ext exactly and the
// "script.N" build-metadata piece is mandatory.
func parseTopLevel(name, ext string) (model.SemVer, error) {
	stem, ok := trimExt(name, ext)
	if !ok {
		return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
			"%q does not have the %q extension", name, ext,
		))
	}
	stem = trimDescription(stem)
	v, err := model.Parse(stem)
	if err != nil {
		return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
			"%q does not parse as a version: %w", name, err,
		))
	}
	if !v.IsScriptVersion() {
		return model.SemVer{}, cerr.New(cerr.KindIncompleteFilename, fmt.Errorf(
			"%q is not a script version (missing script.N build metadata)", name,
		))
	}
	return v, nil
}

// parseSubdir parses a filename found inside a "X.Y.Z/" subdirectory
// against the grammar [X.Y.Z+][script.]N[_DESC][.ext]: the
// subdirectory name supplies the major.minor.patch triple, and the
// script number may appear bare (0001_foo.sql), prefixed with the
// literal "script." (script.0001.sql), or fully qualified with its own
// "X.Y.Z+script.N" version matching the subdirectory's own triple.
func parseSubdir(dirName, fileName, ext string) (model.SemVer, error) {
	base, ok := trimExt(fileName, ext)
	if !ok {
		return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
			"%q does not have the %q extension", fileName, ext,
		))
	}
	base = trimDescription(base)

	dirVer, err := model.Parse(dirName)
	if err != nil {
		return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
			"subdirectory %q does not parse as a version: %w", dirName, err,
		))
	}
	if dirVer.IsScriptVersion() {
		return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
			"subdirectory %q must not itself carry script build metadata", dirName,
		))
	}

	// Fully qualified: base parses as its own complete script version,
	// which must share the subdirectory's major.minor.patch.
	if strings.Contains(base, "+") {
		v, err := model.Parse(base)
		if err != nil {
			return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
				"%q/%q does not parse as a version: %w", dirName, fileName, err,
			))
		}
		if !v.IsScriptVersion() {
			return model.SemVer{}, cerr.New(cerr.KindIncompleteFilename, fmt.Errorf(
				"%q/%q is not a script version", dirName, fileName,
			))
		}
		if v.Major() != dirVer.Major() || v.Minor() != dirVer.Minor() || v.Patch() != dirVer.Patch() {
			return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
				"%q/%q version does not match its subdirectory", dirName, fileName,
			))
		}
		return v, nil
	}

	// Prefixed: "script.N" with N possibly zero-padded.
	numStr := base
	if strings.HasPrefix(strings.ToLower(base), "script.") {
		numStr = base[len("script."):]
	}
	n, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return model.SemVer{}, cerr.New(cerr.KindBadFilename, fmt.Errorf(
			"%q/%q does not carry a script number: %w", dirName, fileName, err,
		))
	}
	return model.NewScriptVersion(dirVer.Major(), dirVer.Minor(), dirVer.Patch(), n), nil
}

// trimExt strips the expected extension from name, reporting false if
// name does not end with it.
func trimExt(name, ext string) (string, bool) {
	if ext == "" {
		return name, true
	}
	if !strings.HasSuffix(name, ext) {
		return name, false
	}
	return strings.TrimSuffix(name, ext), true
}

// trimDescription strips an optional "_DESC" suffix following the
// version portion of a filename stem. Since a description may contain
// underscores itself, only the first underscore is treated as the
// separator between the version and its description.
func trimDescription(stem string) string {
	if i := strings.IndexByte(stem, '_'); i >= 0 {
		return stem[:i]
	}
	return stem
}
