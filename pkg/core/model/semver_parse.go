// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses s as a semantic version of the form
// MAJOR.MINOR.PATCH[-prerelease][+buildmetadata] following the
// semver.org 2.0.0 grammar. Numeric components (major, minor, patch,
// and purely-numeric pre-release identifiers) must not carry leading
// zeroes; build-metadata identifiers may, but are compared and
// rendered by their integer value so that, e.g., "script.007" and
// "script.7" are equal versions and both render as "script.7".
func Parse(s string) (SemVer, error) {
	if s == "" {
		return SemVer{}, fmt.Errorf("semver: empty input")
	}
	rest := s
	var buildStr string
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		rest, buildStr = rest[:i], rest[i+1:]
	}
	var preStr string
	hasPre := false
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest, preStr = rest[:i], rest[i+1:]
		hasPre = true
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return SemVer{}, fmt.Errorf(
			"semver: %q must have exactly 3 dot-separated numeric parts", s,
		)
	}
	nums := make([]uint64, 3)
	for i, p := range parts {
		n, err := parseNumericPart(p)
		if err != nil {
			return SemVer{}, fmt.Errorf("semver: %q: %w", s, err)
		}
		nums[i] = n
	}
	v := SemVer{major: nums[0], minor: nums[1], patch: nums[2]}
	if hasPre {
		ids, err := parseIdentifierList(preStr, true)
		if err != nil {
			return SemVer{}, fmt.Errorf(
				"semver: %q: pre-release: %w", s, err,
			)
		}
		v.pre = ids
	}
	if buildStr != "" || strings.Contains(s, "+") {
		ids, err := parseIdentifierList(buildStr, false)
		if err != nil {
			return SemVer{}, fmt.Errorf(
				"semver: %q: build metadata: %w", s, err,
			)
		}
		v.build = ids
	}
	return v, nil
}

// parseNumericPart parses one of the major/minor/patch components:
// a non-empty run of ASCII digits with no leading zero unless the
// value is exactly "0".
func parseNumericPart(p string) (uint64, error) {
	if p == "" {
		return 0, fmt.Errorf("numeric part must not be empty")
	}
	if len(p) > 1 && p[0] == '0' {
		return 0, fmt.Errorf("numeric part %q must not have a leading zero", p)
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("numeric part %q is not a non-negative integer", p)
		}
	}
	n, err := strconv.ParseUint(p, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("numeric part %q: %w", p, err)
	}
	return n, nil
}

// parseIdentifierList parses a dot-separated identifier list following
// "-" (pre-release) or "+" (build metadata). When strict is true
// (pre-release), a purely-numeric identifier with more than one digit
// must not have a leading zero.
func parseIdentifierList(s string, strict bool) ([]Identifier, error) {
	if s == "" {
		return nil, fmt.Errorf("identifier list must not be empty")
	}
	parts := strings.Split(s, ".")
	ids := make([]Identifier, 0, len(parts))
	for _, p := range parts {
		id, err := parseIdentifier(p, strict)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseIdentifier parses one dot-delimited identifier: a non-empty run
// of characters from [0-9A-Za-z-]. It is numeric if composed solely of
// digits, in which case its integer value is parsed and, when strict,
// a leading zero on more than one digit is rejected.
func parseIdentifier(p string, strict bool) (Identifier, error) {
	if p == "" {
		return Identifier{}, fmt.Errorf("identifier must not be empty")
	}
	numeric := true
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '-':
			numeric = false
		default:
			return Identifier{}, fmt.Errorf(
				"identifier %q contains invalid character %q", p, r,
			)
		}
	}
	if !numeric {
		return Identifier{Value: p}, nil
	}
	if strict && len(p) > 1 && p[0] == '0' {
		return Identifier{}, fmt.Errorf(
			"numeric identifier %q must not have a leading zero", p,
		)
	}
	n, err := strconv.ParseUint(p, 10, 64)
	if err != nil {
		return Identifier{}, fmt.Errorf("numeric identifier %q: %w", p, err)
	}
	return Identifier{Value: p, Numeric: true, Num: n}, nil
}
