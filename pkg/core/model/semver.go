// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package model contains the semantic version type shared across the
// migration engine, including the script-version ("X.Y.Z+script.N")
// helpers. It does not depend on a database driver or a filesystem
// implementation.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier is one dot-separated component of a pre-release or
// build-metadata identifier list. It is numeric when its Value
// consists solely of ASCII digits, in which case Num holds its parsed
// integer value; otherwise it is an alphanumeric identifier compared
// lexicographically by Value.
type Identifier struct {
	Value   string
	Numeric bool
	Num     uint64
}

// String returns the canonical textual form of id. Numeric identifiers
// are rendered from their parsed Num value, so leading zeroes present
// in the original source text (permitted for build metadata, though
// never for pre-release identifiers) are not reproduced.
func (id Identifier) String() string {
	if id.Numeric {
		return strconv.FormatUint(id.Num, 10)
	}
	return id.Value
}

// SemVer represents a parsed semantic version: three non-negative
// numeric components plus an ordered pre-release identifier list and
// an ordered build-metadata identifier list. A SemVer is immutable
// once constructed by Parse or one of the New* constructors; every
// method which would logically "change" a version returns a new one.
type SemVer struct {
	major, minor, patch uint64
	pre, build          []Identifier
}

// Zero returns the 0.0.0 semantic version, used as the version of an
// empty repository or an empty changelog.
func Zero() SemVer {
	return SemVer{}
}

// Major, Minor, and Patch return the respective numeric components.
func (v SemVer) Major() uint64 { return v.major }
func (v SemVer) Minor() uint64 { return v.minor }
func (v SemVer) Patch() uint64 { return v.patch }

// Pre returns the pre-release identifier list. The returned slice must
// not be mutated by callers.
func (v SemVer) Pre() []Identifier { return v.pre }

// Build returns the build-metadata identifier list. The returned slice
// must not be mutated by callers.
func (v SemVer) Build() []Identifier { return v.build }

// IsZero reports whether v equals the 0.0.0 version with no
// pre-release or build metadata.
func (v SemVer) IsZero() bool {
	return v.major == 0 && v.minor == 0 && v.patch == 0 &&
		len(v.pre) == 0 && len(v.build) == 0
}

// IsScriptVersion reports whether v carries the two-identifier
// "script.N" build metadata which identifies a version as a script
// version, as opposed to a non-script version used only in queries.
func (v SemVer) IsScriptVersion() bool {
	_, ok := v.ScriptNumber()
	return ok
}

// ScriptNumber returns the N component of a "script.N" build-metadata
// tag and true, or zero and false if v is not a script version.
func (v SemVer) ScriptNumber() (uint64, bool) {
	if len(v.build) != 2 {
		return 0, false
	}
	if v.build[0].Numeric || v.build[0].Value != "script" {
		return 0, false
	}
	if !v.build[1].Numeric {
		return 0, false
	}
	return v.build[1].Num, true
}

// NewScriptVersion constructs the script version major.minor.patch
// with build metadata "script.n".
func NewScriptVersion(major, minor, patch, n uint64) SemVer {
	return SemVer{
		major: major,
		minor: minor,
		patch: patch,
		build: []Identifier{
			{Value: "script"},
			{Value: strconv.FormatUint(n, 10), Numeric: true, Num: n},
		},
	}
}

// New constructs a plain major.minor.patch non-script version.
func New(major, minor, patch uint64) SemVer {
	return SemVer{major: major, minor: minor, patch: patch}
}

// NextMajor returns the version with major incremented by one and
// minor, patch, and pre-release cleared. If keepBuild is false, build
// metadata is cleared too.
func (v SemVer) NextMajor(keepBuild bool) SemVer {
	nv := SemVer{major: v.major + 1}
	if keepBuild {
		nv.build = v.build
	}
	return nv
}

// NextMinor returns the version with minor incremented by one and
// patch and pre-release cleared, major kept. If keepBuild is false,
// build metadata is cleared too.
func (v SemVer) NextMinor(keepBuild bool) SemVer {
	nv := SemVer{major: v.major, minor: v.minor + 1}
	if keepBuild {
		nv.build = v.build
	}
	return nv
}

// NextPatch returns the version with patch incremented by one,
// major and minor kept, pre-release cleared. If keepBuild is false,
// build metadata is cleared too.
func (v SemVer) NextPatch(keepBuild bool) SemVer {
	nv := SemVer{major: v.major, minor: v.minor, patch: v.patch + 1}
	if keepBuild {
		nv.build = v.build
	}
	return nv
}

// String renders v in its canonical textual form, X.Y.Z optionally
// followed by "-"+pre-release and/or "+"+build-metadata. It always
// holds that Parse(v.String()) equals v under EqualMetadata.
func (v SemVer) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.major, v.minor, v.patch)
	if len(v.pre) > 0 {
		b.WriteByte('-')
		writeIdentifiers(&b, v.pre)
	}
	if len(v.build) > 0 {
		b.WriteByte('+')
		writeIdentifiers(&b, v.build)
	}
	return b.String()
}

func writeIdentifiers(b *strings.Builder, ids []Identifier) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(id.String())
	}
}

// MarshalText implements encoding.TextMarshaler, serializing v as its
// canonical string representation (used for YAML/JSON config fields).
func (v SemVer) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, parsing text as a
// semantic version using Parse.
func (v *SemVer) UnmarshalText(text []byte) error {
	nv, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = nv
	return nil
}

// compareNumeric compares the three numeric components in order.
func compareNumeric(a, b SemVer) int {
	switch {
	case a.major != b.major:
		return cmpUint64(a.major, b.major)
	case a.minor != b.minor:
		return cmpUint64(a.minor, b.minor)
	default:
		return cmpUint64(a.patch, b.patch)
	}
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cmpIdentifier orders two individual identifiers per the SemVer 2.0
// precedence rule: numeric identifiers always have lower precedence
// than alphanumeric ones; two numeric identifiers compare numerically;
// two alphanumeric identifiers compare byte-wise lexicographically.
func cmpIdentifier(a, b Identifier) int {
	switch {
	case a.Numeric && b.Numeric:
		return cmpUint64(a.Num, b.Num)
	case !a.Numeric && !b.Numeric:
		return strings.Compare(a.Value, b.Value)
	case a.Numeric:
		return -1
	default:
		return 1
	}
}

// compareIdentifiers orders two identifier lists by comparing their
// elements pairwise; if every shared element compares equal, the
// shorter list has lower precedence.
func compareIdentifiers(a, b []Identifier) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := cmpIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpUint64(uint64(len(a)), uint64(len(b)))
}

// CompareStrict orders a and b per the semver.org precedence rules
// over (major, minor, patch, pre-release), ignoring build metadata
// entirely. An empty pre-release identifier list outranks (compares
// greater than) any non-empty pre-release list.
func CompareStrict(a, b SemVer) int {
	if c := compareNumeric(a, b); c != 0 {
		return c
	}
	aEmpty, bEmpty := len(a.pre) == 0, len(b.pre) == 0
	switch {
	case aEmpty && bEmpty:
		return 0
	case aEmpty:
		return 1
	case bEmpty:
		return -1
	default:
		return compareIdentifiers(a.pre, b.pre)
	}
}

// compareAligned refines CompareStrict with a build-metadata tiebreak.
// When lowAlign is true, an absent build-metadata list sorts below a
// present one (the "metadata"/"low" alignment); when false, an absent
// list sorts above a present one (the "high" alignment used for
// ScriptDir's upper range bound). Two present lists are always ordered
// by the same identifier-part comparator regardless of alignment.
func compareAligned(a, b SemVer, lowAlign bool) int {
	if c := CompareStrict(a, b); c != 0 {
		return c
	}
	aAbsent, bAbsent := len(a.build) == 0, len(b.build) == 0
	switch {
	case aAbsent && bAbsent:
		return 0
	case aAbsent:
		if lowAlign {
			return -1
		}
		return 1
	case bAbsent:
		if lowAlign {
			return 1
		}
		return -1
	default:
		return compareIdentifiers(a.build, b.build)
	}
}

// CompareMetadata refines CompareStrict with build metadata as a final
// tiebreaker: an absent build-metadata list sorts below a present one.
// This is the default ordering used by the Less/Equal convenience
// methods and by ScriptDir's "low" alignment.
func CompareMetadata(a, b SemVer) int {
	return compareAligned(a, b, true)
}

// CompareLow is an alias of CompareMetadata, named for its use as the
// lower-bound alignment in ScriptDir range queries: a bare (non-script)
// version sorts below any script version sharing its major.minor.patch.
func CompareLow(a, b SemVer) int {
	return compareAligned(a, b, true)
}

// CompareHigh orders a and b like CompareMetadata except that a bare
// (non-script) version sorts above any script version sharing its
// major.minor.patch, used as the upper-bound alignment in ScriptDir
// range queries.
func CompareHigh(a, b SemVer) int {
	return compareAligned(a, b, false)
}

// Less reports whether v sorts strictly before w under the metadata
// comparator (the default ordering for semantic versions).
func (v SemVer) Less(w SemVer) bool {
	return CompareMetadata(v, w) < 0
}

// EqualStrict reports whether v and w are equal under CompareStrict,
// i.e. ignoring build metadata.
func (v SemVer) EqualStrict(w SemVer) bool {
	return CompareStrict(v, w) == 0
}

// EqualMetadata reports whether v and w are equal under
// CompareMetadata, i.e. including build metadata as a tiebreaker.
func (v SemVer) EqualMetadata(w SemVer) bool {
	return CompareMetadata(v, w) == 0
}
