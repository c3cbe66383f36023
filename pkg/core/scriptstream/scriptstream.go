// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scriptstream

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// Marker is the literal substring which, when found anywhere on a
// line, partitions a script's upgrade ("do") half from its rollback
// ("undo") half.
const Marker = "--//@UNDO"

// Result is the outcome of processing a script stream: the ordered
// statements that should be run for the requested Action, and the
// SHA-256 content hash (hex-encoded, lower-case) computed per the
// action-specific partitioning rule documented on Process.
type Result struct {
	Statements []string
	Hash       string
}

// line is one decoded input line together with the exact byte
// sequence that terminated it (empty for a final unterminated line),
// so the hash can be sensitive to EOL-style drift between otherwise
// identical files.
type line struct {
	content string
	ending  string
}

// Process reads r fully, tokenises it into SQL statements, and
// computes its content hash, using a partitioning rule that depends on
// action:
//
//   - Install: every line contributes to both the hash and the
//     statement tokeniser.
//   - Upgrade: lines before the Marker line contribute to both the
//     hash and the tokeniser; the Marker line and everything after it
//     contribute to the hash only.
//   - Rollback: the Marker line and everything before it contribute to
//     the hash only; lines after the Marker contribute to both.
//
// In both Upgrade and Rollback modes the Marker line itself is hashed
// but never emitted as a statement. Consequently, for a script with no
// Marker line, Upgrade and Rollback both hash exactly like Install
// (Upgrade also emits the same statements, Rollback emits none); for a
// script with a Marker, Upgrade and Rollback
// compute the same hash (the whole-file hash), letting the migrate
// driver detect drift in a script that has already been deployed by
// recomputing its hash in rollback mode and comparing it with the hash
// recorded at deployment time.
func Process(r io.Reader, action Action) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("reading script stream: %w", err)
	}
	h := sha256.New()
	var buf strings.Builder
	var statements []string
	markerSeen := false
	emitStatements := func(s string) {
		if stmt, ok := flushDelimited(&buf, s); ok {
			for _, stmt := range stmt {
				statements = append(statements, stmt)
			}
		}
	}
	for _, ln := range splitLines(data) {
		h.Write([]byte(ln.content))
		h.Write([]byte(ln.ending))
		isMarker := strings.Contains(ln.content, Marker)
		feed := false
		switch action {
		case Install:
			feed = true
		case Upgrade:
			if isMarker {
				markerSeen = true
			} else if !markerSeen {
				feed = true
			}
		case Rollback:
			if isMarker {
				markerSeen = true
			} else if markerSeen {
				feed = true
			}
		}
		if feed {
			emitStatements(ln.content)
		}
	}
	if rem := strings.TrimSpace(buf.String()); rem != "" {
		statements = append(statements, rem)
	}
	return Result{Statements: statements, Hash: hex.EncodeToString(h.Sum(nil))}, nil
}

// splitLines decodes data into a sequence of lines, tolerating LF,
// CRLF, or a bare CR as the line terminator; a final line with no
// terminator (if data does not end in a newline) has an empty ending.
func splitLines(data []byte) []line {
	var lines []line
	n := len(data)
	start := 0
	i := 0
	for i < n {
		switch data[i] {
		case '\n':
			end := i
			ending := "\n"
			if end > start && data[end-1] == '\r' {
				end--
				ending = "\r\n"
			}
			lines = append(lines, line{content: string(data[start:end]), ending: ending})
			i++
			start = i
		case '\r':
			if i+1 < n && data[i+1] == '\n' {
				i++
				continue
			}
			lines = append(lines, line{content: string(data[start:i]), ending: "\r"})
			i++
			start = i
		default:
			i++
		}
	}
	if start < n {
		lines = append(lines, line{content: string(data[start:n]), ending: ""})
	}
	return lines
}

// flushDelimited appends s (plus a separating newline, so a statement
// may span several fed lines) to buf and repeatedly extracts complete
// statements terminated by the delimiter scanner, leaving any trailing
// partial statement in buf for the next call.
func flushDelimited(buf *strings.Builder, s string) ([]string, bool) {
	buf.WriteString(s)
	buf.WriteByte('\n')
	rest := buf.String()
	var out []string
	for {
		idx, dlen, found := findDelimiter(rest)
		if !found {
			break
		}
		if stmt := strings.TrimSpace(rest[:idx]); stmt != "" {
			out = append(out, stmt)
		}
		rest = rest[idx+dlen:]
	}
	buf.Reset()
	buf.WriteString(rest)
	return out, len(out) > 0
}

// findDelimiter scans s for the first unquoted occurrence of ";" or
// the standalone, case-insensitive word "go", returning its byte
// offset and length. Single- and double-quoted runs are skipped
// verbatim (a delimiter character inside '...' or "..." does not
// count), mirroring the default delimiter regex of the migration
// engine: match go or ; but not when appearing inside a quoted string
// on the same side of the match.
func findDelimiter(s string) (idx, length int, found bool) {
	inSingle, inDouble := false, false
	n := len(s)
	for i := 0; i < n; i++ {
		c := s[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == ';':
			return i, 1, true
		case (c == 'g' || c == 'G') && i+1 < n && (s[i+1] == 'o' || s[i+1] == 'O'):
			leftOK := i == 0 || isWordBoundary(s[i-1])
			rightOK := i+2 == n || isWordBoundary(s[i+2])
			if leftOK && rightOK {
				return i, 2, true
			}
		}
	}
	return 0, 0, false
}

func isWordBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
