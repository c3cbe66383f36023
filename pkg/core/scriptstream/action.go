// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scriptstream tokenises a script file into SQL statements and
// computes its content hash, with a well-defined partition between the
// "do" and "undo" halves of an upgrade/rollback script.
package scriptstream

import "fmt"

// Action is the closed set of ways a script may be run. A fourth
// pseudo-action, "override", may appear only in the changelog, never
// as a ScriptStream mode, and so is not a member of this enumeration.
type Action int

const (
	// Install runs every line of the script, contributing it both to
	// the content hash and to the emitted statement sequence.
	Install Action = iota
	// Upgrade runs only the lines before the partition marker as
	// statements, but hashes the whole file.
	Upgrade
	// Rollback runs only the lines after the partition marker as
	// statements, but hashes the whole file.
	Rollback
)

// String renders a as its lower-case name.
func (a Action) String() string {
	switch a {
	case Install:
		return "install"
	case Upgrade:
		return "upgrade"
	case Rollback:
		return "rollback"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}
