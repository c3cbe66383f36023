// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package main is the main entry point of the dbmig command line tool.
package main

import (
	"github.com/xsco-labs/dbmig/cmd/dbmig/command"
)

func main() {
	command.Execute()
}
