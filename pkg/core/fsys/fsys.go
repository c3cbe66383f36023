// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package fsys specifies the filesystem abstraction which the core
// migration engine consumes in order to discover and read script
// files: directory listing and whole-file reads. Keeping this as an
// interface (rather than calling os.* directly from pkg/core/scriptrepo
// and pkg/core/scriptstream) lets those packages be unit tested against
// an in-memory filesystem, with no script files ever touching disk.
package fsys

import (
	"io/fs"
	"os"
)

// Entry describes one immediate child of a directory listing: its
// name (not a path) and whether it is itself a directory.
type Entry struct {
	Name  string
	IsDir bool
}

// FS is the minimal filesystem surface the migration engine requires.
type FS interface {
	// Stat returns the fs.FileInfo for path, or an error if path does
	// not exist or cannot be inspected.
	Stat(path string) (fs.FileInfo, error)

	// ReadDir lists the immediate children of the directory at path,
	// in no particular order.
	ReadDir(path string) ([]Entry, error)

	// ReadFile reads the entire contents of the file at path.
	ReadFile(path string) ([]byte, error)
}

// OS is the FS implementation backed by the real operating system
// filesystem, via the standard os package.
type OS struct{}

// Stat implements FS.
func (OS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// ReadDir implements FS.
func (OS) ReadDir(path string) ([]Entry, error) {
	des, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(des))
	for i, de := range des {
		entries[i] = Entry{Name: de.Name(), IsDir: de.IsDir()}
	}
	return entries, nil
}

// ReadFile implements FS.
func (OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
