// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package fsys

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// Mem is an in-memory FS implementation used by the scriptrepo, check,
// and migrate package tests, so script-loading and hashing behavior
// can be exercised without touching a real disk. Paths are always
// slash-separated and relative to Mem's own root, mirroring how
// ScriptDir receives a root path and scans beneath it.
type Mem struct {
	files map[string][]byte
	dirs  map[string]bool
}

// NewMem creates an empty in-memory filesystem.
func NewMem() *Mem {
	return &Mem{files: map[string][]byte{}, dirs: map[string]bool{"": true}}
}

// WriteFile stores content at p, creating any missing parent
// directories implicitly.
func (m *Mem) WriteFile(p string, content []byte) {
	p = path.Clean(p)
	m.files[p] = content
	for d := path.Dir(p); d != "." && d != "/"; d = path.Dir(d) {
		m.dirs[d] = true
		if d == path.Dir(d) {
			break
		}
	}
	m.dirs[path.Dir(p)] = true
}

type memFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (fi memFileInfo) Name() string       { return fi.name }
func (fi memFileInfo) Size() int64        { return fi.size }
func (fi memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (fi memFileInfo) ModTime() time.Time { return time.Time{} }
func (fi memFileInfo) IsDir() bool        { return fi.isDir }
func (fi memFileInfo) Sys() any           { return nil }

// Stat implements FS.
func (m *Mem) Stat(p string) (fs.FileInfo, error) {
	p = path.Clean(p)
	if p == "." || m.dirs[p] {
		return memFileInfo{name: path.Base(p), isDir: true}, nil
	}
	if content, ok := m.files[p]; ok {
		return memFileInfo{name: path.Base(p), size: int64(len(content))}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

// ReadDir implements FS.
func (m *Mem) ReadDir(p string) ([]Entry, error) {
	p = path.Clean(p)
	if p != "." && !m.dirs[p] {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist}
	}
	seen := map[string]bool{}
	var entries []Entry
	prefix := p + "/"
	if p == "." {
		prefix = ""
	}
	for f := range m.files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rel := strings.TrimPrefix(f, prefix)
		if i := strings.IndexByte(rel, '/'); i >= 0 {
			name := rel[:i]
			if !seen[name] {
				seen[name] = true
				entries = append(entries, Entry{Name: name, IsDir: true})
			}
			continue
		}
		if !seen[rel] {
			seen[rel] = true
			entries = append(entries, Entry{Name: rel})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// ReadFile implements FS.
func (m *Mem) ReadFile(p string) ([]byte, error) {
	p = path.Clean(p)
	content, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: p, Err: fs.ErrNotExist}
	}
	return content, nil
}
