// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package stdlib holds the declarations of the operating system library
// that Jack programs call.  They are parsed to build the symbol table but
// never compiled.
package stdlib

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed *.jack
var files embed.FS

// FS returns the library sources.
func FS() fs.FS {
	return files
}

// Names returns the library file names in sorted order.
func Names() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
