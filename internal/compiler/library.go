// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package compiler

import (
	"io/fs"

	"github.com/google/jackc/internal/compiler/stdlib"
	"github.com/pkg/errors"
)

// StandardLibrary returns the declarations of the operating system library
// as library sources.
func StandardLibrary() ([]Source, error) {
	var srcs []Source
	for _, name := range stdlib.Names() {
		b, err := fs.ReadFile(stdlib.FS(), name)
		if err != nil {
			return nil, errors.Wrapf(err, "reading standard library %s", name)
		}
		srcs = append(srcs, Source{Name: name, Text: b, Library: true})
	}
	return srcs, nil
}
