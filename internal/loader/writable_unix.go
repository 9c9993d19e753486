// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

//go:build !windows
// +build !windows

package loader

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// checkWritable fails if the current user cannot create files in dir.
func checkWritable(dir string) error {
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return errors.Wrapf(err, "output directory %q is not writable", dir)
	}
	return nil
}
