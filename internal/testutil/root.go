// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"os/user"
	"testing"
)

// SkipIfRoot skips tests that rely on file permissions, which root ignores.
func SkipIfRoot(tb testing.TB) {
	tb.Helper()
	u, err := user.Current()
	if err != nil {
		tb.Skipf("Couldn't determine current user id: %s", err)
	}
	if u.Uid == "0" {
		tb.Skip("Skipping test when run as root")
	}
}
