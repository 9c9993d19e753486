// Copyright 2026 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package position

import "testing"

func TestPositionString(t *testing.T) {
	for _, tc := range []struct {
		p    Position
		want string
	}{
		{Position{"Main.jack", 1, 0, 0}, "Main.jack:1:1"},
		{Position{"Main.jack", 3, 4, 8}, "Main.jack:3:5-9"},
	} {
		if got := tc.p.String(); got != tc.want {
			t.Errorf("%#v.String() = %q, want %q", tc.p, got, tc.want)
		}
	}
}

