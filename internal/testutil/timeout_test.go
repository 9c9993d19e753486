// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestDoOrTimeout(t *testing.T) {
	SkipIfShort(t)
	errBoom := errors.New("boom")
	countdown := func(n int) func() (bool, error) {
		return func() (bool, error) {
			n--
			return n <= 0, nil
		}
	}
	tests := []struct {
		name     string
		do       func() (bool, error)
		deadline time.Duration
		wantOK   bool
		wantErr  error
	}{
		{"times out", func() (bool, error) { return false, nil }, 10 * time.Millisecond, false, nil},
		{"eventually", countdown(5), time.Second, true, nil},
		{"at once", func() (bool, error) { return true, nil }, 10 * time.Millisecond, true, nil},
		{"error", func() (bool, error) { return false, errBoom }, time.Second, false, errBoom},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ok, err := DoOrTimeout(tc.do, tc.deadline, time.Millisecond)
			if ok != tc.wantOK || err != tc.wantErr {
				t.Errorf("got %v, %v; want %v, %v", ok, err, tc.wantOK, tc.wantErr)
			}
		})
	}
}
