// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"time"

	"github.com/golang/glog"
)

// DoOrTimeout calls do every interval until it returns true or an error, or
// until deadline passes, in which case it returns false and no error.
func DoOrTimeout(do func() (bool, error), deadline, interval time.Duration) (bool, error) {
	timeout := time.After(deadline)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := do()
		glog.V(2).Infof("ok, err: %v %v", ok, err)
		if err != nil || ok {
			return ok, err
		}
		select {
		case <-timeout:
			return false, nil
		case <-ticker.C:
		}
	}
}
