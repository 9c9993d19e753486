// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/jackc/internal/testutil"
)

func TestSourceWatcherPoll(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	existing := testutil.WriteSource(t, workdir, "Old.jack", "class Old {}")

	w, err := NewSourceWatcher(".jack", 0, false)
	testutil.FatalIfErr(t, err)
	defer func() {
		testutil.FatalIfErr(t, w.Close())
	}()

	s := &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe(workdir, s))
	if !w.IsWatching(workdir) {
		t.Fatalf("not watching %s", workdir)
	}

	w.Poll()
	testutil.ExpectNoDiff(t, []Event(nil), s.events())

	main := testutil.WriteSource(t, workdir, "Main.jack", "class Main {}")
	testutil.WriteSource(t, workdir, "notes.txt", "ignored")
	w.Poll()
	expected := []Event{{Create, main}}
	testutil.ExpectNoDiff(t, expected, s.events())

	later := time.Now().Add(time.Hour)
	testutil.FatalIfErr(t, os.Chtimes(existing, later, later))
	w.Poll()
	expected = append(expected, Event{Update, existing})
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.FatalIfErr(t, os.Remove(main))
	w.Poll()
	expected = append(expected, Event{Delete, main})
	testutil.ExpectNoDiff(t, expected, s.events())

	testutil.FatalIfErr(t, w.Unobserve(workdir, s))
	if w.IsWatching(workdir) {
		t.Errorf("still watching %s", workdir)
	}
	testutil.WriteSource(t, workdir, "Late.jack", "class Late {}")
	w.Poll()
	testutil.ExpectNoDiff(t, expected, s.events())
}

func TestSourceWatcherObserveFile(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	main := testutil.WriteSource(t, workdir, "Main.jack", "class Main {}")

	w, err := NewSourceWatcher(".jack", 0, false)
	testutil.FatalIfErr(t, err)
	defer w.Close()

	s := &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe(main, s))
	testutil.WriteSource(t, workdir, "Other.jack", "class Other {}")
	w.Poll()
	testutil.ExpectNoDiff(t, []Event(nil), s.events())

	later := time.Now().Add(time.Hour)
	testutil.FatalIfErr(t, os.Chtimes(main, later, later))
	w.Poll()
	testutil.ExpectNoDiff(t, []Event{{Update, main}}, s.events())
}

func TestSourceWatcherObserveMissing(t *testing.T) {
	workdir := testutil.TestTempDir(t)
	w, err := NewSourceWatcher(".jack", 0, false)
	testutil.FatalIfErr(t, err)
	defer w.Close()
	if err := w.Observe(filepath.Join(workdir, "missing"), &stubProcessor{}); err == nil {
		t.Error("expected an error observing a missing path")
	}
}

func TestSourceWatcherFsnotify(t *testing.T) {
	testutil.SkipIfShort(t)
	workdir := testutil.TestTempDir(t)

	w, err := NewSourceWatcher(".jack", 0, true)
	testutil.FatalIfErr(t, err)
	defer w.Close()

	s := &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe(workdir, s))
	main := testutil.WriteSource(t, workdir, "Main.jack", "class Main {}")

	ok, err := testutil.DoOrTimeout(func() (bool, error) {
		for _, e := range s.events() {
			if e.Pathname == main {
				return true, nil
			}
		}
		return false, nil
	}, 10*time.Second, 10*time.Millisecond)
	testutil.FatalIfErr(t, err)
	if !ok {
		t.Errorf("no event for %s, got %v", main, s.events())
	}
}
