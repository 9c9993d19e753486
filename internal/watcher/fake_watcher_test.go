// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"sync"
	"testing"

	"github.com/google/jackc/internal/testutil"
)

type stubProcessor struct {
	mu     sync.Mutex
	Events []Event
}

func (s *stubProcessor) ProcessFileEvent(ctx context.Context, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, e)
}

func (s *stubProcessor) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.Events...)
}

func TestFakeWatcher(t *testing.T) {
	w := NewFakeWatcher()
	s := &stubProcessor{}

	testutil.FatalIfErr(t, w.Observe("/src", s))
	testutil.FatalIfErr(t, w.Observe("/src", s))
	if !w.IsWatching("/src") {
		t.Fatal("not watching /src")
	}

	w.InjectCreate("/src/Main.jack")
	w.InjectUpdate("/src/Main.jack")
	w.InjectDelete("/src/Main.jack")
	w.InjectUpdate("/elsewhere/Foo.jack")

	want := []Event{
		{Create, "/src/Main.jack"},
		{Update, "/src/Main.jack"},
		{Delete, "/src/Main.jack"},
	}
	testutil.ExpectNoDiff(t, want, s.events())

	testutil.FatalIfErr(t, w.Unobserve("/src", s))
	if w.IsWatching("/src") {
		t.Error("still watching /src")
	}
	w.InjectUpdate("/src/Main.jack")
	testutil.ExpectNoDiff(t, want, s.events())

	testutil.FatalIfErr(t, w.Close())
	if !w.Closed() {
		t.Error("not closed")
	}
}

func TestFakeWatcherMultipleProcessors(t *testing.T) {
	w := NewFakeWatcher()
	a, b := &stubProcessor{}, &stubProcessor{}
	testutil.FatalIfErr(t, w.Observe("/src/Main.jack", a))
	testutil.FatalIfErr(t, w.Observe("/src/Main.jack", b))

	w.InjectUpdate("/src/Main.jack")
	want := []Event{{Update, "/src/Main.jack"}}
	testutil.ExpectNoDiff(t, want, a.events())
	testutil.ExpectNoDiff(t, want, b.events())

	testutil.FatalIfErr(t, w.Unobserve("/src/Main.jack", a))
	w.InjectDelete("/src/Main.jack")
	testutil.ExpectNoDiff(t, want, a.events())
	testutil.ExpectNoDiff(t, append(want, Event{Delete, "/src/Main.jack"}), b.events())
}
