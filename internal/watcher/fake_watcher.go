// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
)

// FakeWatcher implements an in-memory Watcher for tests.  Events are
// delivered synchronously by the Inject methods.
type FakeWatcher struct {
	mu       sync.RWMutex
	watches  map[string][]Processor
	isClosed bool
}

// NewFakeWatcher returns a fake Watcher for use in tests.
func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{watches: make(map[string][]Processor)}
}

// Observe records processor against name.
func (w *FakeWatcher) Observe(name string, p Processor) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, q := range w.watches[name] {
		if q == p {
			return nil
		}
	}
	w.watches[name] = append(w.watches[name], p)
	return nil
}

// Unobserve removes processor from name.
func (w *FakeWatcher) Unobserve(name string, p Processor) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ps := w.watches[name]
	for i, q := range ps {
		if q == p {
			ps = append(ps[:i], ps[i+1:]...)
			break
		}
	}
	if len(ps) == 0 {
		delete(w.watches, name)
	} else {
		w.watches[name] = ps
	}
	return nil
}

// IsWatching reports whether name has any processors.
func (w *FakeWatcher) IsWatching(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.watches[name]
	return ok
}

// Closed reports whether Close has been called.
func (w *FakeWatcher) Closed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isClosed
}

// Close marks the FakeWatcher closed.
func (w *FakeWatcher) Close() error {
	w.mu.Lock()
	w.isClosed = true
	w.mu.Unlock()
	return nil
}

// Poll does nothing; events are injected.
func (w *FakeWatcher) Poll() {}

func (w *FakeWatcher) send(e Event) {
	w.mu.RLock()
	ps, ok := w.watches[e.Pathname]
	if !ok {
		ps, ok = w.watches[filepath.Dir(e.Pathname)]
	}
	ps = append([]Processor(nil), ps...)
	w.mu.RUnlock()
	if !ok {
		glog.Infof("Didn't find %s in watched list", e.Pathname)
		return
	}
	for _, p := range ps {
		p.ProcessFileEvent(context.Background(), e)
	}
}

// InjectCreate lets a test inject a fake creation event.
func (w *FakeWatcher) InjectCreate(name string) {
	w.send(Event{Create, name})
}

// InjectUpdate lets a test inject a fake update event.
func (w *FakeWatcher) InjectUpdate(name string) {
	w.send(Event{Update, name})
}

// InjectDelete lets a test inject a fake deletion event.
func (w *FakeWatcher) InjectDelete(name string) {
	w.send(Event{Delete, name})
}
