// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package watcher

import (
	"context"
	"expvar"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

var (
	errorCount = expvar.NewInt("source_watcher_error_count")
)

type watch struct {
	ps    []Processor
	isDir bool
	seen  map[string]time.Time // modification times of matching files at the last poll
}

// SourceWatcher implements a Watcher over a real filesystem.  Only files
// with the configured extension produce events.
type SourceWatcher struct {
	ext        string
	watcher    *fsnotify.Watcher
	pollTicker *time.Ticker

	watchedMu sync.Mutex // protects `watched'
	watched   map[string]*watch

	stopTicks  chan struct{}
	ticksDone  chan struct{}
	eventsDone chan struct{}

	closeOnce sync.Once
}

// NewSourceWatcher returns a SourceWatcher reporting changes to files
// ending in ext.  With enableFsnotify false and no pollInterval, events
// are only found by calling Poll.
func NewSourceWatcher(ext string, pollInterval time.Duration, enableFsnotify bool) (*SourceWatcher, error) {
	w := &SourceWatcher{
		ext:     ext,
		watched: make(map[string]*watch),
	}
	if enableFsnotify {
		f, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, errors.Wrap(err, "creating fsnotify watcher")
		}
		w.watcher = f
		w.eventsDone = make(chan struct{})
		go w.runEvents()
	}
	if pollInterval > 0 {
		w.pollTicker = time.NewTicker(pollInterval)
		w.stopTicks = make(chan struct{})
		w.ticksDone = make(chan struct{})
		go w.runTicks()
	}
	return w, nil
}

func (w *SourceWatcher) matches(pathname string) bool {
	return w.ext == "" || filepath.Ext(pathname) == w.ext
}

// processorsFor returns the processors interested in pathname, either
// through a watch on the file itself or on its directory.
func (w *SourceWatcher) processorsFor(pathname string) []Processor {
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	if wt, ok := w.watched[pathname]; ok {
		return append([]Processor(nil), wt.ps...)
	}
	if wt, ok := w.watched[filepath.Dir(pathname)]; ok && wt.isDir {
		return append([]Processor(nil), wt.ps...)
	}
	return nil
}

func send(ps []Processor, e Event) {
	for _, p := range ps {
		p.ProcessFileEvent(context.TODO(), e)
	}
}

func (w *SourceWatcher) runTicks() {
	defer close(w.ticksDone)
	for {
		select {
		case <-w.pollTicker.C:
			w.Poll()
		case <-w.stopTicks:
			w.pollTicker.Stop()
			return
		}
	}
}

// Poll compares every watched path against its last snapshot and sends
// the differences.
func (w *SourceWatcher) Poll() {
	type pending struct {
		ps []Processor
		e  Event
	}
	var events []pending
	w.watchedMu.Lock()
	for pathname, wt := range w.watched {
		for _, e := range w.diffLocked(pathname, wt) {
			events = append(events, pending{append([]Processor(nil), wt.ps...), e})
		}
	}
	w.watchedMu.Unlock()
	for _, p := range events {
		glog.V(2).Infof("sending %s for %s", p.e.Op, p.e.Pathname)
		send(p.ps, p.e)
	}
}

// snapshot returns the modification times of the matching files under
// pathname, which is a single file unless isDir.
func (w *SourceWatcher) snapshot(pathname string, isDir bool) map[string]time.Time {
	seen := make(map[string]time.Time)
	if !isDir {
		if fi, err := os.Stat(pathname); err == nil {
			seen[pathname] = fi.ModTime()
		}
		return seen
	}
	matches, err := filepath.Glob(filepath.Join(pathname, "*"+w.ext))
	if err != nil {
		glog.V(1).Info(err)
		return seen
	}
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		seen[m] = fi.ModTime()
	}
	return seen
}

// diffLocked updates the snapshot of a watch.  w.watchedMu must be held.
func (w *SourceWatcher) diffLocked(pathname string, wt *watch) []Event {
	now := w.snapshot(pathname, wt.isDir)
	var events []Event
	for name, mtime := range now {
		prev, ok := wt.seen[name]
		switch {
		case !ok:
			events = append(events, Event{Create, name})
		case mtime.After(prev):
			events = append(events, Event{Update, name})
		}
	}
	for name := range wt.seen {
		if _, ok := now[name]; !ok {
			events = append(events, Event{Delete, name})
		}
	}
	wt.seen = now
	return events
}

// runEvents translates fsnotify events; w.watcher is not nil.
func (w *SourceWatcher) runEvents() {
	defer close(w.eventsDone)

	go func() {
		for err := range w.watcher.Errors {
			errorCount.Add(1)
			glog.Errorf("fsnotify error: %s", err)
		}
	}()

	for e := range w.watcher.Events {
		glog.V(2).Infof("watcher event %v", e)
		if !w.matches(e.Name) {
			continue
		}
		var op OpType
		switch {
		case e.Op&fsnotify.Create == fsnotify.Create:
			op = Create
		case e.Op&fsnotify.Write == fsnotify.Write,
			e.Op&fsnotify.Chmod == fsnotify.Chmod:
			op = Update
		case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
			// A rename target gets its own Create.
			op = Delete
		default:
			glog.Warningf("unknown op type %v", e.Op)
			continue
		}
		send(w.processorsFor(e.Name), Event{op, e.Name})
	}
	glog.Info("Shutting down source watcher.")
}

// Close shuts down the SourceWatcher.  It is safe to call more than once.
func (w *SourceWatcher) Close() (err error) {
	w.closeOnce.Do(func() {
		if w.watcher != nil {
			err = w.watcher.Close()
			<-w.eventsDone
		}
		if w.pollTicker != nil {
			close(w.stopTicks)
			<-w.ticksDone
		}
	})
	return err
}

// Observe adds a file or directory to the watched set.  The files present
// now are recorded without sending events.
func (w *SourceWatcher) Observe(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "failed to lookup absolute path of %q", path)
	}
	fi, err := os.Stat(absPath)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %q", absPath)
	}
	if w.watcher != nil {
		if err := w.watcher.Add(absPath); err != nil {
			if !os.IsPermission(err) {
				return errors.Wrapf(err, "failed to create a new watch on %q", absPath)
			}
			glog.V(2).Infof("Skipping permission denied error on adding a watch.")
		}
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	wt, ok := w.watched[absPath]
	if !ok {
		w.watched[absPath] = &watch{
			ps:    []Processor{processor},
			isDir: fi.IsDir(),
			seen:  w.snapshot(absPath, fi.IsDir()),
		}
		glog.V(1).Infof("Watching %s", absPath)
		return nil
	}
	for _, p := range wt.ps {
		if p == processor {
			return nil
		}
	}
	wt.ps = append(wt.ps, processor)
	return nil
}

// Unobserve removes processor from path.  The path is no longer watched
// once its last processor is gone.
func (w *SourceWatcher) Unobserve(path string, processor Processor) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "failed to lookup absolute path of %q", path)
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	wt, ok := w.watched[absPath]
	if !ok {
		return nil
	}
	for i, p := range wt.ps {
		if p == processor {
			wt.ps = append(wt.ps[:i], wt.ps[i+1:]...)
			break
		}
	}
	if len(wt.ps) > 0 {
		return nil
	}
	delete(w.watched, absPath)
	if w.watcher != nil {
		return w.watcher.Remove(absPath)
	}
	return nil
}

// IsWatching reports whether path is being watched.
func (w *SourceWatcher) IsWatching(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		glog.V(2).Infof("Couldn't resolve path %q: %s", path, err)
		return false
	}
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	_, ok := w.watched[absPath]
	return ok
}
