// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package watcher notifies observers when source files are created,
// changed or removed.
package watcher

import (
	"context"
	"fmt"
)

// OpType is the kind of change seen on a path.
type OpType int

const (
	_ OpType = iota
	Create
	Update
	Delete
)

func (o OpType) String() string {
	switch o {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("OpType(%d)", int(o))
}

// Event is a change to a single source file.
type Event struct {
	Op       OpType
	Pathname string
}

// Watcher describes an interface for source watching.  Observing a
// directory reports events for the matching files directly inside it.
type Watcher interface {
	Observe(path string, processor Processor) error
	Unobserve(path string, processor Processor) error
	Poll()
	Close() error
}

// Processor receives watcher Events.
type Processor interface {
	ProcessFileEvent(context.Context, Event)
}

