// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package compiler drives the two passes that turn Jack sources into VM
// code: the first builds the symbol table over every source, the second
// emits code for the program sources.
package compiler

import (
	"bytes"
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/jackc/internal/compiler/codegen"
	"github.com/google/jackc/internal/compiler/errors"
	"github.com/google/jackc/internal/compiler/parser"
	"github.com/google/jackc/internal/compiler/position"
	"github.com/google/jackc/internal/compiler/symbol"
	"github.com/google/jackc/internal/compiler/token"
	"go.opencensus.io/trace"
)

// Source is one input file.
type Source struct {
	Name    string // Name used in diagnostics and for the output object.
	Text    []byte
	Library bool // Declarations only; parsed by the table-building pass and never compiled.
}

// Object is the VM code compiled from one program source.
type Object struct {
	Name string // Name of the source.
	Code []byte
}

// State is the progress of a compilation.
type State int

const (
	Idle State = iota
	BuildingTable
	EmittingCode
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BuildingTable:
		return "building table"
	case EmittingCode:
		return "emitting code"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Compiler compiles a set of sources.  A Compiler is not safe for
// concurrent use; each Compile builds a fresh symbol table.
type Compiler struct {
	dumpSymbols       bool
	maxRecursionDepth int

	state State
	pass  parser.Pass
	table *symbol.Table
}

// Option configures a new Compiler.
type Option func(*Compiler) error

// DumpSymbols logs the symbol table after the table-building pass.
func DumpSymbols() Option {
	return func(c *Compiler) error {
		c.dumpSymbols = true
		return nil
	}
}

// MaxRecursionDepth bounds expression nesting in the parser.
func MaxRecursionDepth(n int) Option {
	return func(c *Compiler) error {
		if n < 1 {
			return errors.Errorf("max recursion depth must be positive, not %d", n)
		}
		c.maxRecursionDepth = n
		return nil
	}
}

// New creates a Compiler.
func New(options ...Option) (*Compiler, error) {
	c := &Compiler{
		maxRecursionDepth: parser.DefaultMaxRecursionDepth,
		table:             symbol.New(),
	}
	for _, o := range options {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// State returns the progress of the last compilation.
func (c *Compiler) State() State {
	return c.state
}

// Table returns the symbol table of the last compilation.
func (c *Compiler) Table() *symbol.Table {
	return c.table
}

// SetPass selects the pass that ParseFile runs.
func (c *Compiler) SetPass(p parser.Pass) {
	c.pass = p
	switch p {
	case parser.BuildTable:
		c.state = BuildingTable
	case parser.EmitCode:
		c.state = EmittingCode
	}
}

// ParseFile runs the active pass over src.  Code is sent to em on the
// code-emitting pass.
func (c *Compiler) ParseFile(ctx context.Context, src Source, em codegen.Emitter) error {
	_, span := trace.StartSpan(ctx, "Compiler.ParseFile")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute("file", src.Name),
		trace.StringAttribute("pass", c.pass.String()))

	err := parser.Parse(src.Name, bytes.NewReader(src.Text), parser.Context{
		Table:             c.table,
		Pass:              c.pass,
		Emitter:           em,
		MaxRecursionDepth: c.maxRecursionDepth,
	})
	if err != nil {
		c.state = Failed
		span.SetStatus(trace.Status{Code: trace.StatusCodeInvalidArgument, Message: err.Error()})
	}
	return err
}

// undeclared reports a symbol left unresolved by the table-building pass.
func undeclared(sym *symbol.Symbol) error {
	tok := token.Token{
		Kind:     token.ID,
		Spelling: sym.Origin.Lexeme,
		Pos:      position.Position{Filename: sym.Origin.Filename, Line: sym.Origin.Line},
	}
	return errors.New(errors.Undeclared, tok, errors.Undeclared.String())
}

// Compile runs both passes over sources.  Library sources are parsed first
// by the table-building pass only.  It returns one Object per program
// source, in order, or the first error found.
func (c *Compiler) Compile(ctx context.Context, sources []Source) ([]*Object, error) {
	ctx, span := trace.StartSpan(ctx, "Compiler.Compile")
	defer span.End()

	c.table = symbol.New()
	c.SetPass(parser.BuildTable)
	ordered := make([]Source, 0, len(sources))
	for _, src := range sources {
		if src.Library {
			ordered = append(ordered, src)
		}
	}
	for _, src := range sources {
		if !src.Library {
			ordered = append(ordered, src)
		}
	}
	for _, src := range ordered {
		if err := c.ParseFile(ctx, src, nil); err != nil {
			return nil, err
		}
	}
	if sym := c.table.ScanForUnresolved(); sym != nil {
		c.state = Failed
		return nil, undeclared(sym)
	}
	if c.dumpSymbols {
		glog.Infof("Symbol table:\n%s", symbol.Dump(c.table))
	}

	c.SetPass(parser.EmitCode)
	var objs []*Object
	for _, src := range ordered {
		if src.Library {
			continue
		}
		var buf bytes.Buffer
		if err := c.ParseFile(ctx, src, codegen.New(&buf, c.table)); err != nil {
			return nil, err
		}
		glog.V(1).Infof("Compiled %s: %d bytes", src.Name, buf.Len())
		objs = append(objs, &Object{Name: src.Name, Code: buf.Bytes()})
	}
	c.state = Done
	span.AddAttributes(trace.Int64Attribute("objects", int64(len(objs))))
	return objs, nil
}
