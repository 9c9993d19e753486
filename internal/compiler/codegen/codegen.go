// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package codegen translates the semantic events produced by the parser into
// VM code text.
package codegen

import (
	"fmt"
	"io"

	"github.com/golang/glog"
	"github.com/google/jackc/internal/compiler/symbol"
	"github.com/pkg/errors"
)

// Op names one semantic event.
type Op int

const (
	FunctionStart Op = iota // Sym is the subroutine, Text its qualified name, Int its local count.
	PushVar                 // Push the variable Sym.
	PopVar                  // Pop into the variable Sym.
	PushConstant            // Push the integer Int.
	PushString              // Build the string constant Text.
	PushKeyword             // Push true, false, null or this, named by Text.
	Binary                  // Apply the binary operator Text.
	Unary                   // Apply the unary operator Text.
	ArrayAddress            // Add base and index left on the stack.
	ArrayRead               // Replace base and index with the element they address.
	ArrayStore              // Store the value on top into the element addressed below it.
	WhileStart              // Open a while loop, before its condition.
	WhileCond               // After the loop condition.
	WhileEnd                // After the loop body.
	IfStart                 // After the if condition.
	IfElse                  // After the then branch when an else branch follows.
	IfEnd                   // After the last branch.
	PushReceiver            // Push the object a method is called on: Sym, or the current object when Sym is nil.
	Call                    // Call the subroutine Text with Int arguments.
	Discard                 // Drop the value a do statement leaves.
	Return                  // Return the value on top.
)

var opNames = [...]string{
	FunctionStart: "FunctionStart",
	PushVar:       "PushVar",
	PopVar:        "PopVar",
	PushConstant:  "PushConstant",
	PushString:    "PushString",
	PushKeyword:   "PushKeyword",
	Binary:        "Binary",
	Unary:         "Unary",
	ArrayAddress:  "ArrayAddress",
	ArrayRead:     "ArrayRead",
	ArrayStore:    "ArrayStore",
	WhileStart:    "WhileStart",
	WhileCond:     "WhileCond",
	WhileEnd:      "WhileEnd",
	IfStart:       "IfStart",
	IfElse:        "IfElse",
	IfEnd:         "IfEnd",
	PushReceiver:  "PushReceiver",
	Call:          "Call",
	Discard:       "Discard",
	Return:        "Return",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Event is one semantic action of the parser and its payload.
type Event struct {
	Op   Op
	Sym  *symbol.Symbol
	Int  int
	Text string
}

func (e Event) String() string {
	s := e.Op.String()
	if e.Sym != nil {
		s += " " + e.Sym.Name
	}
	if e.Text != "" {
		s += " " + e.Text
	}
	if e.Op == FunctionStart || e.Op == PushConstant || e.Op == Call {
		s += fmt.Sprintf(" %d", e.Int)
	}
	return s
}

// Emitter consumes the events of a parse.
type Emitter interface {
	Emit(Event) error
}

// Recorder is an Emitter that keeps every event.
type Recorder struct {
	Events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(e Event) error {
	r.Events = append(r.Events, e)
	return nil
}

// Replay sends the recorded events to e in order.
func (r *Recorder) Replay(e Emitter) error {
	for _, ev := range r.Events {
		if err := e.Emit(ev); err != nil {
			return err
		}
	}
	return nil
}

// Segment returns the memory segment holding variables of kind k.
func Segment(k symbol.Kind) (string, error) {
	switch k {
	case symbol.Static:
		return "static", nil
	case symbol.Field:
		return "this", nil
	case symbol.Argument:
		return "argument", nil
	case symbol.Local:
		return "local", nil
	}
	return "", errors.Errorf("no segment for %s", k)
}

var binaryOps = map[string]string{
	"+": "add",
	"-": "sub",
	"&": "and",
	"|": "or",
	"<": "lt",
	">": "gt",
	"=": "eq",
	"*": "call Math.multiply 2",
	"/": "call Math.divide 2",
}

var unaryOps = map[string]string{
	"-": "neg",
	"~": "not",
}

type construct struct {
	op      Op // WhileStart or IfStart
	index   int
	hasElse bool
}

// Generator is an Emitter writing VM code text, one instruction per line.
type Generator struct {
	w   io.Writer
	tab *symbol.Table

	whileCount int
	ifCount    int
	open       []construct
	err        error
}

// New creates a Generator writing to w.  The table resolves the field count
// of constructed classes.
func New(w io.Writer, tab *symbol.Table) *Generator {
	return &Generator{w: w, tab: tab}
}

func (g *Generator) emit(format string, args ...interface{}) {
	if g.err != nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	if glog.V(2) {
		glog.Infof("emit %s", line)
	}
	if _, err := io.WriteString(g.w, line+"\n"); err != nil {
		g.err = errors.Wrap(err, "write VM code")
	}
}

func (g *Generator) push(op Op, index int) {
	g.open = append(g.open, construct{op: op, index: index})
}

func (g *Generator) top(op Op) (*construct, error) {
	if len(g.open) == 0 || g.open[len(g.open)-1].op != op {
		return nil, errors.Errorf("no open %s construct", op)
	}
	return &g.open[len(g.open)-1], nil
}

func (g *Generator) pop() {
	g.open = g.open[:len(g.open)-1]
}

func (g *Generator) variable(e Event) (string, int, error) {
	if e.Sym == nil || !e.Sym.Kind.IsVariable() {
		return "", 0, errors.Errorf("%s: %v is not a variable", e.Op, e.Sym)
	}
	seg, err := Segment(e.Sym.Kind)
	return seg, e.Sym.Addr, err
}

// Emit implements Emitter.
func (g *Generator) Emit(e Event) error {
	switch e.Op {
	case FunctionStart:
		if e.Sym == nil {
			return errors.New("function start without a subroutine")
		}
		g.whileCount, g.ifCount = 0, 0
		g.open = g.open[:0]
		g.emit("function %s %d", e.Text, e.Int)
		switch e.Sym.Kind {
		case symbol.Constructor:
			g.emit("push constant %d", g.tab.Count(e.Sym.Scope, symbol.Field))
			g.emit("call Memory.alloc 1")
			g.emit("pop pointer 0")
		case symbol.Method:
			g.emit("push argument 0")
			g.emit("pop pointer 0")
		}

	case PushVar, PopVar:
		seg, addr, err := g.variable(e)
		if err != nil {
			return err
		}
		if e.Op == PushVar {
			g.emit("push %s %d", seg, addr)
		} else {
			g.emit("pop %s %d", seg, addr)
		}

	case PushConstant:
		g.emit("push constant %d", e.Int)

	case PushString:
		g.emit("push constant %d", len(e.Text))
		g.emit("call String.new 1")
		for i := 0; i < len(e.Text); i++ {
			g.emit("push constant %d", e.Text[i])
			g.emit("call String.appendChar 2")
		}

	case PushKeyword:
		switch e.Text {
		case "true":
			g.emit("push constant 0")
			g.emit("not")
		case "false", "null":
			g.emit("push constant 0")
		case "this":
			g.emit("push pointer 0")
		default:
			return errors.Errorf("unknown keyword constant %q", e.Text)
		}

	case Binary:
		cmd, ok := binaryOps[e.Text]
		if !ok {
			return errors.Errorf("unknown binary operator %q", e.Text)
		}
		g.emit("%s", cmd)

	case Unary:
		cmd, ok := unaryOps[e.Text]
		if !ok {
			return errors.Errorf("unknown unary operator %q", e.Text)
		}
		g.emit("%s", cmd)

	case ArrayAddress:
		g.emit("add")

	case ArrayRead:
		g.emit("add")
		g.emit("pop pointer 1")
		g.emit("push that 0")

	case ArrayStore:
		g.emit("pop temp 0")
		g.emit("pop pointer 1")
		g.emit("push temp 0")
		g.emit("pop that 0")

	case WhileStart:
		g.push(WhileStart, g.whileCount)
		g.emit("label WHILE_EXP%d", g.whileCount)
		g.whileCount++

	case WhileCond:
		c, err := g.top(WhileStart)
		if err != nil {
			return err
		}
		g.emit("not")
		g.emit("if-goto WHILE_END%d", c.index)

	case WhileEnd:
		c, err := g.top(WhileStart)
		if err != nil {
			return err
		}
		g.emit("goto WHILE_EXP%d", c.index)
		g.emit("label WHILE_END%d", c.index)
		g.pop()

	case IfStart:
		g.push(IfStart, g.ifCount)
		g.emit("if-goto IF_TRUE%d", g.ifCount)
		g.emit("goto IF_FALSE%d", g.ifCount)
		g.emit("label IF_TRUE%d", g.ifCount)
		g.ifCount++

	case IfElse:
		c, err := g.top(IfStart)
		if err != nil {
			return err
		}
		c.hasElse = true
		g.emit("goto IF_END%d", c.index)
		g.emit("label IF_FALSE%d", c.index)

	case IfEnd:
		c, err := g.top(IfStart)
		if err != nil {
			return err
		}
		if c.hasElse {
			g.emit("label IF_END%d", c.index)
		} else {
			g.emit("label IF_FALSE%d", c.index)
		}
		g.pop()

	case PushReceiver:
		if e.Sym == nil {
			g.emit("push pointer 0")
			break
		}
		seg, addr, err := g.variable(e)
		if err != nil {
			return err
		}
		g.emit("push %s %d", seg, addr)

	case Call:
		g.emit("call %s %d", e.Text, e.Int)

	case Discard:
		g.emit("pop temp 0")

	case Return:
		g.emit("return")

	default:
		return errors.Errorf("unknown event %s", e.Op)
	}
	return g.err
}
