// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Opcode enumerates the VM commands.
type Opcode int

const (
	Push Opcode = iota
	Pop
	Add
	Sub
	Neg
	Eq
	Gt
	Lt
	And
	Or
	Not
	Label
	Goto
	IfGoto
	Function
	Call
	Return
)

var opNames = [...]string{
	Push:     "push",
	Pop:      "pop",
	Add:      "add",
	Sub:      "sub",
	Neg:      "neg",
	Eq:       "eq",
	Gt:       "gt",
	Lt:       "lt",
	And:      "and",
	Or:       "or",
	Not:      "not",
	Label:    "label",
	Goto:     "goto",
	IfGoto:   "if-goto",
	Function: "function",
	Call:     "call",
	Return:   "return",
}

var opcodes = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opNames))
	for op, name := range opNames {
		m[name] = Opcode(op)
	}
	return m
}()

func (o Opcode) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Opcode(%d)", int(o))
}

// arity is the number of operands each opcode takes.
var arity = map[Opcode]int{
	Push:     2,
	Pop:      2,
	Label:    1,
	Goto:     1,
	IfGoto:   1,
	Function: 2,
	Call:     2,
}

// Instr is one VM command.  Arg holds the segment, label or function name;
// Operand the index, local count or argument count.
type Instr struct {
	Opcode     Opcode
	Arg        string
	Operand    int
	SourceLine int // Zero based line in the VM source.
}

// String renders the instruction in VM syntax.
func (i Instr) String() string {
	switch arity[i.Opcode] {
	case 2:
		return fmt.Sprintf("%s %s %d", i.Opcode, i.Arg, i.Operand)
	case 1:
		return fmt.Sprintf("%s %s", i.Opcode, i.Arg)
	}
	return i.Opcode.String()
}

var segments = map[string]bool{
	"constant": true,
	"static":   true,
	"argument": true,
	"local":    true,
	"this":     true,
	"that":     true,
	"pointer":  true,
	"temp":     true,
}

// Assemble parses VM text read from r.  Blank lines and // comments are
// skipped.
func Assemble(name string, r io.Reader) ([]Instr, error) {
	var prog []Instr
	s := bufio.NewScanner(r)
	for line := 0; s.Scan(); line++ {
		text := s.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}
		f := strings.Fields(text)
		if len(f) == 0 {
			continue
		}
		op, ok := opcodes[f[0]]
		if !ok {
			return nil, errors.Errorf("%s:%d: unknown command %q", name, line+1, f[0])
		}
		if len(f)-1 != arity[op] {
			return nil, errors.Errorf("%s:%d: %s takes %d operands, got %d", name, line+1, op, arity[op], len(f)-1)
		}
		in := Instr{Opcode: op, SourceLine: line}
		if len(f) > 1 {
			in.Arg = f[1]
		}
		if len(f) > 2 {
			n, err := strconv.Atoi(f[2])
			if err != nil || n < 0 {
				return nil, errors.Errorf("%s:%d: bad operand %q", name, line+1, f[2])
			}
			in.Operand = n
		}
		if (op == Push || op == Pop) && !segments[in.Arg] {
			return nil, errors.Errorf("%s:%d: unknown segment %q", name, line+1, in.Arg)
		}
		if op == Pop && in.Arg == "constant" {
			return nil, errors.Errorf("%s:%d: cannot pop to constant", name, line+1)
		}
		prog = append(prog, in)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return prog, nil
}
