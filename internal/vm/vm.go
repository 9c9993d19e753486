// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package vm provides a small interpreter for the stack machine code the
// compiler emits, with the operating system library implemented natively.
// It is used to run compiled programs in tests.
package vm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"text/tabwriter"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Memory map of the machine.
const (
	SP   = 0
	LCL  = 1
	ARG  = 2
	THIS = 3
	THAT = 4

	TempBase   = 5
	TempSize   = 8
	StaticBase = 16
	StaticTop  = 255
	StackBase  = 256
	HeapBase   = 2048
	HeapTop    = 16383
	MemorySize = 32768
)

// True is the machine representation of boolean true.
const True int16 = -1

// DefaultMaxSteps bounds the number of instructions a Run executes.
const DefaultMaxSteps = 1000000

// Native implements a library subroutine in Go.  It receives the call
// arguments in order and returns the subroutine's value.
type Native func(v *VM, args []int16) (int16, error)

// VM executes loaded VM code.  A VM is not safe for concurrent use.
type VM struct {
	prog   []Instr
	fileOf []int // index into statics, per instruction
	files  []string
	static []int // static segment base, per file

	funcs  map[string]int // function name to entry pc
	labels map[string]int // function$label to pc

	natives map[string]Native

	mem     []int16
	heap    int
	pc      int
	returns []int
	halted  bool

	out      io.Writer
	maxSteps int
}

// Option configures a new VM.
type Option func(*VM) error

// Output directs the Output library to w.
func Output(w io.Writer) Option {
	return func(v *VM) error {
		v.out = w
		return nil
	}
}

// MaxSteps bounds the number of instructions a Run executes.
func MaxSteps(n int) Option {
	return func(v *VM) error {
		if n <= 0 {
			return errors.Errorf("max steps must be positive, not %d", n)
		}
		v.maxSteps = n
		return nil
	}
}

// New creates an empty VM.
func New(options ...Option) (*VM, error) {
	v := &VM{
		funcs:    make(map[string]int),
		labels:   make(map[string]int),
		natives:  make(map[string]Native),
		mem:      make([]int16, MemorySize),
		out:      ioutil.Discard,
		maxSteps: DefaultMaxSteps,
	}
	for name, fn := range builtins {
		v.natives[name] = fn
	}
	for _, o := range options {
		if err := o(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Load links the program of one file into the VM.  Each file gets its own
// static segment.  Labels are local to their function.
func (v *VM) Load(name string, prog []Instr) error {
	file := len(v.files)
	base := StaticBase
	if file > 0 {
		base = v.static[file-1] + v.staticsUsed(file-1)
	}
	v.files = append(v.files, name)
	v.static = append(v.static, base)

	start := len(v.prog)
	fn := ""
	for i, in := range prog {
		pc := start + i
		switch in.Opcode {
		case Function:
			if _, ok := v.funcs[in.Arg]; ok {
				return errors.Errorf("%s:%d: function %s defined twice", name, in.SourceLine+1, in.Arg)
			}
			fn = in.Arg
			v.funcs[fn] = pc
		case Label:
			key := fn + "$" + in.Arg
			if _, ok := v.labels[key]; ok {
				return errors.Errorf("%s:%d: label %s defined twice in %s", name, in.SourceLine+1, in.Arg, fn)
			}
			v.labels[key] = pc
		}
		if (in.Opcode == Push || in.Opcode == Pop) && in.Arg == "static" && base+in.Operand > StaticTop {
			return errors.Errorf("%s:%d: static segment overflow", name, in.SourceLine+1)
		}
		v.fileOf = append(v.fileOf, file)
	}
	v.prog = append(v.prog, prog...)
	glog.V(1).Infof("Loaded %s: %d instructions, statics at %d", name, len(prog), base)
	return nil
}

// staticsUsed returns the size of the static segment of file.
func (v *VM) staticsUsed(file int) int {
	n := 0
	for pc, f := range v.fileOf {
		in := v.prog[pc]
		if f == file && (in.Opcode == Push || in.Opcode == Pop) && in.Arg == "static" && in.Operand+1 > n {
			n = in.Operand + 1
		}
	}
	return n
}

// Run calls the function entry with args and executes until it returns,
// yielding its value.
func (v *VM) Run(ctx context.Context, entry string, args ...int16) (int16, error) {
	for i := range v.mem {
		v.mem[i] = 0
	}
	v.mem[SP] = StackBase
	v.mem[LCL] = StackBase
	v.mem[ARG] = StackBase
	v.heap = HeapBase
	v.returns = v.returns[:0]
	v.halted = false
	v.pc = -1

	for _, a := range args {
		if err := v.push(a); err != nil {
			return 0, err
		}
	}
	if err := v.call(entry, len(args), -1); err != nil {
		return 0, err
	}
	for steps := 0; v.pc >= 0 && !v.halted; steps++ {
		if steps >= v.maxSteps {
			return 0, v.errorf("step limit of %d exceeded", v.maxSteps)
		}
		if steps%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if v.pc >= len(v.prog) {
			return 0, errors.Errorf("program counter %d ran off the end of the program", v.pc)
		}
		if err := v.execute(v.prog[v.pc]); err != nil {
			return 0, err
		}
	}
	if v.halted {
		return 0, nil
	}
	return v.pop()
}

func (v *VM) push(x int16) error {
	sp := int(v.mem[SP])
	if sp < StackBase || sp >= HeapBase {
		return v.errorf("stack overflow")
	}
	v.mem[sp] = x
	v.mem[SP]++
	return nil
}

func (v *VM) pop() (int16, error) {
	sp := int(v.mem[SP])
	if sp <= StackBase {
		return 0, v.errorf("stack underflow")
	}
	v.mem[SP]--
	return v.mem[sp-1], nil
}

// Peek returns the word at addr.
func (v *VM) Peek(addr int) (int16, error) {
	if addr < 0 || addr >= MemorySize {
		return 0, errors.Errorf("address %d out of range", addr)
	}
	return v.mem[addr], nil
}

// Poke stores x at addr.
func (v *VM) Poke(addr int, x int16) error {
	if addr < 0 || addr >= MemorySize {
		return errors.Errorf("address %d out of range", addr)
	}
	v.mem[addr] = x
	return nil
}

// address returns the memory address of segment[index].
func (v *VM) address(segment string, index int) (int, error) {
	var addr int
	switch segment {
	case "local":
		addr = int(v.mem[LCL]) + index
	case "argument":
		addr = int(v.mem[ARG]) + index
	case "this":
		addr = int(v.mem[THIS]) + index
	case "that":
		addr = int(v.mem[THAT]) + index
	case "pointer":
		if index > 1 {
			return 0, v.errorf("pointer %d out of range", index)
		}
		addr = THIS + index
	case "temp":
		if index >= TempSize {
			return 0, v.errorf("temp %d out of range", index)
		}
		addr = TempBase + index
	case "static":
		addr = v.static[v.fileOf[v.pc]] + index
	default:
		return 0, v.errorf("segment %s has no address", segment)
	}
	if addr < 0 || addr >= MemorySize {
		return 0, v.errorf("%s %d: address %d out of range", segment, index, addr)
	}
	return addr, nil
}

// call transfers control to name with nArgs arguments on the stack.
// Control comes back to ret.
func (v *VM) call(name string, nArgs int, ret int) error {
	if pc, ok := v.funcs[name]; ok {
		sp := int(v.mem[SP])
		for _, x := range []int16{0, v.mem[LCL], v.mem[ARG], v.mem[THIS], v.mem[THAT]} {
			if err := v.push(x); err != nil {
				return err
			}
		}
		v.mem[ARG] = int16(sp - nArgs)
		v.mem[LCL] = v.mem[SP]
		v.returns = append(v.returns, ret)
		v.pc = pc
		return nil
	}
	fn, ok := v.natives[name]
	if !ok {
		return v.errorf("call of undefined function %s", name)
	}
	args := make([]int16, nArgs)
	for i := nArgs - 1; i >= 0; i-- {
		x, err := v.pop()
		if err != nil {
			return err
		}
		args[i] = x
	}
	r, err := fn(v, args)
	if err != nil {
		return v.errorf("%s: %s", name, err)
	}
	v.pc = ret
	return v.push(r)
}

func boolean(b bool) int16 {
	if b {
		return True
	}
	return 0
}

// execute performs one instruction.
func (v *VM) execute(in Instr) error {
	next := v.pc + 1
	switch in.Opcode {
	case Push:
		if in.Arg == "constant" {
			if in.Operand > 32767 {
				return v.errorf("constant %d out of range", in.Operand)
			}
			if err := v.push(int16(in.Operand)); err != nil {
				return err
			}
			break
		}
		addr, err := v.address(in.Arg, in.Operand)
		if err != nil {
			return err
		}
		if err := v.push(v.mem[addr]); err != nil {
			return err
		}

	case Pop:
		addr, err := v.address(in.Arg, in.Operand)
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		v.mem[addr] = x

	case Neg, Not:
		x, err := v.pop()
		if err != nil {
			return err
		}
		if in.Opcode == Neg {
			x = -x
		} else {
			x = ^x
		}
		if err := v.push(x); err != nil {
			return err
		}

	case Add, Sub, Eq, Gt, Lt, And, Or:
		b, err := v.pop()
		if err != nil {
			return err
		}
		a, err := v.pop()
		if err != nil {
			return err
		}
		var r int16
		switch in.Opcode {
		case Add:
			r = a + b
		case Sub:
			r = a - b
		case Eq:
			r = boolean(a == b)
		case Gt:
			r = boolean(a > b)
		case Lt:
			r = boolean(a < b)
		case And:
			r = a & b
		case Or:
			r = a | b
		}
		if err := v.push(r); err != nil {
			return err
		}

	case Label:

	case Goto, IfGoto:
		if in.Opcode == IfGoto {
			x, err := v.pop()
			if err != nil {
				return err
			}
			if x == 0 {
				break
			}
		}
		pc, err := v.label(in.Arg)
		if err != nil {
			return err
		}
		next = pc

	case Function:
		for i := 0; i < in.Operand; i++ {
			if err := v.push(0); err != nil {
				return err
			}
		}

	case Call:
		return v.call(in.Arg, in.Operand, next)

	case Return:
		frame := int(v.mem[LCL])
		if frame < StackBase+5 || len(v.returns) == 0 {
			return v.errorf("return without a call frame")
		}
		r, err := v.pop()
		if err != nil {
			return err
		}
		arg := int(v.mem[ARG])
		v.mem[arg] = r
		v.mem[SP] = int16(arg + 1)
		v.mem[THAT] = v.mem[frame-1]
		v.mem[THIS] = v.mem[frame-2]
		v.mem[ARG] = v.mem[frame-3]
		v.mem[LCL] = v.mem[frame-4]
		next = v.returns[len(v.returns)-1]
		v.returns = v.returns[:len(v.returns)-1]

	default:
		return v.errorf("unknown opcode %s", in.Opcode)
	}
	v.pc = next
	return nil
}

// label finds the pc of a label in the function being executed.
func (v *VM) label(name string) (int, error) {
	fn := ""
	for pc := v.pc; pc >= 0; pc-- {
		if v.prog[pc].Opcode == Function {
			fn = v.prog[pc].Arg
			break
		}
	}
	pc, ok := v.labels[fn+"$"+name]
	if !ok {
		return 0, v.errorf("undefined label %s in %s", name, fn)
	}
	return pc, nil
}

// errorf builds a runtime error that names the instruction being executed.
func (v *VM) errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if v.pc < 0 || v.pc >= len(v.prog) {
		return errors.New(msg)
	}
	in := v.prog[v.pc]
	err := errors.Errorf("%s: at instruction %d {%s}, originating in %s at line %d",
		msg, v.pc, in, v.files[v.fileOf[v.pc]], in.SourceLine+1)
	if glog.V(1) {
		glog.Infof("Runtime error: %s", err)
		glog.Infof("Stack pointer %d, LCL %d, ARG %d, THIS %d, THAT %d",
			v.mem[SP], v.mem[LCL], v.mem[ARG], v.mem[THIS], v.mem[THAT])
	}
	return err
}

// DumpByteCode emits the program disassembly to a string.
func (v *VM) DumpByteCode() string {
	b := new(bytes.Buffer)
	w := new(tabwriter.Writer)
	w.Init(b, 0, 0, 1, ' ', tabwriter.AlignRight)

	fmt.Fprintln(w, "disasm\tl\top\targ\topnd\tfile\tline\t")
	for n, i := range v.prog {
		fmt.Fprintf(w, "\t%d\t%s\t%s\t%d\t%s\t%d\t\n", n, i.Opcode, i.Arg, i.Operand, v.files[v.fileOf[n]], i.SourceLine+1)
	}
	if err := w.Flush(); err != nil {
		glog.Infof("flush error: %s", err)
	}
	return b.String()
}
