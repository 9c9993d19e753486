// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/jackc/internal/compiler/codegen"
	"github.com/google/jackc/internal/compiler/errors"
	"github.com/google/jackc/internal/compiler/symbol"
	"github.com/google/jackc/internal/testutil"
)

type file struct {
	name, text string
}

var osStubs = []file{
	{"Output.jack", "class Output {\n" +
		"  function void printInt(int i) { return; }\n" +
		"  function void printString(String s) { return; }\n" +
		"}\n"},
	{"Array.jack", "class Array { function Array new(int size) { return 0; } }\n"},
	{"String.jack", "class String { }\n"},
}

type undeclaredError struct {
	sym *symbol.Symbol
}

func (e undeclaredError) Error() string {
	return fmt.Sprintf("undeclared %s", e.sym.Name)
}

// compile runs the table-building pass over libs and files, checks for
// placeholders, then emits code for files only.
func compile(libs, files []file, maxDepth int) (string, *symbol.Table, error) {
	tab := symbol.New()
	ctx := Context{Table: tab, Pass: BuildTable, MaxRecursionDepth: maxDepth}
	for _, group := range [][]file{libs, files} {
		for _, f := range group {
			if err := Parse(f.name, strings.NewReader(f.text), ctx); err != nil {
				return "", tab, err
			}
		}
	}
	if sym := tab.ScanForUnresolved(); sym != nil {
		return "", tab, undeclaredError{sym}
	}
	var b strings.Builder
	ctx.Pass = EmitCode
	ctx.Emitter = codegen.New(&b, tab)
	for _, f := range files {
		if err := Parse(f.name, strings.NewReader(f.text), ctx); err != nil {
			return "", tab, err
		}
	}
	return b.String(), tab, nil
}

func vm(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

var parserTests = []struct {
	name   string
	source string
	want   string
}{
	{"return a constant",
		"class F { function int run() { return 7; } }",
		vm("function F.run 0",
			"push constant 7",
			"return")},

	{"print an expression",
		"class Main { function void main() { do Output.printInt(1+2*3); return; } }",
		vm("function Main.main 0",
			"push constant 1",
			"push constant 2",
			"push constant 3",
			"call Math.multiply 2",
			"add",
			"call Output.printInt 1",
			"pop temp 0",
			"push constant 0",
			"return")},

	{"left associative",
		"class F { function int run() { return 1 - 2 - 3; } }",
		vm("function F.run 0",
			"push constant 1",
			"push constant 2",
			"sub",
			"push constant 3",
			"sub",
			"return")},

	{"second if uses index 1",
		"class Main {\n" +
			"  function void f(int x) {\n" +
			"    var int y;\n" +
			"    if (x > 0) { let y = 0; }\n" +
			"    if (x > 0) { let y = 1; } else { let y = 2; }\n" +
			"    return;\n" +
			"  }\n" +
			"}\n",
		vm("function Main.f 1",
			"push argument 0",
			"push constant 0",
			"gt",
			"if-goto IF_TRUE0",
			"goto IF_FALSE0",
			"label IF_TRUE0",
			"push constant 0",
			"pop local 0",
			"label IF_FALSE0",
			"push argument 0",
			"push constant 0",
			"gt",
			"if-goto IF_TRUE1",
			"goto IF_FALSE1",
			"label IF_TRUE1",
			"push constant 1",
			"pop local 0",
			"goto IF_END1",
			"label IF_FALSE1",
			"push constant 2",
			"pop local 0",
			"label IF_END1",
			"push constant 0",
			"return")},

	{"objects",
		"class Point {\n" +
			"  field int x, y;\n" +
			"  static int count;\n" +
			"  constructor Point new(int ax, int ay) {\n" +
			"    let x = ax;\n" +
			"    let y = ay;\n" +
			"    let count = count + 1;\n" +
			"    return this;\n" +
			"  }\n" +
			"  method int sum() { return x + y; }\n" +
			"  method int twice() { return sum() + sum(); }\n" +
			"  function int make() {\n" +
			"    var Point p;\n" +
			"    let p = Point.new(1, 2);\n" +
			"    return p.sum();\n" +
			"  }\n" +
			"}\n",
		vm("function Point.new 0",
			"push constant 2",
			"call Memory.alloc 1",
			"pop pointer 0",
			"push argument 0",
			"pop this 0",
			"push argument 1",
			"pop this 1",
			"push static 0",
			"push constant 1",
			"add",
			"pop static 0",
			"push pointer 0",
			"return",
			"function Point.sum 0",
			"push argument 0",
			"pop pointer 0",
			"push this 0",
			"push this 1",
			"add",
			"return",
			"function Point.twice 0",
			"push argument 0",
			"pop pointer 0",
			"push pointer 0",
			"call Point.sum 1",
			"push pointer 0",
			"call Point.sum 1",
			"add",
			"return",
			"function Point.make 1",
			"push constant 1",
			"push constant 2",
			"call Point.new 2",
			"pop local 0",
			"push local 0",
			"call Point.sum 1",
			"return")},

	{"method arguments follow the receiver",
		"class C { method int get(int k) { return k; } }",
		vm("function C.get 0",
			"push argument 0",
			"pop pointer 0",
			"push argument 1",
			"return")},

	{"arrays strings and loops",
		"class Main {\n" +
			"  function void main() {\n" +
			"    var Array a;\n" +
			"    var int i;\n" +
			"    let a = Array.new(3);\n" +
			"    let i = 0;\n" +
			"    while (i < 3) {\n" +
			"      let a[i] = -i;\n" +
			"      let i = i + 1;\n" +
			"    }\n" +
			"    do Output.printString(\"ok\");\n" +
			"    return;\n" +
			"  }\n" +
			"}\n",
		vm("function Main.main 2",
			"push constant 3",
			"call Array.new 1",
			"pop local 0",
			"push constant 0",
			"pop local 1",
			"label WHILE_EXP0",
			"push local 1",
			"push constant 3",
			"lt",
			"not",
			"if-goto WHILE_END0",
			"push local 0",
			"push local 1",
			"add",
			"push local 1",
			"neg",
			"pop temp 0",
			"pop pointer 1",
			"push temp 0",
			"pop that 0",
			"push local 1",
			"push constant 1",
			"add",
			"pop local 1",
			"goto WHILE_EXP0",
			"label WHILE_END0",
			"push constant 2",
			"call String.new 1",
			"push constant 111",
			"call String.appendChar 2",
			"push constant 107",
			"call String.appendChar 2",
			"call Output.printString 1",
			"pop temp 0",
			"push constant 0",
			"return")},

	{"array reads and keyword constants",
		"class Main {\n" +
			"  function int f(Array a) {\n" +
			"    var boolean b;\n" +
			"    let b = true & ~false;\n" +
			"    if (b = null) { return a[2]; }\n" +
			"    return (1 + 2) * 3;\n" +
			"  }\n" +
			"}\n",
		vm("function Main.f 1",
			"push constant 0",
			"not",
			"push constant 0",
			"not",
			"and",
			"pop local 0",
			"push local 0",
			"push constant 0",
			"eq",
			"if-goto IF_TRUE0",
			"goto IF_FALSE0",
			"label IF_TRUE0",
			"push argument 0",
			"push constant 2",
			"add",
			"pop pointer 1",
			"push that 0",
			"return",
			"label IF_FALSE0",
			"push constant 1",
			"push constant 2",
			"add",
			"push constant 3",
			"call Math.multiply 2",
			"return")},

	{"locals declared later in the body",
		"class M { function int f() { var int a; let a = 1; var int b; let b = a; return b; } }",
		vm("function M.f 2",
			"push constant 1",
			"pop local 0",
			"push local 0",
			"pop local 1",
			"push local 1",
			"return")},

	{"two classes in one file",
		"class A { function int f() { return B.g(); } }\n" +
			"class B { function int g() { return 1; } }\n",
		vm("function A.f 0",
			"call B.g 0",
			"return",
			"function B.g 0",
			"push constant 1",
			"return")},
}

func TestParseAndEmit(t *testing.T) {
	for _, tc := range parserTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := compile(osStubs, []file{{"Main.jack", tc.source}}, 0)
			testutil.FatalIfErr(t, err)
			testutil.ExpectNoDiff(t, tc.want, got)
		})
	}
}

var errorTests = []struct {
	name   string
	source string
	kind   errors.Kind
	line   int
	near   string
}{
	{"redeclared field",
		"class A {\n  field int a;\n  field int b;\n  field int a;\n}\n",
		errors.Redeclaration, 4, "a"},
	{"redeclared subroutine",
		"class A { function void f() { return; } method void f() { return; } }",
		errors.Redeclaration, 1, "f"},
	{"redeclared local",
		"class A { function void f(int x) { var int x; return; } }",
		errors.Redeclaration, 1, "x"},
	{"class expected",
		"function void f() {}",
		errors.ClassExpected, 1, "function"},
	{"identifier expected",
		"class { }",
		errors.IDExpected, 1, "{"},
	{"open brace expected",
		"class A field int x; }",
		errors.OpenBraceExpected, 1, "field"},
	{"close brace expected",
		"class A { function void f() { return; }",
		errors.CloseBraceExpected, 1, ""},
	{"semicolon expected",
		"class A { function void f() { var int x; let x = 1 } }",
		errors.SemicolonExpected, 1, "}"},
	{"equal expected",
		"class A { function void f() { var int x; let x 1; } }",
		errors.EqualExpected, 1, "1"},
	{"close bracket expected",
		"class A { function void f(Array a) { let a[1 = 2; } }",
		errors.CloseBracketExpected, 1, ";"},
	{"open paren expected",
		"class A { function void f { return; } }",
		errors.OpenParenExpected, 1, "{"},
	{"close paren expected",
		"class A { function void f() { if (true { return; } } }",
		errors.CloseParenExpected, 1, "{"},
	{"illegal type",
		"class A { field void x; }",
		errors.IllegalType, 1, "void"},
	{"member declaration",
		"class A { let x = 1; }",
		errors.MemberDeclaration, 1, "let"},
	{"class variable declaration",
		"class A { field int x y; }",
		errors.ClassVarDeclaration, 1, "y"},
	{"subroutine declaration",
		"class A { function 3 f() { return; } }",
		errors.SubroutineDeclaration, 1, "3"},
	{"statement expected",
		"class A { function void f() { f(); } }",
		errors.StatementExpected, 1, "f"},
	{"operand expected",
		"class A { function int f() { return +; } }",
		errors.OperandExpected, 1, "+"},
	{"lexer error",
		"class A # { }",
		errors.LexerError, 1, "#"},
	{"not a variable",
		"class A { function void f() { let f = 1; return; } }",
		errors.NotAVariable, 1, "f"},
	{"not a subroutine",
		"class A { field int x; method void f() { do x(); return; } }",
		errors.NotASubroutine, 1, "x"},
	{"call on an int",
		"class A { function void f() { var int i; do i.g(); return; } }",
		errors.NotASubroutine, 1, "g"},
	{"method called from a function",
		"class A { method void m() { return; } function void f() { do m(); return; } }",
		errors.MissingReceiver, 1, "m"},
	{"this in a function",
		"class A { function A f() { return this; } }",
		errors.InvalidThis, 1, "this"},
	{"field in a function",
		"class A { field int x; function int f() { return x; } }",
		errors.InvalidThis, 1, "x"},
}

func TestParseErrors(t *testing.T) {
	for _, tc := range errorTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := compile(nil, []file{{"A.jack", tc.source}}, 0)
			if err == nil {
				t.Fatalf("expected %s error", tc.kind)
			}
			e, ok := err.(*errors.Error)
			if !ok {
				t.Fatalf("expected *errors.Error, got %T: %v", err, err)
			}
			if e.Kind != tc.kind || e.Token.Pos.Line != tc.line || e.Token.Spelling != tc.near {
				t.Errorf("got %s at line %d near %q, want %s at line %d near %q (%v)",
					e.Kind, e.Token.Pos.Line, e.Token.Spelling, tc.kind, tc.line, tc.near, e)
			}
		})
	}
}

func TestRedeclaredFieldDiagnostic(t *testing.T) {
	_, _, err := compile(nil, []file{{"Main.jack", "class Main {\n  field int a;\n  field int b;\n  field int a;\n}\n"}}, 0)
	want := "Error: redeclared identifier. Occurred at line 4 near a token in file Main.jack."
	if err == nil || err.Error() != want {
		t.Errorf("got %v, want %q", err, want)
	}
}

func TestNestingTooDeep(t *testing.T) {
	src := "class A { function int f() { return ((((1)))); } }"
	if _, _, err := compile(nil, []file{{"A.jack", src}}, 10); err != nil {
		t.Fatalf("unexpected error with room to nest: %v", err)
	}
	_, _, err := compile(nil, []file{{"A.jack", src}}, 3)
	if k := errors.KindOf(err); k != errors.NestingTooDeep {
		t.Errorf("got %v, want %s", err, errors.NestingTooDeep)
	}
	_, _, err = compile(nil, []file{{"A.jack", "class A { function int f() { return - - - - 1; } }"}}, 3)
	if k := errors.KindOf(err); k != errors.NestingTooDeep {
		t.Errorf("unary chain: got %v, want %s", err, errors.NestingTooDeep)
	}
}

func TestUndeclared(t *testing.T) {
	tests := []struct {
		name, source, symbol string
	}{
		{"unknown class", "class A { function void f() { do B.g(); return; } }", "B"},
		{"unknown member", "class A { function void f() { do A.g(); return; } }", "g"},
		{"unknown routine", "class A { function void f() { do g(); return; } }", "g"},
		{"unknown variable", "class A { function void f() { let v = 1; return; } }", "v"},
		{"unknown type", "class A { field Thing t; }", "Thing"},
		{"os routine without library", "class A { function void f() { do Output.printInt(1); return; } }", "Output"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := compile(nil, []file{{"A.jack", tc.source}}, 0)
			u, ok := err.(undeclaredError)
			if !ok {
				t.Fatalf("expected undeclared %s, got %v", tc.symbol, err)
			}
			if u.sym.Name != tc.symbol {
				t.Errorf("got undeclared %s, want %s", u.sym.Name, tc.symbol)
			}
		})
	}
}

func TestForwardReferenceKeepsIdentity(t *testing.T) {
	tab := symbol.New()
	ctx := Context{Table: tab, Pass: BuildTable}
	main := "class Main { function void main() { do Helper.run(); return; } }"
	helper := "class Helper { function void run() { return; } }"

	testutil.FatalIfErr(t, Parse("Main.jack", strings.NewReader(main), ctx))
	ph := tab.ResolveInClass("Helper", "run")
	if ph == nil || !ph.IsPlaceholder() {
		t.Fatalf("expected placeholder for Helper.run, got %v", ph)
	}
	cls := tab.LookupLocal(tab.Root(), "Helper")
	if cls == nil || !cls.IsPlaceholder() {
		t.Fatalf("expected placeholder class Helper, got %v", cls)
	}

	testutil.FatalIfErr(t, Parse("Helper.jack", strings.NewReader(helper), ctx))
	if got := tab.ResolveInClass("Helper", "run"); got != ph {
		t.Errorf("declaration replaced the placeholder: %p != %p", got, ph)
	}
	if ph.Kind != symbol.Function || cls.Kind != symbol.Class {
		t.Errorf("placeholders not completed: %v, %v", ph, cls)
	}
	if sym := tab.ScanForUnresolved(); sym != nil {
		t.Errorf("unresolved %v", sym)
	}
}

func TestPassesBuildTheSameTable(t *testing.T) {
	files := []file{{"Main.jack", parserTests[4].source}}
	tab := symbol.New()
	ctx := Context{Table: tab, Pass: BuildTable}
	testutil.FatalIfErr(t, Parse(files[0].name, strings.NewReader(files[0].text), ctx))
	before, n := symbol.Dump(tab), tab.Len()

	rec := &codegen.Recorder{}
	ctx.Pass, ctx.Emitter = EmitCode, rec
	testutil.FatalIfErr(t, Parse(files[0].name, strings.NewReader(files[0].text), ctx))
	testutil.ExpectNoDiff(t, before, symbol.Dump(tab))
	if tab.Len() != n {
		t.Errorf("code emission added symbols: %d != %d", tab.Len(), n)
	}

	// One function line per subroutine, each with its local count.
	var starts []string
	for _, e := range rec.Events {
		if e.Op == codegen.FunctionStart {
			starts = append(starts, fmt.Sprintf("%s %d", e.Text, e.Int))
		}
	}
	testutil.ExpectNoDiff(t, []string{"Point.new 0", "Point.sum 0", "Point.twice 0", "Point.make 1"}, starts)
}

func TestParseRequiresEmitter(t *testing.T) {
	err := Parse("A.jack", strings.NewReader("class A { }"), Context{Table: symbol.New(), Pass: EmitCode})
	if err == nil {
		t.Error("expected an error without an emitter")
	}
	if err := Parse("A.jack", strings.NewReader(""), Context{Table: symbol.New()}); err != nil {
		t.Errorf("empty file: %v", err)
	}
}
