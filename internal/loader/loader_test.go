// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/jackc/internal/testutil"
	"github.com/google/jackc/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
)

const printMain = "class Main { function void main() { do Output.printInt(1+2*3); return; } }"

var printMainVM = strings.Join([]string{
	"function Main.main 0",
	"push constant 1",
	"push constant 2",
	"push constant 3",
	"call Math.multiply 2",
	"add",
	"call Output.printInt 1",
	"pop temp 0",
	"push constant 0",
	"return",
}, "\n") + "\n"

func TestCompileWritesObjects(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteSource(t, dir, "Main.jack", printMain)
	testutil.WriteSource(t, dir, "Util.jack", "class Util { function int one() { return 1; } }")
	testutil.WriteSource(t, dir, ".Hidden.jack", "this is not jack")
	testutil.WriteSource(t, dir, "README", "neither is this")

	defer testutil.ExpectMapExpvarDelta(t, "jackc_compiles_total", dir, 1)()
	defer testutil.ExpectExpvarDelta(t, "jackc_vm_files_written_total", 2)()

	var status strings.Builder
	l, err := New(dir, StatusWriter(&status))
	testutil.FatalIfErr(t, err)
	outputs, err := l.Compile(context.Background())
	testutil.FatalIfErr(t, err)

	want := []string{filepath.Join(dir, "Main.vm"), filepath.Join(dir, "Util.vm")}
	testutil.ExpectNoDiff(t, want, outputs)
	testutil.ExpectNoDiff(t, printMainVM, testutil.ReadFile(t, outputs[0]))
	testutil.ExpectNoDiff(t, "function Util.one 0\npush constant 1\nreturn\n", testutil.ReadFile(t, outputs[1]))
	testutil.ExpectNoDiff(t, "Compilation successful\n", status.String())
	testutil.FatalIfErr(t, l.LastError())
}

func TestCompileErrorWritesNothing(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteSource(t, dir, "A.jack", "class A { function void f() { return; } }")
	testutil.WriteSource(t, dir, "Main.jack", "class Main { function void main() { do Output.printFloat(1); return; } }")

	defer testutil.ExpectMapExpvarDelta(t, "jackc_compile_errors_total", dir, 1)()

	var status strings.Builder
	l, err := New(dir, StatusWriter(&status))
	testutil.FatalIfErr(t, err)
	if _, err := l.Compile(context.Background()); err == nil {
		t.Fatal("expected a compile error")
	}
	diagnostic := "Error: undeclared identifier. Occurred at line 1 near printFloat token in file Main.jack."
	testutil.ExpectNoDiff(t, diagnostic+"\nCompilation failed\n", status.String())
	if l.LastError() == nil {
		t.Error("LastError is nil")
	}
	for _, name := range []string{"A.vm", "Main.vm"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s written after a failed compilation: %v", name, err)
		}
	}
}

func TestOutputDir(t *testing.T) {
	dir := testutil.TestTempDir(t)
	src := testutil.WriteSource(t, dir, "Main.jack", printMain)
	out := filepath.Join(dir, "build", "vm")

	l, err := New(src, OutputDir(out))
	testutil.FatalIfErr(t, err)
	outputs, err := l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, []string{filepath.Join(out, "Main.vm")}, outputs)
	testutil.ExpectNoDiff(t, printMainVM, testutil.ReadFile(t, outputs[0]))
}

func TestUnchangedSourcesAreNotRecompiled(t *testing.T) {
	dir := testutil.TestTempDir(t)
	src := testutil.WriteSource(t, dir, "Main.jack", printMain)

	l, err := New(dir)
	testutil.FatalIfErr(t, err)
	_, err = l.Compile(context.Background())
	testutil.FatalIfErr(t, err)

	skipped := testutil.ExpectExpvarDelta(t, "jackc_compiles_skipped_total", 1)
	written := testutil.ExpectExpvarDelta(t, "jackc_vm_files_written_total", 0)
	_, err = l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
	skipped()
	written()

	testutil.FatalIfErr(t, os.WriteFile(src, []byte("class Main { function int main() { return 2; } }"), 0o600))
	defer testutil.ExpectExpvarDelta(t, "jackc_vm_files_written_total", 1)()
	outputs, err := l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, "function Main.main 0\npush constant 2\nreturn\n", testutil.ReadFile(t, outputs[0]))
}

func TestDeletedOutputIsRewritten(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteSource(t, dir, "Main.jack", printMain)

	l, err := New(dir)
	testutil.FatalIfErr(t, err)
	outputs, err := l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
	testutil.FatalIfErr(t, os.Remove(outputs[0]))

	_, err = l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, printMainVM, testutil.ReadFile(t, outputs[0]))
}

func TestCompileOnly(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteSource(t, dir, "Main.jack", printMain)

	l, err := New(dir, CompileOnly())
	testutil.FatalIfErr(t, err)
	outputs, err := l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
	if len(outputs) != 0 {
		t.Errorf("compile only produced outputs %v", outputs)
	}
	if _, err := os.Stat(filepath.Join(dir, "Main.vm")); !os.IsNotExist(err) {
		t.Errorf("Main.vm written in compile only mode: %v", err)
	}
}

func TestLibraries(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteSource(t, dir, "Main.jack", printMain)

	l, err := New(dir, NoStdlib(), CompileOnly())
	testutil.FatalIfErr(t, err)
	if _, err := l.Compile(context.Background()); err == nil {
		t.Fatal("expected Output to be undeclared without the standard library")
	}

	libdir := testutil.TestTempDir(t)
	testutil.WriteSource(t, libdir, "Output.jack", "class Output { function void printInt(int i) { return; } }")
	testutil.WriteSource(t, libdir, "Math.jack", "class Math { function int multiply(int x, int y) { return 0; } }")
	l, err = New(dir, NoStdlib(), LibraryPaths(libdir))
	testutil.FatalIfErr(t, err)
	outputs, err := l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, []string{filepath.Join(dir, "Main.vm")}, outputs)
	if _, err := os.Stat(filepath.Join(libdir, "Output.vm")); !os.IsNotExist(err) {
		t.Errorf("library source compiled: %v", err)
	}
}

func TestSourceErrors(t *testing.T) {
	dir := testutil.TestTempDir(t)
	other := testutil.WriteSource(t, dir, "Main.java", "class Main {}")
	for _, path := range []string{dir, other, filepath.Join(dir, "missing")} {
		l, err := New(path)
		testutil.FatalIfErr(t, err)
		if _, err := l.Compile(context.Background()); err == nil {
			t.Errorf("Compile(%q) succeeded", path)
		}
	}
	if _, err := New(""); err == nil {
		t.Error("New with no source path succeeded")
	}
}

func TestMaxRecursionDepth(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteSource(t, dir, "Main.jack", "class Main { function int main() { return ((((1)))); } }")

	l, err := New(dir, NoStdlib(), MaxRecursionDepth(2), CompileOnly())
	testutil.FatalIfErr(t, err)
	if _, err := l.Compile(context.Background()); err == nil {
		t.Error("expected nesting to be too deep")
	}
	l, err = New(dir, NoStdlib(), MaxRecursionDepth(20), CompileOnly(), DumpSymbols())
	testutil.FatalIfErr(t, err)
	_, err = l.Compile(context.Background())
	testutil.FatalIfErr(t, err)
}

func TestPrometheusRegisterer(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteSource(t, dir, "Main.jack", printMain)

	reg := prometheus.NewRegistry()
	l, err := New(dir, PrometheusRegisterer(reg), CompileOnly())
	testutil.FatalIfErr(t, err)
	_, err = l.Compile(context.Background())
	testutil.FatalIfErr(t, err)

	families, err := reg.Gather()
	testutil.FatalIfErr(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	want := []string{
		"jackc_loader_compile_duration_seconds",
		"jackc_loader_compiles_total",
		"jackc_loader_source_files",
	}
	testutil.ExpectNoDiff(t, want, names)
}

func TestWatchRecompilesOnChange(t *testing.T) {
	dir := testutil.TestTempDir(t)
	src := testutil.WriteSource(t, dir, "Main.jack", printMain)

	w := watcher.NewFakeWatcher()
	l, err := New(dir)
	testutil.FatalIfErr(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- l.Watch(ctx, w)
	}()
	ok, err := testutil.DoOrTimeout(func() (bool, error) {
		return w.IsWatching(dir), nil
	}, 10*time.Second, time.Millisecond)
	testutil.FatalIfErr(t, err)
	if !ok {
		t.Fatalf("loader is not watching %s", dir)
	}

	testutil.FatalIfErr(t, os.WriteFile(src, []byte("class Main { function int main() { return 3; } }"), 0o600))
	w.InjectUpdate(src)
	testutil.ExpectNoDiff(t, "function Main.main 0\npush constant 3\nreturn\n", testutil.ReadFile(t, filepath.Join(dir, "Main.vm")))

	testutil.FatalIfErr(t, os.WriteFile(src, []byte("class Main { function int main() { return x; } }"), 0o600))
	w.InjectUpdate(src)
	if l.LastError() == nil {
		t.Error("expected the broken source to fail")
	}
	testutil.ExpectNoDiff(t, "function Main.main 0\npush constant 3\nreturn\n", testutil.ReadFile(t, filepath.Join(dir, "Main.vm")))

	cancel()
	testutil.FatalIfErr(t, <-done)
	if w.IsWatching(dir) {
		t.Error("still watching after the context is done")
	}
}
