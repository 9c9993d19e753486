// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package loader finds Jack sources on disk, compiles them and writes the
// VM files.  In watch mode the sources are recompiled whenever they change.
package loader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/golang/groupcache/lru"
	"github.com/google/jackc/internal/compiler"
	"github.com/google/jackc/internal/watcher"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/trace"
)

const (
	sourceExt = ".jack"
	objectExt = ".vm"

	writtenCacheSize = 1024
)

// Loader compiles the Jack sources under one path.
type Loader struct {
	sourcePath        string
	outputDir         string   // Where VM files go; next to each source when empty.
	libraryPaths      []string // Declaration-only sources.
	noStdlib          bool
	dumpSymbols       bool
	compileOnly       bool // Compile and report, but write no files.
	maxRecursionDepth int
	reg               prometheus.Registerer
	status            io.Writer

	compileMu   sync.Mutex // serialises compilations
	lastDigest  []byte     // digest of the sources of the last successful compilation
	lastOutputs []string
	lastErr     error
	written     *lru.Cache // output path to digest of the code last written there
}

// Option configures a new Loader.
type Option func(*Loader) error

// OutputDir sets the directory that VM files are written to.
func OutputDir(dir string) Option {
	return func(l *Loader) error {
		l.outputDir = dir
		return nil
	}
}

// LibraryPaths adds files or directories of declaration-only sources.
func LibraryPaths(paths ...string) Option {
	return func(l *Loader) error {
		l.libraryPaths = append(l.libraryPaths, paths...)
		return nil
	}
}

// NoStdlib leaves out the operating system library declarations.
func NoStdlib() Option {
	return func(l *Loader) error {
		l.noStdlib = true
		return nil
	}
}

// DumpSymbols logs the symbol table of each compilation.
func DumpSymbols() Option {
	return func(l *Loader) error {
		l.dumpSymbols = true
		return nil
	}
}

// CompileOnly checks the sources without writing VM files.
func CompileOnly() Option {
	return func(l *Loader) error {
		l.compileOnly = true
		return nil
	}
}

// MaxRecursionDepth bounds expression nesting in the parser.
func MaxRecursionDepth(n int) Option {
	return func(l *Loader) error {
		l.maxRecursionDepth = n
		return nil
	}
}

// PrometheusRegisterer registers the loader's metrics with reg.
func PrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(l *Loader) error {
		l.reg = reg
		for _, c := range collectors() {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					return err
				}
			}
		}
		return nil
	}
}

// StatusWriter reports the outcome of every compilation to w.
func StatusWriter(w io.Writer) Option {
	return func(l *Loader) error {
		l.status = w
		return nil
	}
}

// New creates a Loader for the file or directory at sourcePath.
func New(sourcePath string, options ...Option) (*Loader, error) {
	if sourcePath == "" {
		return nil, errors.New("loader needs a source path")
	}
	l := &Loader{
		sourcePath: sourcePath,
		written:    lru.New(writtenCacheSize),
	}
	if err := l.SetOption(options...); err != nil {
		return nil, err
	}
	return l, nil
}

// SetOption takes one or more option functions and applies them in order to Loader.
func (l *Loader) SetOption(options ...Option) error {
	for _, option := range options {
		if err := option(l); err != nil {
			return err
		}
	}
	return nil
}

// discover returns the source files at path: the file itself, or the
// non-hidden source files directly inside the directory, sorted by name.
func discover(path string) ([]string, error) {
	s, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", path)
	}
	if !s.IsDir() {
		if filepath.Ext(path) != sourceExt {
			return nil, errors.Errorf("%q is not a %s file", path, sourceExt)
		}
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list sources in %q", path)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir():
			continue
		case strings.HasPrefix(name, "."):
			glog.V(2).Infof("Skipping %s because it is a hidden file.", name)
			continue
		case filepath.Ext(name) != sourceExt:
			glog.V(2).Infof("Skipping %s due to file extension.", name)
			continue
		}
		files = append(files, filepath.Join(path, name))
	}
	return files, nil
}

func readSource(path string, library bool) (compiler.Source, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return compiler.Source{}, errors.Wrapf(err, "failed to read source %q", path)
	}
	return compiler.Source{Name: filepath.Base(path), Text: b, Library: library}, nil
}

// Sources reads every library and program source.  The second result maps
// program source names to their paths.
func (l *Loader) Sources() ([]compiler.Source, map[string]string, error) {
	var srcs []compiler.Source
	if !l.noStdlib {
		lib, err := compiler.StandardLibrary()
		if err != nil {
			return nil, nil, err
		}
		srcs = append(srcs, lib...)
	}
	for _, p := range l.libraryPaths {
		files, err := discover(p)
		if err != nil {
			return nil, nil, err
		}
		for _, f := range files {
			src, err := readSource(f, true)
			if err != nil {
				return nil, nil, err
			}
			srcs = append(srcs, src)
		}
	}
	files, err := discover(l.sourcePath)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, errors.Errorf("no %s files found in %q", sourceExt, l.sourcePath)
	}
	paths := make(map[string]string, len(files))
	for _, f := range files {
		src, err := readSource(f, false)
		if err != nil {
			return nil, nil, err
		}
		srcs = append(srcs, src)
		paths[src.Name] = f
	}
	return srcs, paths, nil
}

func digest(srcs []compiler.Source) []byte {
	h := sha256.New()
	for _, src := range srcs {
		fmt.Fprintf(h, "%s\x00%t\x00%d\x00", src.Name, src.Library, len(src.Text))
		h.Write(src.Text)
	}
	return h.Sum(nil)
}

func allExist(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// ObjectPath returns the VM file written for the source at path.
func (l *Loader) ObjectPath(path string) string {
	dir := l.outputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return filepath.Join(dir, strings.TrimSuffix(filepath.Base(path), sourceExt)+objectExt)
}

// Compile compiles every source and writes one VM file per program source.
// Nothing is written unless the whole compilation succeeds.  It returns the
// paths of the VM files.
func (l *Loader) Compile(ctx context.Context) ([]string, error) {
	l.compileMu.Lock()
	defer l.compileMu.Unlock()
	outputs, err := l.compileLocked(ctx)
	l.lastErr = err
	l.report(err)
	return outputs, err
}

// LastError returns the result of the most recent compilation.
func (l *Loader) LastError() error {
	l.compileMu.Lock()
	defer l.compileMu.Unlock()
	return l.lastErr
}

func (l *Loader) report(err error) {
	if l.status == nil {
		return
	}
	if err != nil {
		fmt.Fprintf(l.status, "%s\nCompilation failed\n", err)
		return
	}
	fmt.Fprintln(l.status, "Compilation successful")
}

func (l *Loader) compileLocked(ctx context.Context) ([]string, error) {
	ctx, span := trace.StartSpan(ctx, "Loader.Compile")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("source", l.sourcePath))

	srcs, paths, err := l.Sources()
	if err != nil {
		CompileErrors.Add(l.sourcePath, 1)
		return nil, err
	}
	sum := digest(srcs)
	if l.lastDigest != nil && bytes.Equal(sum, l.lastDigest) && allExist(l.lastOutputs) {
		glog.V(1).Infof("contents match, not recompiling %q", l.sourcePath)
		CompilesSkipped.Add(1)
		return l.lastOutputs, nil
	}

	opts := []compiler.Option{}
	if l.dumpSymbols {
		opts = append(opts, compiler.DumpSymbols())
	}
	if l.maxRecursionDepth > 0 {
		opts = append(opts, compiler.MaxRecursionDepth(l.maxRecursionDepth))
	}
	c, err := compiler.New(opts...)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	objs, err := c.Compile(ctx, srcs)
	compileDurations.Observe(time.Since(start).Seconds())
	sourceFiles.Set(float64(len(paths)))
	if err != nil {
		CompileErrors.Add(l.sourcePath, 1)
		compileResults.WithLabelValues("error").Inc()
		l.lastDigest = nil
		return nil, err
	}
	compileResults.WithLabelValues("ok").Inc()
	Compiles.Add(l.sourcePath, 1)
	glog.Infof("Compiled %d sources from %s", len(objs), l.sourcePath)

	if l.compileOnly {
		return nil, nil
	}
	outputs, err := l.write(objs, paths)
	if err != nil {
		CompileErrors.Add(l.sourcePath, 1)
		l.lastDigest = nil
		return nil, err
	}
	l.lastDigest = sum
	l.lastOutputs = outputs
	return outputs, nil
}

// write stores each object, skipping files whose contents are unchanged
// since this Loader last wrote them.
func (l *Loader) write(objs []*compiler.Object, paths map[string]string) ([]string, error) {
	if l.outputDir != "" {
		if err := os.MkdirAll(l.outputDir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create output directory %q", l.outputDir)
		}
	}
	checked := make(map[string]bool)
	outputs := make([]string, 0, len(objs))
	for _, o := range objs {
		src, ok := paths[o.Name]
		if !ok {
			return nil, errors.Errorf("no source path for object %q", o.Name)
		}
		out := l.ObjectPath(src)
		if dir := filepath.Dir(out); !checked[dir] {
			if err := checkWritable(dir); err != nil {
				return nil, err
			}
			checked[dir] = true
		}
		outputs = append(outputs, out)
		sum := sha256.Sum256(o.Code)
		if prev, ok := l.written.Get(out); ok && prev.([sha256.Size]byte) == sum {
			if _, err := os.Stat(out); err == nil {
				glog.V(1).Infof("%s is unchanged", out)
				continue
			}
		}
		if err := os.WriteFile(out, o.Code, 0o644); err != nil {
			l.written.Remove(out)
			return nil, errors.Wrapf(err, "failed to write %q", out)
		}
		l.written.Add(out, sum)
		FilesWritten.Add(1)
		glog.V(1).Infof("Wrote %s", out)
	}
	return outputs, nil
}

// ProcessFileEvent recompiles after any change to a watched source.
func (l *Loader) ProcessFileEvent(ctx context.Context, e watcher.Event) {
	ctx, span := trace.StartSpan(ctx, "Loader.ProcessFileEvent")
	defer span.End()
	glog.V(1).Infof("Got %s event for %s", e.Op, e.Pathname)
	if _, err := l.Compile(ctx); err != nil {
		glog.Info(err)
	}
}

// Watch compiles the sources, then recompiles whenever w reports a change
// to the source path or a library path, until ctx is done.
func (l *Loader) Watch(ctx context.Context, w watcher.Watcher) error {
	paths := append([]string{l.sourcePath}, l.libraryPaths...)
	for _, p := range paths {
		if err := w.Observe(p, l); err != nil {
			return err
		}
	}
	defer func() {
		for _, p := range paths {
			if err := w.Unobserve(p, l); err != nil {
				glog.Warning(err)
			}
		}
	}()
	if _, err := l.Compile(ctx); err != nil {
		glog.Info(err)
	}
	<-ctx.Done()
	glog.Infof("Stopped watching %s", l.sourcePath)
	return nil
}
