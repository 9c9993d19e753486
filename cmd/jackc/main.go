// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

/*
Command jackc compiles Jack sources into VM code.

	jackc -source Main.jack
	jackc -source ./Square -output_dir ./build

One .vm file is written per source file, and only when every source
compiles.  The first error is printed and jackc exits with status 1.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/golang/glog"
	"github.com/google/jackc/internal/compiler/parser"
	"github.com/google/jackc/internal/loader"
	"github.com/google/jackc/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/version"
	"go.opencensus.io/trace"
)

type seqStringFlag []string

func (f *seqStringFlag) String() string {
	return fmt.Sprint(*f)
}

func (f *seqStringFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		*f = append(*f, v)
	}
	return nil
}

var libs seqStringFlag

var (
	source    = flag.String("source", "", "A .jack file, or a directory of .jack files, to compile.")
	outputDir = flag.String("output_dir", "", "Directory to write .vm files to.  By default each is written next to its source.")

	showVersion = flag.Bool("version", false, "Print jackc version information.")

	// Compiler behaviour flags.
	noStdlib          = flag.Bool("nostdlib", false, "Do not declare the operating system library classes.")
	compileOnly       = flag.Bool("compile_only", false, "Check the sources only, do not write .vm files.")
	dumpSymbols       = flag.Bool("dump_symbols", false, "Dump the symbol table after the first pass (to INFO log).")
	maxRecursionDepth = flag.Int("max_recursion_depth", parser.DefaultMaxRecursionDepth, "The maximum nesting depth of an expression.")

	// Ops flags.
	watch           = flag.Bool("watch", false, "Keep running and recompile whenever a source changes.")
	pollInterval    = flag.Duration("poll_interval", 0, "Interval to poll the sources for changes in -watch mode, in addition to filesystem notifications.  Zero disables polling.")
	disableFsnotify = flag.Bool("disable_fsnotify", false, "Do not use filesystem notifications in -watch mode; requires -poll_interval.")
	metricsTextfile = flag.String("metrics_textfile", "", "If set, write compile metrics in the Prometheus text format to this file on exit.")

	// Tracing.
	jaegerEndpoint    = flag.String("jaeger_endpoint", "", "If set, collector endpoint URL of jaeger thrift service")
	traceSamplePeriod = flag.Int("trace_sample_period", 0, "Sample period for traces.  If non-zero, every nth trace will be sampled.")
)

func init() {
	flag.Var(&libs, "lib", "Files or directories of declaration-only .jack sources, separated by commas.  This flag may be specified multiple times.")
}

var (
	// Branch as well as Version and Revision identifies where in the git
	// history the build came from, as supplied by the linker when compiled
	// with `make'.  The defaults here indicate that the user did not use
	// `make' as instructed.
	Branch   = "invalid:-use-make-to-build"
	Version  = "invalid:-use-make-to-build"
	Revision = "invalid:-use-make-to-build"
)

func buildInfo() string {
	return fmt.Sprintf("jackc version %s git revision %s go version %s go arch %s go os %s",
		Version, Revision, runtime.Version(), runtime.GOARCH, runtime.GOOS)
}

func main() {
	version.Branch = Branch
	version.Version = Version
	version.Revision = Revision

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", buildInfo())
		fmt.Fprintf(os.Stderr, "\nUsage:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *showVersion {
		fmt.Println(version.Print("jackc"))
		os.Exit(0)
	}
	glog.Info(buildInfo())
	glog.Infof("Commandline: %q", os.Args)
	if len(flag.Args()) > 0 {
		glog.Exitf("Too many extra arguments specified: %q\n(use -source for the file or directory to compile.)", flag.Args())
	}
	if *source == "" {
		glog.Exitf("jackc requires something to compile; please use the flag -source to name a .jack file or a directory of them.")
	}
	if *maxRecursionDepth < 1 {
		glog.Exitf("-max_recursion_depth must be positive, not %d", *maxRecursionDepth)
	}
	if *watch && *disableFsnotify && *pollInterval == 0 {
		glog.Exitf("-disable_fsnotify requires a -poll_interval in -watch mode")
	}

	if *traceSamplePeriod > 0 {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(1 / float64(*traceSamplePeriod))})
	}
	var je *jaeger.Exporter
	if *jaegerEndpoint != "" {
		var err error
		je, err = jaeger.NewExporter(jaeger.Options{
			CollectorEndpoint: *jaegerEndpoint,
			Process: jaeger.Process{
				ServiceName: "jackc",
			},
		})
		if err != nil {
			glog.Exit(err)
		}
		trace.RegisterExporter(je)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(version.NewCollector("jackc"))

	opts := []loader.Option{
		loader.StatusWriter(os.Stdout),
		loader.MaxRecursionDepth(*maxRecursionDepth),
		loader.PrometheusRegisterer(reg),
	}
	if *outputDir != "" {
		opts = append(opts, loader.OutputDir(*outputDir))
	}
	if len(libs) > 0 {
		opts = append(opts, loader.LibraryPaths(libs...))
	}
	if *noStdlib {
		opts = append(opts, loader.NoStdlib())
	}
	if *compileOnly {
		opts = append(opts, loader.CompileOnly())
	}
	if *dumpSymbols {
		opts = append(opts, loader.DumpSymbols())
	}
	l, err := loader.New(*source, opts...)
	if err != nil {
		glog.Exit(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var compileErr error
	if *watch {
		compileErr = runWatch(ctx, cancel, l)
	} else {
		_, compileErr = l.Compile(ctx)
	}

	if je != nil {
		je.Flush()
	}
	if *metricsTextfile != "" {
		if err := prometheus.WriteToTextfile(*metricsTextfile, reg); err != nil {
			glog.Error(err)
		}
	}
	glog.Flush()
	if compileErr != nil {
		cancel()
		os.Exit(1) //nolint:gocritic // false positive
	}
}

// runWatch recompiles on every change until interrupted.
func runWatch(ctx context.Context, cancel context.CancelFunc, l *loader.Loader) error {
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigint
		glog.Infof("Received %+v, exiting...", sig)
		cancel()
	}()

	w, err := watcher.NewSourceWatcher(".jack", *pollInterval, !*disableFsnotify)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			glog.Warning(err)
		}
	}()
	start := time.Now()
	if err := l.Watch(ctx, w); err != nil {
		return err
	}
	glog.Infof("Watched %s for %s", *source, time.Since(start).Round(time.Second))
	return l.LastError()
}
