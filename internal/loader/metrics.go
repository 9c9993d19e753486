// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package loader

import (
	"expvar"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Compiles counts successful compilations, keyed by source path.
	Compiles = expvar.NewMap("jackc_compiles_total")
	// CompileErrors counts failed compilations, keyed by source path.
	CompileErrors = expvar.NewMap("jackc_compile_errors_total")
	// CompilesSkipped counts compilations skipped because no source changed.
	CompilesSkipped = expvar.NewInt("jackc_compiles_skipped_total")
	// FilesWritten counts VM files written.
	FilesWritten = expvar.NewInt("jackc_vm_files_written_total")

	compileDurations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jackc",
		Subsystem: "loader",
		Name:      "compile_duration_seconds",
		Help:      "Compilation time distribution in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2.0, 12),
	})
	compileResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jackc",
		Subsystem: "loader",
		Name:      "compiles_total",
		Help:      "Compilations by result.",
	}, []string{"result"})
	sourceFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "jackc",
		Subsystem: "loader",
		Name:      "source_files",
		Help:      "Number of program source files in the last compilation.",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{compileDurations, compileResults, sourceFiles}
}
