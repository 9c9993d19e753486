// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

//go:build gofuzz
// +build gofuzz

package compiler

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/jackc/internal/vm"
)

// Enable this when debugging with a fuzz crash artifact; it slows the fuzzer down when enabled.
const dumpDebug = false

// Fuzz compiles data as Main.jack against the standard library, and runs
// Main.main for a bounded number of steps if it compiles.
func Fuzz(data []byte) int {
	opts := []Option{}
	if dumpDebug {
		opts = append(opts, DumpSymbols())
	}
	c, err := New(opts...)
	if err != nil {
		fmt.Println(err)
		return 0
	}
	srcs, err := StandardLibrary()
	if err != nil {
		panic(err)
	}
	srcs = append(srcs, Source{Name: "Main.jack", Text: data})
	objs, err := c.Compile(context.Background(), srcs)
	if err != nil {
		fmt.Println(err)
		return 0 // false
	}
	v, err := vm.New(vm.Output(io.Discard), vm.MaxSteps(100000))
	if err != nil {
		panic(err)
	}
	for _, o := range objs {
		// Compiled code must always assemble.
		prog, err := vm.Assemble(o.Name, bytes.NewReader(o.Code))
		if err != nil {
			panic(err)
		}
		if err := v.Load(o.Name, prog); err != nil {
			fmt.Println(err)
			return 0
		}
	}
	if dumpDebug {
		fmt.Println(v.DumpByteCode())
	}
	if _, err := v.Run(context.Background(), "Main.main"); err != nil {
		fmt.Println(err)
	}
	return 1
}

func init() {
	// We need to successfully parse flags to initialize the glog logger used
	// by the compiler, but the fuzzer gets called with flags captured by the
	// libfuzzer main, which we don't want to intercept here.
	flag.CommandLine.Parse([]string{})
}
