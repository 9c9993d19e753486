// Copyright 2018 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

/*
Command jackdot turns the symbol table of Jack sources into a graphviz graph
on standard output.

To use, run it like

	go run github.com/google/jackc/cmd/jackdot --source ./Square | xdot -

or

	go run github.com/google/jackc/cmd/jackdot --source ./Square --http_port 8080

to view the dot output visit http://localhost:8080

You'll need the graphviz `dot' command installed.
*/
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"

	"github.com/golang/glog"
	"github.com/google/jackc/internal/compiler"
	"github.com/google/jackc/internal/loader"
)

var (
	source      = flag.String("source", "", "A .jack file, or a directory of .jack files, to graph.")
	noStdlib    = flag.Bool("nostdlib", false, "Do not declare the operating system library classes.")
	showLibrary = flag.Bool("show_library", false, "Include library classes in the graph.")
	httpPort    = flag.String("http_port", "", "Port number to run HTTP server on.")
)

func writeDot(ctx context.Context, w io.Writer) error {
	var opts []loader.Option
	if *noStdlib {
		opts = append(opts, loader.NoStdlib())
	}
	l, err := loader.New(*source, opts...)
	if err != nil {
		return err
	}
	srcs, _, err := l.Sources()
	if err != nil {
		return err
	}
	c, err := compiler.New()
	if err != nil {
		return err
	}
	if _, err := c.Compile(ctx, srcs); err != nil {
		return err
	}
	hide := make(map[string]bool)
	if !*showLibrary {
		for _, src := range srcs {
			if src.Library {
				hide[src.Name] = true
			}
		}
	}
	makeDot(w, *source, c.Table(), hide)
	return nil
}

func main() {
	flag.Parse()

	if *source == "" {
		glog.Exitf("No -source given")
	}
	ctx := context.Background()

	if *httpPort == "" {
		if err := writeDot(ctx, os.Stdout); err != nil {
			glog.Exit(err)
		}
		return
	}

	http.HandleFunc("/",
		func(w http.ResponseWriter, r *http.Request) {
			var graph bytes.Buffer
			if err := writeDot(r.Context(), &graph); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			dot := exec.Command("dot", "-Tsvg")
			dot.Stdin = &graph
			out, err := dot.Output()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Add("Content-type", "image/svg+xml")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(out); err != nil {
				glog.Warning(err)
			}
		})
	glog.Info(http.ListenAndServe(fmt.Sprintf(":%s", *httpPort), nil))
}
