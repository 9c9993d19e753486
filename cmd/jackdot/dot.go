// Copyright 2018 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/google/jackc/internal/compiler/symbol"
)

var fillColors = map[symbol.Kind]string{
	symbol.Class:       "lightgreen",
	symbol.Constructor: "lightblue",
	symbol.Function:    "lightblue",
	symbol.Method:      "lightblue",
	symbol.Unresolved:  "red",
}

type dotter struct {
	w        io.Writer
	id       int
	parentID []int // id of the node at each depth
}

func (d *dotter) nextID() int {
	d.id++
	return d.id
}

func (d *dotter) emitNode(id int, sym *symbol.Symbol) {
	attrs := map[string]string{
		"label":   fmt.Sprintf("%s\n%s %s", sym.Kind, sym.Type, sym.Name),
		"shape":   "box",
		"style":   "filled",
		"tooltip": fmt.Sprintf("%s:%d", sym.Origin.Filename, sym.Origin.Line),
	}
	if c, ok := fillColors[sym.Kind]; ok {
		attrs["fillcolor"] = c
	} else {
		attrs["fillcolor"] = "pink"
		attrs["shape"] = "ellipse"
		attrs["label"] += fmt.Sprintf("\naddress %d", sym.Addr)
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(d.w, "n%d [", id)
	for _, k := range keys {
		fmt.Fprintf(d.w, "%s=%q ", k, attrs[k])
	}
	fmt.Fprintf(d.w, "]\n")
}

func (d *dotter) emitLine(src, dst int) {
	fmt.Fprintf(d.w, "n%d -> n%d\n", src, dst)
}

// makeDot writes the scope tree of tab as a graphviz digraph.  Classes
// declared in a file named in hide are left out along with their members.
func makeDot(w io.Writer, title string, tab *symbol.Table, hide map[string]bool) {
	fmt.Fprintf(w, "digraph %q {\n", title)
	d := &dotter{w: w}
	root := d.nextID()
	fmt.Fprintf(w, "n%d [label=\"program\" shape=\"doubleoctagon\"]\n", root)
	skipBelow := -1
	tab.Walk(func(depth int, sym *symbol.Symbol) bool {
		if skipBelow >= 0 {
			if depth > skipBelow {
				return true
			}
			skipBelow = -1
		}
		if depth == 0 && hide[sym.Origin.Filename] {
			skipBelow = depth
			return true
		}
		id := d.nextID()
		d.emitNode(id, sym)
		d.parentID = append(d.parentID[:depth], id)
		parent := root
		if depth > 0 {
			parent = d.parentID[depth-1]
		}
		d.emitLine(parent, id)
		return true
	})
	fmt.Fprintf(w, "}\n")
}
