// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package main

import (
	"fmt"
	"io"
)

type node struct {
	alts [][]string
	term string
}

// table is a grammar for a single class whose main function only uses its
// own locals and the operating system library, so every program it
// generates compiles.  The first alternative of each rule must not recurse.
var table = map[string]node{
	"start": {[][]string{{
		"class", "Main", "{",
		"function", "int", "main", "(", ")", "{",
		"var", "int", "a", ",", "b", ";",
		"statements",
		"return", "expr", ";",
		"}", "}", "\n"}}, ""},
	"statements": {[][]string{{""}, {"statement", "statements"}}, ""},
	"statement": {[][]string{
		{"let", "VAR", "=", "expr", ";"},
		{"if", "(", "expr", ")", "{", "statements", "}"},
		{"if", "(", "expr", ")", "{", "statements", "}", "else", "{", "statements", "}"},
		{"while", "(", "expr", ")", "{", "statements", "}"},
		{"do", "Output.printInt", "(", "expr", ")", ";"}}, ""},
	"expr": {[][]string{{"term"}, {"term", "op", "expr"}}, ""},
	"term": {[][]string{
		{"INT"},
		{"VAR"},
		{"(", "expr", ")"},
		{"unop", "term"},
		{"Math.abs", "(", "expr", ")"},
		{"Math.max", "(", "expr", ",", "expr", ")"},
		{"true"},
		{"false"}}, ""},
	"op":   {[][]string{{"+"}, {"-"}, {"*"}, {"/"}, {"&"}, {"|"}, {"<"}, {">"}, {"="}}, ""},
	"unop": {[][]string{{"-"}, {"~"}}, ""},
	"VAR":  {[][]string{{"a"}, {"b"}}, ""},
	"INT":  {[][]string{{"0"}, {"1"}, {"7"}, {"42"}, {"32767"}}, ""},
}

// emitter writes words separated by spaces, wrapping lines at 80 columns.
type emitter struct {
	w   io.Writer
	l   int
	err error
}

func (e *emitter) emit(w string) {
	if e.err != nil || w == "" {
		return
	}
	if w == "\n" {
		_, e.err = fmt.Fprintln(e.w)
		e.l = 0
		return
	}
	if e.l+len(w)+1 >= 80 {
		_, e.err = fmt.Fprint(e.w, "\n", w)
		e.l = len(w)
		return
	}
	if e.l != 0 {
		w = " " + w
	}
	e.l += len(w)
	_, e.err = fmt.Fprint(e.w, w)
}

type item struct {
	state string
	depth int
}

// generate writes one random program to w.  rand(n) returns a number in
// [0, n).  Beyond maxDepth every rule takes its first alternative.
func generate(w io.Writer, rand func(int) int, maxDepth int) error {
	e := &emitter{w: w}
	// Initial state
	states := []item{{"start", 0}}
	for len(states) > 0 {
		it := states[len(states)-1]
		states = states[:len(states)-1]

		n, ok := table[it.state]
		if !ok {
			// Not in the table, so it is a terminal.
			e.emit(it.state)
			continue
		}
		if len(n.alts) == 0 {
			e.emit(n.term)
			continue
		}
		a := 0
		if it.depth < maxDepth {
			a = rand(len(n.alts))
		}
		alt := n.alts[a]
		// Push the chosen states in reverse order.
		for i := len(alt) - 1; i >= 0; i-- {
			states = append(states, item{alt[i], it.depth + 1})
		}
	}
	return e.err
}
