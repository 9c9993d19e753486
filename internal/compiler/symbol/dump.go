// Copyright 2017 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symbol

import (
	"fmt"
	"strings"
)

// Dump renders the scope tree of t as an s-expression, one symbol per line,
// indented by scope depth.
func Dump(t *Table) string {
	var b strings.Builder
	b.WriteString("(root\n")
	depth := 0
	t.Walk(func(d int, sym *Symbol) bool {
		for ; depth > d; depth-- {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(")\n")
		}
		b.WriteString(strings.Repeat("  ", d+1))
		fmt.Fprintf(&b, "(%s %s %s %d", sym.Kind, sym.Name, sym.Type, sym.Addr)
		if sym.SubScope != NoScope && len(t.scopes[sym.SubScope].Symbols) > 0 {
			b.WriteString("\n")
			depth = d + 1
			return true
		}
		b.WriteString(")\n")
		return true
	})
	for ; depth > 0; depth-- {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(")\n")
	}
	b.WriteString(")\n")
	return b.String()
}
