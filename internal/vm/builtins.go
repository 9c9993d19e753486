// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package vm

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// builtins implements the parts of the operating system library that
// compiled programs call.  Strings are heap objects laid out as
// [capacity, length, chars...].
var builtins = map[string]Native{
	"Math.multiply": func(v *VM, a []int16) (int16, error) { return a[0] * a[1], nil },
	"Math.divide": func(v *VM, a []int16) (int16, error) {
		if a[1] == 0 {
			return 0, errors.New("division by zero")
		}
		return a[0] / a[1], nil
	},
	"Math.abs": func(v *VM, a []int16) (int16, error) {
		if a[0] < 0 {
			return -a[0], nil
		}
		return a[0], nil
	},
	"Math.min": func(v *VM, a []int16) (int16, error) {
		if a[0] < a[1] {
			return a[0], nil
		}
		return a[1], nil
	},
	"Math.max": func(v *VM, a []int16) (int16, error) {
		if a[0] > a[1] {
			return a[0], nil
		}
		return a[1], nil
	},
	"Math.sqrt": func(v *VM, a []int16) (int16, error) {
		if a[0] < 0 {
			return 0, errors.New("square root of a negative number")
		}
		return int16(math.Sqrt(float64(a[0]))), nil
	},

	"Memory.alloc":   func(v *VM, a []int16) (int16, error) { return v.alloc(int(a[0])) },
	"Memory.deAlloc": func(v *VM, a []int16) (int16, error) { return 0, nil },
	"Memory.peek": func(v *VM, a []int16) (int16, error) {
		return v.Peek(int(a[0]))
	},
	"Memory.poke": func(v *VM, a []int16) (int16, error) {
		return 0, v.Poke(int(a[0]), a[1])
	},

	"Array.new":     func(v *VM, a []int16) (int16, error) { return v.alloc(int(a[0])) },
	"Array.dispose": func(v *VM, a []int16) (int16, error) { return 0, nil },

	"String.new": func(v *VM, a []int16) (int16, error) {
		if a[0] < 0 {
			return 0, errors.Errorf("negative string capacity %d", a[0])
		}
		s, err := v.alloc(int(a[0]) + 2)
		if err != nil {
			return 0, err
		}
		v.mem[s] = a[0]
		v.mem[int(s)+1] = 0
		return s, nil
	},
	"String.dispose": func(v *VM, a []int16) (int16, error) { return 0, nil },
	"String.appendChar": func(v *VM, a []int16) (int16, error) {
		s, err := v.object(a[0], 2)
		if err != nil {
			return 0, err
		}
		if v.mem[s+1] >= v.mem[s] {
			return 0, errors.Errorf("string capacity %d exceeded", v.mem[s])
		}
		v.mem[s+2+int(v.mem[s+1])] = a[1]
		v.mem[s+1]++
		return a[0], nil
	},
	"String.length": func(v *VM, a []int16) (int16, error) {
		s, err := v.object(a[0], 2)
		if err != nil {
			return 0, err
		}
		return v.mem[s+1], nil
	},
	"String.charAt": func(v *VM, a []int16) (int16, error) {
		s, err := v.object(a[0], 2)
		if err != nil {
			return 0, err
		}
		if a[1] < 0 || a[1] >= v.mem[s+1] {
			return 0, errors.Errorf("string index %d out of range", a[1])
		}
		return v.mem[s+2+int(a[1])], nil
	},
	"String.newLine":     func(v *VM, a []int16) (int16, error) { return 128, nil },
	"String.backSpace":   func(v *VM, a []int16) (int16, error) { return 129, nil },
	"String.doubleQuote": func(v *VM, a []int16) (int16, error) { return 34, nil },

	"Output.printInt": func(v *VM, a []int16) (int16, error) {
		_, err := fmt.Fprintf(v.out, "%d", a[0])
		return 0, err
	},
	"Output.printChar": func(v *VM, a []int16) (int16, error) {
		_, err := fmt.Fprintf(v.out, "%c", rune(a[0]))
		return 0, err
	},
	"Output.printString": func(v *VM, a []int16) (int16, error) {
		s, err := v.String(a[0])
		if err != nil {
			return 0, err
		}
		_, err = fmt.Fprint(v.out, s)
		return 0, err
	},
	"Output.println": func(v *VM, a []int16) (int16, error) {
		_, err := fmt.Fprintln(v.out)
		return 0, err
	},

	"Sys.halt": func(v *VM, a []int16) (int16, error) {
		v.halted = true
		return 0, nil
	},
	"Sys.error": func(v *VM, a []int16) (int16, error) {
		return 0, errors.Errorf("Sys.error(%d)", a[0])
	},
	"Sys.wait": func(v *VM, a []int16) (int16, error) { return 0, nil },
}

// alloc returns the base of n fresh heap words.
func (v *VM) alloc(n int) (int16, error) {
	if n < 0 {
		return 0, errors.Errorf("negative allocation size %d", n)
	}
	if v.heap+n > HeapTop+1 {
		return 0, errors.Errorf("heap exhausted allocating %d words", n)
	}
	p := v.heap
	v.heap += n
	return int16(p), nil
}

// object checks that p points at a heap object of at least n words.
func (v *VM) object(p int16, n int) (int, error) {
	if int(p) < HeapBase || int(p)+n > v.heap {
		return 0, errors.Errorf("%d is not a heap object", p)
	}
	return int(p), nil
}

// String returns the contents of the string object at p.
func (v *VM) String(p int16) (string, error) {
	s, err := v.object(p, 2)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 0; i < int(v.mem[s+1]); i++ {
		b.WriteRune(rune(v.mem[s+2+i]))
	}
	return b.String(), nil
}
