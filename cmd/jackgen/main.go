// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

/*
Command jackgen writes a random Jack program to standard output, for
seeding the compiler fuzzer.
*/
package main

import (
	crand "crypto/rand"
	"flag"
	"math/big"
	mrand "math/rand"
	"os"

	"github.com/golang/glog"
)

var (
	useCryptoRand = flag.Bool("use_crypto_rand", false, "Use crypto/rand instead of math/rand")
	randSeed      = flag.Int64("rand_seed", 1, "Seed to use for math.rand.")
	maxDepth      = flag.Int("max_depth", 12, "Grammar depth beyond which rules stop recursing.")
)

func main() {
	flag.Parse()

	r := mrand.New(mrand.NewSource(*randSeed))
	rand := r.Intn
	if *useCryptoRand {
		rand = func(n int) int {
			a, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
			if err != nil {
				glog.Exit(err)
			}
			return int(a.Int64())
		}
	}
	if err := generate(os.Stdout, rand, *maxDepth); err != nil {
		glog.Exit(err)
	}
}
