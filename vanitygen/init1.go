package main

import (
	"os"
	"runtime"
	"time"

	. "github.com/spf13/pflag"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

var pCores, pNoCodesDefault = runtime.NumCPU(), false
var pBatch, pSpace = uint64(0), uint64(0)
var pAlgo, pOut = "", ""
var pEvery = time.Duration(0)
var pHelp, pAccel, pMandatory, pSingle, pChunked, pBase64, pNoCodes, pQuiet bool
var yell, purp, und, zero = "\033[33m", "\033[35m", "\033[4m", "\033[0m"

func init() {
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--no-codes=false":
			pNoCodes = false
		case "--quiet", "--quiet=true":
			pNoCodes, pQuiet = true, true
		case "--no-codes", "--no-codes=true":
			pNoCodes = true
		}
	}
	if pNoCodes {
		yell, purp, und, zero = "", "", "", ""
	}

	BoolVarP(&pHelp, "help", "h", false,
		purp+"print this help menu"+zero+n)

	StringVarP(&pAlgo, "algo", "a", "sha256",
		purp+"digest function: sha256 or blake3"+zero)

	BoolVarP(&pBase64, "base64", "b", false,
		purp+"write and print the candidate in base64"+zero+" (default raw)")

	Uint64VarP(&pBatch, "batch", "n", 1_000_000,
		purp+"indices committed per accelerator call"+zero)

	BoolVar(&pChunked, "chunked", false,
		purp+"use the randomized chunk strategy instead of the counter"+zero+
			n+purp+"(forfeits exact partitioning and exhaustion detection)"+zero)

	IntVarP(&pCores, "cores", "c", runtime.NumCPU(),
		purp+"CPU worker count"+zero)

	BoolVarP(&pAccel, "gpu", "g", false,
		purp+"drive a batch accelerator over the first half of the space"+zero)

	BoolVar(&pMandatory, "mandatory", false,
		purp+"abort instead of degrading if the accelerator is unavailable"+zero)

	Bool("no-codes", pNoCodesDefault,
		purp+"print to console w/o formatting codes"+zero)

	StringVarP(&pOut, "out", "o", "candidate.bin",
		purp+"file the winning candidate block is written to"+zero)

	DurationVar(&pEvery, "progress", time.Second,
		purp+"interval between progress reports"+zero)

	Bool("quiet", false,
		purp+"print ONLY the winning identifier"+zero+" (enables --no-codes)")

	BoolVar(&pSingle, "single", false,
		purp+"single-threaded override"+zero+" (same as --cores 1)")

	Uint64Var(&pSpace, "space", 0,
		purp+"cap the searched index space to [0, N)"+zero+
			n+purp+"(0 searches the full 64-bit space)"+zero)

	/* Order flags alphabetically except for help, which is hoisted to the top. */
	CommandLine.SortFlags = false
	Parse()
}
