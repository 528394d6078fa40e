package main

import (
	"encoding/base64"
	"errors"
	. "fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/p7r0x7/vainpath"
	"github.com/p7r0x7/vanity/mine"
	"github.com/rs/zerolog"
	. "github.com/spf13/pflag"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.

const n = "\n"
const success, failure, invalid = 0, 1, 2

func main() { os.Exit(program()) }

// help prints a usage menu and quietly exits if no non-flag arguments are given. To consistently
// correctly render this menu in most terminal windows, its content should be no wider than 80
// columns.
func help() {
	origin, err := os.Executable()
	if err != nil {
		origin = "vanitygen" /* Default binary name */
	} else {
		origin = filepath.Base(origin)
	}
	name := vainpath.Trim(origin, "…", 12)
	spaces := strings.Repeat(" ", utf8.RuneCountInString(name)+3)
	Fprint(os.Stderr, yell, "Mines the 64-bit index space for a candidate whose digest renders",
		zero, n, yell, "to an identifier starting with PREFIX (over the alphabet a-p).", zero, n+n+
			"Usage:"+n+
			"  ", name, " [-h]"+n,
		spaces, "[-gb] [-a <algo>] [-c <uint>] [-n <uint>] [-o PATH] PREFIX"+n,
		spaces, "[--quiet|no-codes] [--single|chunked|mandatory] [--space <uint>] PREFIX"+n+n+
			"Options:"+n)
	PrintDefaults()
	Fprint(os.Stderr, n+"The search runs until a match is found: an empty PREFIX matches the very"+n+
		"first candidate, and each additional character multiplies the expected"+n+
		"attempts by 16. PREFIX values longer than 32 characters can never match."+n)
}

// program drives one search run from the parsed command line and reports through the process exit
// code: 0 on a match, 1 on an aborted run, 2 on invalid usage.
func program() int {
	if pHelp || NArg() == 0 {
		help()
		return success
	}
	prefix := Arg(0)

	log := zerolog.Nop()
	if !pQuiet {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: pNoCodes}).
			With().Timestamp().Logger()
	}

	var algo mine.Algo
	switch pAlgo {
	case "", "sha256":
		algo = mine.SHA256
	case "blake3":
		algo = mine.BLAKE3
	default:
		Fprint(os.Stderr, purp, "Unknown digest function ", zero, `"`+pAlgo+`"`,
			purp, "; pick sha256 or blake3.", zero, n)
		return invalid
	}

	if pSingle {
		pCores = 1
	}
	task := &mine.Task{
		Prefix:   prefix,
		Workers:  pCores,
		Algo:     algo,
		Batch:    pBatch,
		Space:    pSpace,
		Chunked:  pChunked,
		Required: pMandatory,
		Log:      log,
	}
	if pAccel {
		task.Accel = mine.NewHostAccelerator(algo)
	}
	if !pQuiet {
		task.Every = pEvery
		task.Report = func(p mine.Progress) {
			log.Info().Uint64("attempts", p.Attempts).
				Str("rate", Sprintf("%.0f/s", p.Rate())).Msg("searching")
		}
	}

	result, err := task.Run(&fileSink{path: pOut})
	switch {
	case errors.Is(err, mine.ErrBadPrefix), errors.Is(err, mine.ErrWorkers),
		errors.Is(err, mine.ErrNoWorkers):
		Fprint(os.Stderr, purp, err.Error(), zero, n)
		return invalid
	case err != nil:
		Fprint(os.Stderr, purp, err.Error(), zero, n)
		return failure
	}

	if pQuiet {
		os.Stdout.WriteString(result.Identifier + n)
		return success
	}
	elapsed := result.Elapsed
	if elapsed.Microseconds() > 99 {
		elapsed = elapsed.Truncate(10 * time.Microsecond)
	}
	Print(yell, result.Identifier, zero, "  index ", result.Index,
		"  (", result.Attempts, " attempts in ", elapsed.String(), ")"+n,
		"Candidate written to ", und, vainpath.Simplify(pOut), zero, "."+n)
	return success
}

/* fileSink is the result sink for this CLI: it persists the winning 32-byte candidate so the
identifier can be re-derived or fed to downstream key tooling. */
type fileSink struct{ path string }

func (f *fileSink) Publish(r *mine.Result) error {
	out := r.Candidate[:]
	if pBase64 {
		out = []byte(base64.StdEncoding.EncodeToString(out) + n)
	}
	return os.WriteFile(f.path, out, 0o600)
}
