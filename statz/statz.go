package main

import (
	. "fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/dterei/gotsc"
	"github.com/p7r0x7/vanity/mine"
	"github.com/zeebo/xxh3"
)

// Copyright © 2022 Matthew R Bonnette. Licensed under the Apache-2.0 license.
// Single-core throughput of the mining attempt (generate, digest, prefix test) for each digest
// function, with raw XXH3 as the non-cryptographic ceiling. Cycle counts come from TSC sampling
// and are only reported where the TSC is readable.

/* Eight characters of prefix keep matches during a benchmark run astronomically unlikely without
changing the cost of an attempt. */
const prefix = "pppppppp"

var calltime = gotsc.TSCOverhead()
var sink bool

func benchSHA256(b *testing.B) {
	b.SetBytes(mine.CandidateSize)
	b.ReportAllocs()
	b.ResetTimer()
	for i := b.N; i > 0; i-- {
		c := mine.Generate(uint64(i))
		sink = mine.MatchesPrefix(mine.SHA256.Sum(&c), prefix)
	}
}

func benchBLAKE3(b *testing.B) {
	b.SetBytes(mine.CandidateSize)
	b.ReportAllocs()
	b.ResetTimer()
	for i := b.N; i > 0; i-- {
		c := mine.Generate(uint64(i))
		sink = mine.MatchesPrefix(mine.BLAKE3.Sum(&c), prefix)
	}
}

func benchXXH3(b *testing.B) {
	b.SetBytes(mine.CandidateSize)
	b.ReportAllocs()
	b.ResetTimer()
	for i := b.N; i > 0; i-- {
		c := mine.Generate(uint64(i))
		sink = xxh3.Hash(c[:])&15 == 15
	}
}

func benchAlg(alg func(b *testing.B)) {
	totalHz, polls, mut := uint64(0), uint64(0), &sync.Mutex{}
	if calltime > 0 {
		go func() {
			for {
				tsc1 := gotsc.BenchStart()
				time.Sleep(time.Millisecond)
				tsc2 := gotsc.BenchEnd()

				mut.Lock()
				totalHz += tsc2 - tsc1 - calltime
				polls++
				mut.Unlock()

				time.Sleep(time.Millisecond * 9)
			}
		}()
	}
	r := testing.Benchmark(alg)
	mut.Lock()
	totalHz *= 1000

	rate := float64(r.N) / r.T.Seconds()
	Printf("Speed %12.3f Mattempts/s\n", rate/1e6)
	if calltime > 0 && polls > 0 {
		Printf("      %12.1f cycles/attempt\n", float64(totalHz)/float64(polls)/rate)
	}
	Printf("Usage %12.f B/op\n\n", float64(r.AllocedBytesPerOp()))
	mut.Unlock()
}

func main() {
	Printf("Running Statz on %d CPUs!\n%s/%s\n\n", runtime.NumCPU(), runtime.GOOS, runtime.GOARCH)
	t := time.Now()

	Println("github.com/minio/sha256-simd")
	benchAlg(benchSHA256)

	Println("github.com/zeebo/blake3")
	benchAlg(benchBLAKE3)

	Println("github.com/zeebo/xxh3")
	benchAlg(benchXXH3)

	Println("Finished in " + time.Since(t).Truncate(time.Millisecond).String() + ".")
}
