// tools/dataset_gen/main.go generates a deterministic population of
// synthetic (uid, size) pairs for standalone load-testing of assetcache
// outside `go test` — feed the output into bench/ or a hand-rolled load
// generator that calls AssetCacheController.Write with size bytes per
// uid.
//
// Usage:
//
//	go run ./tools/dataset_gen -n 1000000 -dist=zipf -seed=42 -out population.csv
//
// Flags:
//
//	-n       number of entries to generate (default 1e6)
//	-dist    size distribution: "uniform" or "zipf" (default uniform)
//	-min     minimum size in bytes (default 64)
//	-max     maximum size in bytes (default 65536)
//	-zipfs   Zipf s parameter (>1)  (default 1.2)
//	-zipfv   Zipf v parameter (>=1) (default 1.0)
//	-seed    RNG seed (default current time)
//	-out     output file, one "uid,size" line per entry (default stdout)
//
// Retargeted from the teacher's tools/dataset_gen (same CLI shape, same
// uniform/zipf knobs), generalized from bare uint64 keys to the
// (uid, size) pairs AssetCacheController.Write actually needs.
//
// © 2025 arena-cache authors. MIT License.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of entries to generate")
		dist    = flag.String("dist", "uniform", "size distribution: uniform or zipf")
		minSize = flag.Uint64("min", 64, "minimum size in bytes")
		maxSize = flag.Uint64("max", 65536, "maximum size in bytes")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	if *maxSize <= *minSize {
		fmt.Fprintln(os.Stderr, "max must be greater than min")
		os.Exit(1)
	}
	span := *maxSize - *minSize

	rnd := rand.New(rand.NewSource(*seedVal))

	var sizeOf func() uint64
	switch *dist {
	case "uniform":
		sizeOf = func() uint64 { return *minSize + rnd.Uint64()%span }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, span)
		sizeOf = func() uint64 { return *minSize + z.Uint64() }
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	// The population starts at uid 1 and counts up: the generator's job
	// is realistic size distribution, not uid collision simulation.
	for uid := uint32(1); uid <= uint32(*n); uid++ {
		fmt.Fprintf(w, "%d,%d\n", uid, sizeOf())
	}
}
