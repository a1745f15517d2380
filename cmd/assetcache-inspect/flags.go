package main

// flags.go defines the command-line surface for assetcache-inspect. The
// teacher's own cmd/arena-cache-inspect package references parseFlags and
// options but never defines them in the retrieved pack; this file fills
// that gap using the standard library's flag package, matching the rest
// of the teacher's CLI idiom (no flag-parsing library appears anywhere
// in the example pack).
//
// © 2025 arena-cache authors. MIT License.

import (
	"flag"
	"os"
	"time"
)

type options struct {
	target           string
	domain           string
	json             bool
	watch            bool
	interval         time.Duration
	heapProfile      string
	goroutineProfile string
	version          bool
}

func parseFlags() *options {
	opts := &options{}

	fs := flag.NewFlagSet("assetcache-inspect", flag.ExitOnError)
	fs.StringVar(&opts.target, "target", "http://127.0.0.1:8080", "base URL of the instrumented assetcache process")
	fs.StringVar(&opts.domain, "domain", "", "restrict the snapshot to one domain (default: all domains)")
	fs.BoolVar(&opts.json, "json", false, "print the raw snapshot as JSON instead of a formatted summary")
	fs.BoolVar(&opts.watch, "watch", false, "poll the snapshot endpoint repeatedly instead of exiting after one fetch")
	fs.DurationVar(&opts.interval, "interval", 2*time.Second, "polling interval used with -watch")
	fs.StringVar(&opts.heapProfile, "heap-profile", "", "download a heap pprof profile to this path and exit")
	fs.StringVar(&opts.goroutineProfile, "goroutine-profile", "", "download a goroutine pprof profile to this path and exit")
	fs.BoolVar(&opts.version, "version", false, "print the inspector's version and exit")

	_ = fs.Parse(os.Args[1:])
	return opts
}
