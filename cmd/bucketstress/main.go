// main.go: bucketstress drives concurrent traffic through a bucketlock cache
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

// Command bucketstress hammers a bucketlock cache from many goroutines and
// reports hit ratio and lock contention. With --resize it keeps resizing the
// cache while traffic runs; with --config it hot-reloads settings from a file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/agilira/bucketlock"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

type options struct {
	goroutines int
	duration   time.Duration
	tries      int
	keys       int
	size       int
	writeRatio float64
	resize     bool
	banish     bool
	config     string
	verbose    bool
}

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

func run(out, errOut io.Writer, args []string) int {
	opts, code := parseFlags(errOut, args)
	if code >= 0 {
		return code
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := bucketlock.NewSlogLogger(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})))

	cache, err := bucketlock.NewCache(bucketlock.Config{
		MaxSize:       opts.size,
		LockTries:     opts.tries,
		BanishOnEvict: opts.banish,
		Logger:        logger,
	})
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	defer cache.Close()

	if opts.config != "" {
		hc, err := bucketlock.NewHotConfig(cache, bucketlock.HotConfigOptions{ConfigPath: opts.config})
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		if err := hc.Start(); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return 1
		}
		defer hc.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	var ops atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.goroutines; w++ {
		seed := uint64(w) // #nosec G115 - w is a non-negative index
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)) // #nosec G404 - load generation only
			for gctx.Err() == nil {
				key := "k" + strconv.Itoa(rng.IntN(opts.keys))
				if rng.Float64() < opts.writeRatio {
					cache.Set(key, key)
				} else {
					cache.Get(key)
				}
				ops.Add(1)
			}
			return nil
		})
	}
	if opts.resize {
		g.Go(func() error { return resizeLoop(gctx, cache, opts.size) })
	}

	start := time.Now()
	if err := g.Wait(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	report(out, cache.Stats(), ops.Load(), time.Since(start))
	return 0
}

// resizeLoop alternates the cache between size and four times size until
// ctx is done. Interrupted resizes are expected when the run ends.
func resizeLoop(ctx context.Context, cache bucketlock.Cache, size int) error {
	sizes := [2]int{size * 4, size}
	for i := 0; ctx.Err() == nil; i++ {
		if err := cache.Resize(ctx, sizes[i%2]); err != nil && !bucketlock.IsResizeError(err) {
			return err
		}
	}
	return nil
}

func report(out io.Writer, s bucketlock.CacheStats, ops uint64, elapsed time.Duration) {
	perAcquire := 0.0
	if acquisitions := s.Hits + s.Misses + s.Sets + s.BusyOps; acquisitions > 0 {
		perAcquire = float64(s.LockAttempts) / float64(acquisitions)
	}
	fmt.Fprintf(out, "ops:            %d (%.0f/s)\n", ops, float64(ops)/elapsed.Seconds())
	fmt.Fprintf(out, "hit ratio:      %.2f%%\n", s.HitRatio())
	fmt.Fprintf(out, "busy ops:       %d\n", s.BusyOps)
	fmt.Fprintf(out, "lock attempts:  %d (%.2f per op)\n", s.LockAttempts, perAcquire)
	fmt.Fprintf(out, "evictions:      %d\n", s.Evictions)
	fmt.Fprintf(out, "rejections:     %d\n", s.Rejections)
	fmt.Fprintf(out, "migrations:     %d\n", s.Migrations)
	fmt.Fprintf(out, "size:           %d / %d in %d buckets\n", s.Size, s.Capacity, s.Buckets)
}

// parseFlags returns the options and -1, or an exit code when the program
// should stop (help or a usage error).
func parseFlags(errOut io.Writer, args []string) (options, int) {
	var opts options
	flagSet := flag.NewFlagSet("bucketstress", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	flagSet.IntVarP(&opts.goroutines, "goroutines", "g", 8, "Concurrent workers")
	flagSet.DurationVarP(&opts.duration, "duration", "d", 2*time.Second, "How long to run")
	flagSet.IntVarP(&opts.tries, "tries", "t", bucketlock.DefaultLockTries, "Lock attempt budget per operation")
	flagSet.IntVarP(&opts.keys, "keys", "k", 50_000, "Distinct keys in the workload")
	flagSet.IntVarP(&opts.size, "size", "s", bucketlock.DefaultMaxSize, "Cache capacity")
	flagSet.Float64VarP(&opts.writeRatio, "writes", "w", 0.2, "Fraction of operations that are writes")
	flagSet.BoolVar(&opts.resize, "resize", false, "Resize the cache continuously while running")
	flagSet.BoolVar(&opts.banish, "banish-on-evict", false, "Banish evicted keys for the rest of the term")
	flagSet.StringVarP(&opts.config, "config", "c", "", "Configuration file to hot-reload")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "Log resize and reload events")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, 0
		}
		fmt.Fprintln(errOut, "error:", err)
		return opts, 2
	}
	if opts.goroutines <= 0 || opts.keys <= 0 || opts.size <= 0 || opts.duration <= 0 {
		fmt.Fprintln(errOut, "error: goroutines, keys, size and duration must be positive")
		return opts, 2
	}
	if opts.writeRatio < 0 || opts.writeRatio > 1 {
		fmt.Fprintln(errOut, "error: writes must be between 0 and 1")
		return opts, 2
	}
	return opts, -1
}
