// race_test.go: concurrent access tests, meant to be run with -race
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package bucketlock

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRace_ConcurrentMixedOperations(t *testing.T) {
	c := newTestCache(t, Config{MaxSize: 512, LockTries: 256})

	const goroutines = 16
	const ops = 2000

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := "key-" + strconv.Itoa((id*7+i)%700)
				switch i % 10 {
				case 0:
					c.Delete(key)
				case 1:
					_ = c.Banish(key)
				case 2, 3, 4:
					c.Set(key, i)
				default:
					c.Get(key)
				}
			}
		}(g)
	}
	wg.Wait()

	if n := c.Len(); n < 0 || n > c.Stats().Buckets*BucketSlots {
		t.Errorf("Len = %d out of range", n)
	}
	stats := c.Stats()
	if stats.Hits+stats.Misses == 0 || stats.Sets == 0 {
		t.Errorf("no traffic recorded: %+v", stats)
	}
}

// Writers own disjoint keys; whatever a writer stored last must be readable
// after any number of resizes ran underneath it.
func TestRace_WritesSurviveConcurrentResize(t *testing.T) {
	c := newTestCache(t, Config{MaxSize: 4096, LockTries: TriesUnbounded, MigrationWorkers: 4})

	const writers = 8
	const keysPerWriter = 50
	const rounds = 40

	ctx, cancel := context.WithCancel(context.Background())
	var resizes atomic.Int64
	resizeDone := make(chan struct{})
	go func() {
		defer close(resizeDone)
		sizes := [2]int{16384, 4096}
		for i := 0; ctx.Err() == nil; i++ {
			if err := c.Resize(ctx, sizes[i%2]); err == nil {
				resizes.Add(1)
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				for k := 0; k < keysPerWriter; k++ {
					key := "w" + strconv.Itoa(w) + "-" + strconv.Itoa(k)
					if err := c.Store(key, r); err != nil {
						t.Errorf("Store(%s): %v", key, err)
						return
					}
					if v, ok := c.Get(key); !ok || v != r {
						t.Errorf("Get(%s) = %v %v right after storing %d", key, v, ok, r)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	cancel()
	<-resizeDone

	// Let an interrupted resize finish.
	if err := c.Resize(context.Background(), 4096); err != nil {
		t.Fatalf("final Resize: %v", err)
	}
	for w := 0; w < writers; w++ {
		for k := 0; k < keysPerWriter; k++ {
			key := "w" + strconv.Itoa(w) + "-" + strconv.Itoa(k)
			if v, ok := c.Get(key); !ok || v != rounds-1 {
				t.Errorf("Get(%s) = %v %v, want %d", key, v, ok, rounds-1)
			}
		}
	}
	if c.Len() != writers*keysPerWriter {
		t.Errorf("Len = %d, want %d", c.Len(), writers*keysPerWriter)
	}
	t.Logf("resizes completed during the run: %d", resizes.Load())
}

func TestRace_ClearDuringTraffic(t *testing.T) {
	c := newTestCache(t, Config{MaxSize: 1000, LockTries: 64})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				key := strconv.Itoa(id) + "-" + strconv.Itoa(i%300)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		c.Clear()
	}
	close(stop)
	wg.Wait()

	if skipped := c.Clear(); skipped != 0 {
		t.Errorf("Clear on an idle cache skipped %d buckets", skipped)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after final Clear, want 0", c.Len())
	}
}

func TestRace_StateReadsWhileLocking(t *testing.T) {
	cells := NewCells(2)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			g := cells[0].LockWait()
			g.Toggle(FlagMigrated)
			g.Unlock()
		}
	}()

	// Snapshots taken without the lock are best effort but always decode.
	for i := 0; i < 10_000; i++ {
		s := cells[0].Load()
		if uint16(s)&^(lockBit|uint16(FlagMigrated)) != 0 {
			t.Fatalf("snapshot %v has bits nobody set", s)
		}
	}
	close(stop)
	wg.Wait()
}
