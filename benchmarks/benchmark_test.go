package benchmarks

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/agilira/bucketlock"
	ristretto "github.com/dgraph-io/ristretto/v2"
	"github.com/maypok86/otter/v2"
)

// Benchmark configuration
const (
	// Cache sizes to test
	smallCacheSize  = 1_000
	mediumCacheSize = 10_000
	largeCacheSize  = 100_000

	// Key spaces for different scenarios
	smallKeySpace  = 100
	mediumKeySpace = 1_000
	largeKeySpace  = 10_000

	// Workload ratios (read percentage)
	writeHeavy = 0.1
	balanced   = 0.5
	readHeavy  = 0.9
	readOnly   = 1.0
)

var seq atomic.Uint64

// =============================================================================
// ZIPF DISTRIBUTION GENERATOR
// =============================================================================

// ZipfGenerator generates keys following a Zipf distribution, so some keys
// are much more popular than others.
type ZipfGenerator struct {
	zipf *rand.Zipf
	rng  *rand.Rand
}

// NewZipfGenerator creates a generator over [0, imax] with exponent s > 1
// and v >= 1. Each generator gets its own seed.
func NewZipfGenerator(s, v float64, imax uint64) *ZipfGenerator {
	if imax < 1 {
		imax = 1
	}
	if s <= 1.0 {
		s = 1.01
	}
	if v < 1.0 {
		v = 1.0
	}
	rng := rand.New(rand.NewPCG(seq.Add(1), 0x9e3779b97f4a7c15))
	return &ZipfGenerator{zipf: rand.NewZipf(rng, s, v, imax), rng: rng}
}

// Next returns the next key in the Zipf distribution
func (z *ZipfGenerator) Next() uint64 {
	return z.zipf.Uint64()
}

// NextString returns the next key as a string
func (z *ZipfGenerator) NextString() string {
	return strconv.FormatUint(z.Next(), 10)
}

// Float64 draws from the generator's own source, for read/write decisions.
func (z *ZipfGenerator) Float64() float64 {
	return z.rng.Float64()
}

// =============================================================================
// CACHE WRAPPERS FOR UNIFORM INTERFACE
// =============================================================================

// CacheInterface provides a uniform interface for all caches
type CacheInterface interface {
	Set(key string, value int) bool
	Get(key string) (int, bool)
	Name() string
	Close()
}

// =============================================================================
// BUCKETLOCK WRAPPERS
// =============================================================================

type BucketlockCache struct {
	cache bucketlock.Cache
	name  string
}

// NewBucketlockCache builds a cache with the given spin budget per bucket.
func NewBucketlockCache(size, lockTries int) *BucketlockCache {
	cache, err := bucketlock.NewCache(bucketlock.Config{
		MaxSize:   size,
		LockTries: lockTries,
	})
	if err != nil {
		panic(err)
	}
	return &BucketlockCache{cache: cache, name: "Bucketlock-" + strconv.Itoa(lockTries)}
}

func (c *BucketlockCache) Set(key string, value int) bool {
	return c.cache.Set(key, value)
}

func (c *BucketlockCache) Get(key string) (int, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

func (c *BucketlockCache) Name() string {
	return c.name
}

func (c *BucketlockCache) Close() {
	_ = c.cache.Close()
}

type BucketlockGenericCache struct {
	cache *bucketlock.GenericCache[string, int]
}

func NewBucketlockGenericCache(size int) *BucketlockGenericCache {
	cache, err := bucketlock.NewGenericCache[string, int](bucketlock.Config{MaxSize: size})
	if err != nil {
		panic(err)
	}
	return &BucketlockGenericCache{cache: cache}
}

func (c *BucketlockGenericCache) Set(key string, value int) bool {
	return c.cache.Set(key, value)
}

func (c *BucketlockGenericCache) Get(key string) (int, bool) {
	return c.cache.Get(key)
}

func (c *BucketlockGenericCache) Name() string {
	return "Bucketlock-Generic"
}

func (c *BucketlockGenericCache) Close() {
	_ = c.cache.Close()
}

// =============================================================================
// OTTER WRAPPER
// =============================================================================

type OtterCache struct {
	cache *otter.Cache[string, int]
}

func NewOtterCache(size int) *OtterCache {
	cache := otter.Must(&otter.Options[string, int]{
		MaximumSize: size,
	})
	return &OtterCache{cache: cache}
}

func (c *OtterCache) Set(key string, value int) bool {
	c.cache.Set(key, value)
	return true
}

func (c *OtterCache) Get(key string) (int, bool) {
	return c.cache.GetIfPresent(key)
}

func (c *OtterCache) Name() string {
	return "Otter"
}

func (c *OtterCache) Close() {}

// =============================================================================
// RISTRETTO WRAPPER
// =============================================================================

type RistrettoCache struct {
	cache *ristretto.Cache[string, int]
}

func NewRistrettoCache(size int) *RistrettoCache {
	cache, err := ristretto.NewCache(&ristretto.Config[string, int]{
		NumCounters: int64(size * 10),
		MaxCost:     int64(size),
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	return &RistrettoCache{cache: cache}
}

func (c *RistrettoCache) Set(key string, value int) bool {
	return c.cache.Set(key, value, 1)
}

func (c *RistrettoCache) Get(key string) (int, bool) {
	return c.cache.Get(key)
}

func (c *RistrettoCache) Name() string {
	return "Ristretto"
}

func (c *RistrettoCache) Close() {
	c.cache.Close()
}

// =============================================================================
// BENCHMARK HELPERS
// =============================================================================

// warmupCache pre-populates cache with data following Zipf distribution
func warmupCache(c CacheInterface, keySpace int) {
	zipf := NewZipfGenerator(1.01, 1.0, uint64(keySpace-1))
	for i := 0; i < keySpace/2; i++ {
		c.Set(zipf.NextString(), i)
	}
}

// runMixedWorkload executes a mixed read/write workload
func runMixedWorkload(b *testing.B, c CacheInterface, keySpace int, readRatio float64) {
	warmupCache(c, keySpace)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		zipf := NewZipfGenerator(1.01, 1.0, uint64(keySpace-1))
		i := 0
		for pb.Next() {
			key := zipf.NextString()
			if zipf.Float64() < readRatio {
				c.Get(key)
			} else {
				c.Set(key, i)
				i++
			}
		}
	})
}

func benchmarkSet(b *testing.B, c CacheInterface, keySpace int, parallel bool) {
	defer c.Close()

	b.ResetTimer()
	b.ReportAllocs()

	if parallel {
		b.RunParallel(func(pb *testing.PB) {
			zipf := NewZipfGenerator(1.01, 1.0, uint64(keySpace-1))
			i := 0
			for pb.Next() {
				c.Set(zipf.NextString(), i)
				i++
			}
		})
		return
	}
	zipf := NewZipfGenerator(1.01, 1.0, uint64(keySpace-1))
	for i := 0; i < b.N; i++ {
		c.Set(zipf.NextString(), i)
	}
}

func benchmarkGet(b *testing.B, c CacheInterface, keySpace int, parallel bool) {
	defer c.Close()
	warmupCache(c, keySpace)

	b.ResetTimer()
	b.ReportAllocs()

	if parallel {
		b.RunParallel(func(pb *testing.PB) {
			zipf := NewZipfGenerator(1.01, 1.0, uint64(keySpace-1))
			for pb.Next() {
				c.Get(zipf.NextString())
			}
		})
		return
	}
	zipf := NewZipfGenerator(1.01, 1.0, uint64(keySpace-1))
	for i := 0; i < b.N; i++ {
		c.Get(zipf.NextString())
	}
}

// contender builds a fresh cache of a given size.
type contender struct {
	name    string
	factory func(size int) CacheInterface
}

// contenders lists the caches in report order.
var contenders = []contender{
	{"Bucketlock", func(size int) CacheInterface { return NewBucketlockCache(size, bucketlock.DefaultLockTries) }},
	{"Bucketlock-Generic", func(size int) CacheInterface { return NewBucketlockGenericCache(size) }},
	{"Otter", func(size int) CacheInterface { return NewOtterCache(size) }},
	{"Ristretto", func(size int) CacheInterface { return NewRistrettoCache(size) }},
}

// =============================================================================
// LOCK BENCHMARKS
// =============================================================================

func BenchmarkCell_LockUnlock(b *testing.B) {
	cells := bucketlock.NewCells(1)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g, _ := cells[0].Lock(1)
		g.Unlock()
	}
}

func BenchmarkMutex_LockUnlock(b *testing.B) {
	var mu sync.Mutex
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		mu.Lock()
		mu.Unlock()
	}
}

// Goroutines spread over 64 cells, the way operations spread over buckets.
func BenchmarkCell_Parallel(b *testing.B) {
	cells := bucketlock.NewCells(64)
	var failed atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewPCG(seq.Add(1), 1))
		for pb.Next() {
			g, ok := cells[rng.IntN(len(cells))].Lock(bucketlock.DefaultLockTries)
			if !ok {
				failed.Add(1)
				continue
			}
			g.Toggle(bucketlock.FlagMigrated)
			g.Unlock()
		}
	})
	b.ReportMetric(float64(failed.Load())/float64(b.N), "busy/op")
}

func BenchmarkCell_SingleHotCell(b *testing.B) {
	cells := bucketlock.NewCells(1)
	var failed atomic.Int64
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g, ok := cells[0].Lock(bucketlock.DefaultLockTries)
			if !ok {
				failed.Add(1)
				continue
			}
			g.Unlock()
		}
	})
	b.ReportMetric(float64(failed.Load())/float64(b.N), "busy/op")
}

// =============================================================================
// CACHE BENCHMARKS
// =============================================================================

func BenchmarkSet(b *testing.B) {
	for _, mode := range []string{"single", "parallel"} {
		for _, ct := range contenders {
			b.Run(ct.name+"/"+mode, func(b *testing.B) {
				benchmarkSet(b, ct.factory(mediumCacheSize), mediumKeySpace, mode == "parallel")
			})
		}
	}
}

func BenchmarkGet(b *testing.B) {
	for _, mode := range []string{"single", "parallel"} {
		for _, ct := range contenders {
			b.Run(ct.name+"/"+mode, func(b *testing.B) {
				benchmarkGet(b, ct.factory(mediumCacheSize), mediumKeySpace, mode == "parallel")
			})
		}
	}
}

func BenchmarkMixed(b *testing.B) {
	workloads := []struct {
		name      string
		readRatio float64
	}{
		{"WriteHeavy", writeHeavy},
		{"Balanced", balanced},
		{"ReadHeavy", readHeavy},
		{"ReadOnly", readOnly},
	}
	for _, wl := range workloads {
		for _, ct := range contenders {
			b.Run(wl.name+"/"+ct.name, func(b *testing.B) {
				c := ct.factory(mediumCacheSize)
				defer c.Close()
				runMixedWorkload(b, c, mediumKeySpace, wl.readRatio)
			})
		}
	}
}

func BenchmarkSizes(b *testing.B) {
	sizes := []struct {
		name     string
		size     int
		keySpace int
	}{
		{"Small", smallCacheSize, smallKeySpace},
		{"Large", largeCacheSize, largeKeySpace},
	}
	for _, sz := range sizes {
		for _, ct := range contenders {
			b.Run(sz.name+"/"+ct.name, func(b *testing.B) {
				c := ct.factory(sz.size)
				defer c.Close()
				runMixedWorkload(b, c, sz.keySpace, balanced)
			})
		}
	}
}

// Budgets trade busy misses for spinning time.
func BenchmarkBucketlock_LockTries(b *testing.B) {
	for _, tries := range []int{1, 16, bucketlock.DefaultLockTries, 10_000} {
		b.Run("tries="+strconv.Itoa(tries), func(b *testing.B) {
			c := NewBucketlockCache(smallCacheSize, tries)
			defer c.Close()
			runMixedWorkload(b, c, smallKeySpace, writeHeavy)
			b.ReportMetric(float64(c.cache.Stats().BusyOps)/float64(b.N), "busy/op")
		})
	}
}

// Traffic keeps flowing while the table doubles and halves underneath it.
func BenchmarkBucketlock_MixedDuringResize(b *testing.B) {
	c := NewBucketlockCache(mediumCacheSize, bucketlock.DefaultLockTries)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sizes := [2]int{mediumCacheSize * 4, mediumCacheSize}
		for i := 0; ctx.Err() == nil; i++ {
			_ = c.cache.Resize(ctx, sizes[i%2])
		}
	}()

	runMixedWorkload(b, c, mediumKeySpace, balanced)
	b.StopTimer()
	cancel()
	<-done
	b.ReportMetric(float64(c.cache.Stats().Migrations), "resizes")
}
