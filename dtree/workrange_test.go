package dtree

import (
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkRange_ClaimGuided(t *testing.T) {
	var w workRange
	w.reset(0, 100)

	first, last := w.claim(2, 1)
	assert.Equal(t, int64(0), first)
	assert.Equal(t, int64(25), last)

	first, last = w.claim(2, 1)
	assert.Equal(t, int64(25), first)
	assert.Equal(t, int64(44), last)

	w.reset(0, 3)
	first, last = w.claim(4, 10)
	assert.Equal(t, int64(0), first)
	assert.Equal(t, int64(3), last)

	first, last = w.claim(4, 10)
	assert.Equal(t, first, last)
}

func TestWorkRange_ClaimLargestRange(t *testing.T) {
	var w workRange
	w.reset(0, math.MaxInt64)

	first, last := w.claim(2, 1)
	assert.Equal(t, int64(0), first)
	assert.Equal(t, int64(math.MaxInt64/4+1), last)

	first, last = w.carve(func(rem int64) int64 { return rem })
	assert.Equal(t, int64(math.MaxInt64/4+1), first)
	assert.Equal(t, int64(math.MaxInt64), last)
	assert.Equal(t, int64(0), w.remaining())
}

func TestWorkRange_CarveFromBack(t *testing.T) {
	var w workRange
	w.reset(10, 20)
	w.claim(1, 1)

	first, last := w.carve(func(rem int64) int64 {
		assert.Equal(t, int64(5), rem)
		return 3
	})
	assert.Equal(t, int64(17), first)
	assert.Equal(t, int64(20), last)
	assert.Equal(t, int64(2), w.remaining())

	first, last = w.carve(func(int64) int64 { return 100 })
	assert.Equal(t, int64(15), first)
	assert.Equal(t, int64(17), last)
	assert.Equal(t, int64(0), w.remaining())

	first, last = w.carve(func(int64) int64 { return 1 })
	assert.Equal(t, first, last)
}

func TestWorkRange_ConcurrentClaimsDoNotOverlap(t *testing.T) {
	const n, threads = 100000, 8
	var w workRange
	w.reset(0, n)

	type chunk struct{ first, last int64 }
	var mu sync.Mutex
	var chunks []chunk
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var mine []chunk
			for {
				first, last := w.claim(threads, 1)
				if first == last {
					break
				}
				if first > last {
					panic("claimed inverted range")
				}
				mine = append(mine, chunk{first, last})
			}
			mu.Lock()
			chunks = append(chunks, mine...)
			mu.Unlock()
		}()
	}
	// Carve concurrently with the claims.
	var carved []chunk
	for i := 0; i < 50; i++ {
		first, last := w.carve(func(rem int64) int64 { return 7 })
		if first < last {
			carved = append(carved, chunk{first, last})
		}
	}
	wg.Wait()

	chunks = append(chunks, carved...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].first < chunks[j].first })
	next := int64(0)
	for _, c := range chunks {
		require.Equal(t, next, c.first)
		next = c.last
	}
	assert.Equal(t, int64(n), next)
}

func TestSpinLock_MutualExclusion(t *testing.T) {
	var l spinLock
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000, counter)

	require.True(t, l.TryLock())
	assert.False(t, l.TryLock())
	l.Unlock()
}
