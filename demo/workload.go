package demo

import (
	"time"

	"github.com/twitter/dtree/config"
)

// Workload is a synthetic irregular loop body. Item costs are fixed by the
// seed so that every rank sees the same loop.
type Workload struct {
	min, max time.Duration
	skewed   bool
	seed     uint64
	n        int64
}

func NewWorkload(cfg config.WorkloadConfig, n int64) *Workload {
	w := &Workload{
		min:    time.Duration(cfg.MinCostMicros) * time.Microsecond,
		max:    time.Duration(cfg.MaxCostMicros) * time.Microsecond,
		skewed: cfg.Skewed,
		seed:   uint64(cfg.Seed),
		n:      n,
	}
	if w.max < w.min {
		w.max = w.min
	}
	return w
}

// Cost of item i on a node of unit speed.
func (w *Workload) Cost(i int64) time.Duration {
	spread := w.max - w.min
	if spread <= 0 {
		return w.min
	}
	if w.skewed && w.n > 0 {
		spread = time.Duration(float64(spread) * float64(i) / float64(w.n))
		if spread <= 0 {
			return w.min
		}
	}
	return w.min + time.Duration(mix(w.seed^uint64(i))%uint64(spread))
}

// Process runs items [first, last) at the given relative speed and returns
// how long it took.
func (w *Workload) Process(first, last int64, speed float64) time.Duration {
	start := time.Now()
	var total time.Duration
	for i := first; i < last; i++ {
		total += w.Cost(i)
	}
	if speed > 0 {
		total = time.Duration(float64(total) / speed)
	}
	spin(total)
	return time.Since(start)
}

// spin keeps the calling goroutine busy for d.
func spin(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
