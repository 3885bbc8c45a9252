// Package demo drives dtree over a synthetic irregular loop. It hosts one or
// more ranks in this process, runs worker goroutines on each and checks that
// every item of the loop was handed out exactly once.
package demo

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/common/stats"
	"github.com/twitter/dtree/dtree"
	"github.com/twitter/dtree/transport"
)

// Chunk is a range of items handed to one worker.
type Chunk struct {
	First, Last int64
}

// RankReport is what one rank did during a run.
type RankReport struct {
	Rank     int
	IsParent bool
	Items    int64
	Chunks   []Chunk
	Elapsed  time.Duration
	Threads  []int64
}

// Report is the outcome of a run over the ranks hosted by this process.
type Report struct {
	Ranks []RankReport
}

// Items is the total number of items processed by the reported ranks.
func (r *Report) Items() int64 {
	var n int64
	for _, rr := range r.Ranks {
		n += rr.Items
	}
	return n
}

// ErrConservation is the cause of Verify failures.
var ErrConservation = errors.New("work items lost or duplicated")

// Verify checks that the reported chunks tile [0, n) exactly. It is only
// meaningful when every rank of the group was hosted here.
func (r *Report) Verify(n int64) error {
	var all []Chunk
	for _, rr := range r.Ranks {
		all = append(all, rr.Chunks...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].First < all[j].First })
	next := int64(0)
	for _, c := range all {
		if c.First != next {
			return errors.Wrapf(ErrConservation, "expected chunk at %d, got [%d,%d)", next, c.First, c.Last)
		}
		next = c.Last
	}
	if next != n {
		return errors.Wrapf(ErrConservation, "items end at %d, want %d", next, n)
	}
	return nil
}

// Runner runs ranks over a workload.
type Runner struct {
	Workload *Workload

	// OptionsFor returns the tree options of a rank.
	OptionsFor func(rank int) dtree.Options

	Stats stats.StatsReceiver
}

// Run executes one rank on each transport and waits for all of them. The
// first error any rank hit is returned along with what the others did.
func (r *Runner) Run(trs []transport.Transport) (*Report, error) {
	reports := make([]RankReport, len(trs))
	errs := make([]error, len(trs))
	var wg sync.WaitGroup
	for i, tr := range trs {
		wg.Add(1)
		go func(i int, tr transport.Transport) {
			defer wg.Done()
			reports[i], errs[i] = r.runRank(tr)
		}(i, tr)
	}
	wg.Wait()

	report := &Report{Ranks: reports}
	for _, err := range errs {
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (r *Runner) runRank(tr transport.Transport) (rr RankReport, err error) {
	rank := tr.Rank()
	rr.Rank = rank
	stat := r.Stats
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	stat = stat.Scope("rank" + strconv.Itoa(rank))

	sess, err := dtree.Init(tr)
	if err != nil {
		return rr, err
	}
	defer func() {
		if serr := sess.Shutdown(); serr != nil && err == nil {
			err = serr
		}
	}()

	opts := r.OptionsFor(rank)
	opts.Stats = stat

	start := time.Now()
	tree, isParent, err := sess.Create(opts)
	if err != nil {
		return rr, err
	}
	defer tree.Destroy()
	rr.IsParent = isParent
	first, last, count, _ := tree.InitWork()
	log.Infof("rank %d: initial allocation [%d,%d) of %d items", rank, first, last, count)

	var mu sync.Mutex
	var items int64
	var firstErr error
	var wg sync.WaitGroup
	rr.Threads = make([]int64, opts.NumThreads)
	for t := 0; t < opts.NumThreads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			var mine []Chunk
			err := r.work(tree, opts.NodeMultiplier, func(first, last int64) {
				mine = append(mine, Chunk{first, last})
				atomic.AddInt64(&items, last-first)
			})
			mu.Lock()
			defer mu.Unlock()
			rr.Chunks = append(rr.Chunks, mine...)
			for _, c := range mine {
				rr.Threads[t] += c.Last - c.First
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}(t)
	}
	wg.Wait()

	rr.Items = items
	rr.Elapsed = time.Since(start)
	stat.Counter(stats.DemoItemsProcessedCounter).Inc(items)
	stat.Gauge(stats.DemoRunTimeGauge_ms).Update(int64(rr.Elapsed / time.Millisecond))
	log.Infof("rank %d: processed %d items in %v", rank, items, rr.Elapsed)
	return rr, firstErr
}

func (r *Runner) work(tree *dtree.Tree, speed float64, process func(first, last int64)) error {
	for {
		first, last, n, err := tree.GetWork()
		if err != nil {
			return err
		}
		if n > 0 {
			r.Workload.Process(first, last, speed)
			process(first, last)
			continue
		}
		more, err := tree.Run()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}
