package dtree

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/luci/go-render/render"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/twitter/dtree/common/stats"
	"github.com/twitter/dtree/transport"
)

// Tree is this rank's node of a scheduling tree. GetWork and InitWork may be
// called from any number of goroutines; Run may be too, but only one caller
// at a time performs a step.
type Tree struct {
	tr     transport.Transport
	opts   Options
	topo   Topology
	policy Policy
	floor  int64

	work       workRange
	initFirst  int64
	initLast   int64
	destroyed  int32
	finished   int32
	stepping   int32
	threadGets []int64

	errMu sync.Mutex
	err   error

	// Owned by whoever holds stepping.
	children   []*child
	parentReq  *transport.Request
	parentDone bool
	askedAt    time.Time
	sends      []*transport.Request
	moved      bool

	stat  stats.StatsReceiver
	fine  stats.StatsReceiver // nanosecond latencies
	trace *rate.Limiter
}

// child is the protocol state of one child: its armed request receive and
// whether it is waiting for an answer or has been told work is gone.
type child struct {
	rank     int
	recv     *transport.Request
	deferred bool
	done     bool
}

func newTree(tr transport.Transport, opts Options, topo Topology, policy Policy) *Tree {
	stat := opts.Stats
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	floor := int64(opts.MinDistribUnit)
	if floor < 1 {
		floor = 1
	}
	t := &Tree{
		tr:         tr,
		opts:       opts,
		topo:       topo,
		policy:     policy,
		floor:      floor,
		threadGets: make([]int64, opts.NumThreads),
		parentDone: topo.IsRoot(),
		stat:       stat,
		fine:       stat.Precision(time.Nanosecond),
		trace:      rate.NewLimiter(rate.Every(time.Second), 5),
	}
	stat.GaugeFloat(stats.DtreeNodeMultiplierGauge).Update(opts.NodeMultiplier)
	for _, c := range topo.Children {
		t.children = append(t.children, &child{
			rank: c,
			recv: tr.Irecv(c, transport.KindRequest),
		})
	}
	return t
}

func (t *Tree) seed(first, last int64) {
	t.initFirst, t.initLast = first, last
	t.work.reset(first, last)
	t.stat.Gauge(stats.DtreeLocalItemsGauge).Update(last - first)
}

// Topology of this rank's node.
func (t *Tree) Topology() Topology {
	return t.topo
}

// Policy of this rank's node.
func (t *Tree) Policy() Policy {
	return t.policy
}

// InitWork reports the range this rank was allotted at creation. It does not
// claim anything: the items are handed out by GetWork like any others, and a
// parent may still pass part of them on to its children.
func (t *Tree) InitWork() (first, last, count int64, err error) {
	if t.isDestroyed() {
		return 0, 0, 0, errDestroyed
	}
	return t.initFirst, t.initLast, t.initLast - t.initFirst, nil
}

// GetWork claims the next chunk of the local range for the calling
// goroutine. A count of 0 means the local range is exhausted and the caller
// should drive Run. It never blocks on the transport.
func (t *Tree) GetWork() (first, last, count int64, err error) {
	if t.isDestroyed() {
		return 0, 0, 0, errDestroyed
	}
	if !t.policy.ParentParticipates {
		return 0, 0, 0, nil
	}
	start := time.Now()
	first, last = t.work.claim(t.opts.NumThreads, t.floor)
	count = last - first
	t.fine.Latency(stats.DtreeGetWorkLatency_ns).Record(time.Since(start))

	if count == 0 {
		t.stat.Counter(stats.DtreeGetWorkEmptyCounter).Inc(1)
		return first, last, 0, nil
	}
	tid := t.opts.threadID()
	if tid >= 0 && tid < len(t.threadGets) {
		atomic.AddInt64(&t.threadGets[tid], count)
	}
	t.stat.Counter(stats.DtreeGetWorkCounter).Inc(1)
	t.stat.Counter(stats.DtreeItemsClaimedCounter).Inc(count)
	if t.trace.Allow() {
		log.Debugf("rank %d thread %d claimed [%d,%d)", t.topo.Rank, tid, first, last)
	}
	return first, last, count, nil
}

// ThreadItems returns how many items each thread id has claimed through
// GetWork. Ids outside [0, NumThreads) are not attributed.
func (t *Tree) ThreadItems() []int64 {
	items := make([]int64, len(t.threadGets))
	for i := range t.threadGets {
		items[i] = atomic.LoadInt64(&t.threadGets[i])
	}
	return items
}

// Destroy withdraws the tree's pending receives. Any later call on the tree
// returns a LogicError.
func (t *Tree) Destroy() error {
	if !atomic.CompareAndSwapInt32(&t.destroyed, 0, 1) {
		return errDestroyed
	}
	for !atomic.CompareAndSwapInt32(&t.stepping, 0, 1) {
		runtime.Gosched()
	}
	defer atomic.StoreInt32(&t.stepping, 0)

	for _, c := range t.children {
		c.recv.Cancel()
	}
	if t.parentReq != nil {
		t.parentReq.Cancel()
		t.parentReq = nil
	}
	t.sends = nil
	t.stat.Remove(stats.DtreeLocalItemsGauge)
	log.Infof("dtree destroyed: rank %d, per-thread items %v", t.topo.Rank, t.ThreadItems())
	return nil
}

func (t *Tree) isDestroyed() bool {
	return atomic.LoadInt32(&t.destroyed) == 1
}

func (t *Tree) String() string {
	return fmt.Sprintf("dtree{%s; %s; range %s}", t.topo, t.policy, render.Render(t.rangeSnapshot()))
}

// Dump is a verbose description of the node's static configuration for
// debugging.
func (t *Tree) Dump() string {
	return spew.Sdump(t.topo, t.policy)
}

type rangeView struct {
	First, Next, Last int64
}

func (t *Tree) rangeSnapshot() rangeView {
	t.work.lock.Lock()
	defer t.work.lock.Unlock()
	return rangeView{t.work.first, t.work.next, t.work.last}
}
