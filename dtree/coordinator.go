package dtree

import (
	"runtime"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/common/stats"
	"github.com/twitter/dtree/transport"
)

// Run performs one non-blocking coordination step: it answers children that
// asked for work, asks the parent for more when the local range is empty and
// takes in the parent's reply. It returns true while work may remain
// anywhere in this rank's subtree and false once the subtree is confirmed
// exhausted, or on error.
//
// Run may be called from any goroutine. If another caller is already
// stepping, Run yields the processor and returns true. A step that neither
// sent nor received anything also yields before returning, so callers
// looping on GetWork and Run leave room for the goroutines that move the
// protocol forward.
func (t *Tree) Run() (bool, error) {
	if t.isDestroyed() {
		return false, errDestroyed
	}
	if atomic.LoadInt32(&t.finished) == 1 {
		return false, t.stickyErr()
	}
	if !atomic.CompareAndSwapInt32(&t.stepping, 0, 1) {
		runtime.Gosched()
		return true, nil
	}
	more, idle, err := t.stepLocked()
	atomic.StoreInt32(&t.stepping, 0)
	if idle {
		runtime.Gosched()
	}
	return more, err
}

// stepLocked runs one step while holding stepping. idle reports a step that
// neither sent nor received anything.
func (t *Tree) stepLocked() (more, idle bool, err error) {
	if t.isDestroyed() {
		return false, false, errDestroyed
	}
	if atomic.LoadInt32(&t.finished) == 1 {
		return false, false, t.stickyErr()
	}

	start := time.Now()
	t.moved = false
	more, err = t.step()
	t.fine.Latency(stats.DtreeRunLatency_ns).Record(time.Since(start))
	t.stat.Counter(stats.DtreeRunCounter).Inc(1)

	if err != nil {
		t.stat.Counter(stats.DtreeTransportErrorCounter).Inc(1)
		log.Errorf("rank %d: stopping: %v", t.topo.Rank, err)
		t.errMu.Lock()
		t.err = err
		t.errMu.Unlock()
		atomic.StoreInt32(&t.finished, 1)
		return false, false, err
	}
	if !more {
		log.Infof("rank %d: subtree exhausted", t.topo.Rank)
		atomic.StoreInt32(&t.finished, 1)
		return false, false, nil
	}
	if !t.moved {
		t.stat.Counter(stats.DtreeIdleStepCounter).Inc(1)
		return true, true, nil
	}
	return true, false, nil
}

func (t *Tree) stickyErr() error {
	t.errMu.Lock()
	defer t.errMu.Unlock()
	return t.err
}

func (t *Tree) step() (bool, error) {
	if err := t.pollSends(); err != nil {
		return false, err
	}
	if err := t.serviceChildren(); err != nil {
		return false, err
	}
	t.escalate()
	if err := t.consumeParent(); err != nil {
		return false, err
	}
	if err := t.pollSends(); err != nil {
		return false, err
	}
	return !t.exhausted(), nil
}

func (t *Tree) exhausted() bool {
	if !t.parentDone || len(t.sends) > 0 || t.work.remaining() > 0 {
		return false
	}
	for _, c := range t.children {
		if !c.done {
			return false
		}
	}
	return true
}

// pollSends drops completed sends and reports the first failed one.
func (t *Tree) pollSends() error {
	pending := t.sends[:0]
	for _, r := range t.sends {
		ok, _, err := r.Test()
		if !ok {
			pending = append(pending, r)
			continue
		}
		if err != nil {
			t.sends = nil
			return wrapError(TransportError, err, "rank %d: send failed", t.topo.Rank)
		}
	}
	t.sends = pending
	return nil
}

func (t *Tree) send(to int, msg transport.Message) {
	t.sends = append(t.sends, t.tr.Isend(to, msg))
	t.moved = true
	t.stat.Counter(stats.DtreeSendCounter).Inc(1)
}

// serviceChildren picks up new requests and answers every waiting child
// from the local range. Children that cannot be answered yet stay deferred
// until the parent's supply arrives.
func (t *Tree) serviceChildren() error {
	for i, c := range t.children {
		if c.done {
			continue
		}
		if !c.deferred {
			ok, _, err := c.recv.Test()
			if !ok {
				continue
			}
			if err != nil {
				return wrapError(TransportError, err, "rank %d: receiving request from child %d", t.topo.Rank, c.rank)
			}
			c.deferred = true
			t.moved = true
			c.recv = t.tr.Irecv(c.rank, transport.KindRequest)
			if !t.answer(i, func(rem int64) int64 { return t.policy.shareFor(i, rem) }) {
				t.stat.Counter(stats.DtreeChildDeferredCounter).Inc(1)
				log.Debugf("rank %d: deferring child %d", t.topo.Rank, c.rank)
			}
			continue
		}
		t.answer(i, func(rem int64) int64 { return t.policy.shareFor(i, rem) })
	}
	return nil
}

// answer tries to reply to deferred child i with a tail chunk of size(rem)
// items, or with an empty supply if no work is left above or here. It
// reports whether the child was answered.
func (t *Tree) answer(i int, size func(rem int64) int64) bool {
	c := t.children[i]
	first, last := t.work.carve(size)
	if last > first {
		t.send(c.rank, transport.Message{Kind: transport.KindSupply, First: first, Last: last})
		c.deferred = false
		t.stat.Counter(stats.DtreeChildServedCounter).Inc(1)
		t.stat.Counter(stats.DtreeItemsForwardedCounter).Inc(last - first)
		log.Debugf("rank %d: sent [%d,%d) to child %d", t.topo.Rank, first, last, c.rank)
		return true
	}
	if !t.parentDone {
		return false
	}
	t.send(c.rank, transport.Message{Kind: transport.KindSupply})
	c.deferred = false
	c.done = true
	c.recv.Cancel()
	t.stat.Counter(stats.DtreeChildFinishedCounter).Inc(1)
	log.Debugf("rank %d: child %d finished", t.topo.Rank, c.rank)
	return true
}

// escalate asks the parent for work once the local range has run dry.
func (t *Tree) escalate() {
	if t.parentDone || t.parentReq != nil || t.work.remaining() > 0 {
		return
	}
	t.parentReq = t.tr.Irecv(t.topo.Parent, transport.KindSupply)
	t.send(t.topo.Parent, transport.Message{Kind: transport.KindRequest})
	t.askedAt = time.Now()
	log.Debugf("rank %d: asked parent %d for work", t.topo.Rank, t.topo.Parent)
}

// consumeParent installs the parent's reply as the local range and passes
// the children's shares of it on to those that are waiting.
func (t *Tree) consumeParent() error {
	if t.parentReq == nil {
		return nil
	}
	ok, msg, err := t.parentReq.Test()
	if !ok {
		if t.trace.Allow() {
			log.Debugf("rank %d: waiting on parent %d for %v", t.topo.Rank, t.topo.Parent, time.Since(t.askedAt))
		}
		return nil
	}
	t.parentReq = nil
	t.moved = true
	if err != nil {
		return wrapError(TransportError, err, "rank %d: receiving supply from parent %d", t.topo.Rank, t.topo.Parent)
	}
	t.stat.Precision(time.Millisecond).Latency(stats.DtreeParentWaitLatency_ms).Record(time.Since(t.askedAt))
	t.stat.Counter(stats.DtreeSupplyReceivedCounter).Inc(1)

	if msg.Count() == 0 {
		log.Debugf("rank %d: parent %d has no more work", t.topo.Rank, t.topo.Parent)
		t.parentDone = true
		t.stat.Gauge(stats.DtreeLocalItemsGauge).Update(0)
		for i, c := range t.children {
			if c.deferred {
				t.answer(i, func(int64) int64 { return 0 })
			}
		}
		return nil
	}

	log.Debugf("rank %d: got [%d,%d) from parent %d", t.topo.Rank, msg.First, msg.Last, t.topo.Parent)
	t.stat.Counter(stats.DtreeItemsReceivedCounter).Inc(msg.Count())
	t.work.reset(msg.First, msg.Last)
	sp := t.policy.Split(msg.Count())
	for i, c := range t.children {
		if !c.deferred {
			continue
		}
		share := sp.Shares[i]
		t.answer(i, func(rem int64) int64 { return t.policy.atLeastUnit(share, rem) })
	}
	t.stat.Gauge(stats.DtreeLocalItemsGauge).Update(t.work.remaining())
	return nil
}
