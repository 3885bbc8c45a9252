// Package memory provides an in-process Transport: every rank of a group
// lives in the same process and messages are handed over through Inboxes.
// It is used to simulate clusters locally and in tests.
package memory

import (
	"sync"

	uuid "github.com/nu7hatch/gouuid"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/transport"
)

// Group is a set of endpoints that can reach each other.
type Group struct {
	runID     string
	endpoints []*Endpoint

	mu     sync.RWMutex
	failed map[int]bool
	sends  []int64
}

// NewGroup creates a group of size endpoints, ranked 0..size-1.
func NewGroup(size int) *Group {
	id, err := uuid.NewV4()
	runID := "unknown"
	if err == nil {
		runID = id.String()
	}
	g := &Group{
		runID:  runID,
		failed: make(map[int]bool),
		sends:  make([]int64, size),
	}
	for i := 0; i < size; i++ {
		g.endpoints = append(g.endpoints, &Endpoint{group: g, rank: i, inbox: transport.NewInbox()})
	}
	log.Debugf("memory group %s created with %d endpoints", runID, size)
	return g
}

// RunID identifies this group in logs.
func (g *Group) RunID() string {
	return g.runID
}

// Size of the group.
func (g *Group) Size() int {
	return len(g.endpoints)
}

// Endpoint returns the Transport of the given rank.
func (g *Group) Endpoint(rank int) *Endpoint {
	return g.endpoints[rank]
}

// Fail makes rank unreachable: sends to and from it fail, and receives
// posted on or against it complete with transport.ErrUnreachable.
func (g *Group) Fail(rank int) {
	g.mu.Lock()
	g.failed[rank] = true
	g.mu.Unlock()

	log.Infof("memory group %s: failing rank %d", g.runID, rank)
	g.endpoints[rank].inbox.Fail(transport.ErrUnreachable)
	for i, ep := range g.endpoints {
		if i != rank {
			ep.inbox.FailFrom(rank, transport.ErrUnreachable)
		}
	}
}

// Sends is the number of messages rank has successfully sent.
func (g *Group) Sends(rank int) int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sends[rank]
}

func (g *Group) reachable(from, to int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.failed[from] && !g.failed[to]
}

func (g *Group) countSend(from int) {
	g.mu.Lock()
	g.sends[from]++
	g.mu.Unlock()
}

// Endpoint is one rank's view of a Group. It implements transport.Transport.
type Endpoint struct {
	group *Group
	rank  int
	inbox *transport.Inbox

	mu     sync.Mutex
	closed bool
}

func (e *Endpoint) Rank() int {
	return e.rank
}

func (e *Endpoint) Size() int {
	return e.group.Size()
}

func (e *Endpoint) Isend(to int, msg transport.Message) *transport.Request {
	if to < 0 || to >= e.Size() {
		return transport.CompletedRequest(transport.Message{}, transport.ErrBadRank(to, e.Size()))
	}
	if e.isClosed() {
		return transport.CompletedRequest(transport.Message{}, transport.ErrClosed)
	}
	if !e.group.reachable(e.rank, to) {
		return transport.CompletedRequest(transport.Message{}, transport.ErrUnreachable)
	}
	e.group.endpoints[to].inbox.Deliver(e.rank, msg)
	e.group.countSend(e.rank)
	return transport.CompletedRequest(transport.Message{}, nil)
}

func (e *Endpoint) Irecv(from int, kind transport.Kind) *transport.Request {
	if from < 0 || from >= e.Size() {
		return transport.CompletedRequest(transport.Message{}, transport.ErrBadRank(from, e.Size()))
	}
	return e.inbox.Post(from, kind)
}

// Close fails this endpoint's pending receives. Messages already delivered
// to other endpoints are unaffected.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.inbox.Fail(transport.ErrClosed)
	return nil
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

var _ transport.Transport = (*Endpoint)(nil)
