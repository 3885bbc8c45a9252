package transport

import (
	"sync"
)

type inboxKey struct {
	from int
	kind Kind
}

// Inbox matches delivered messages against posted receives, keyed by sender
// and kind. Messages from one sender of one kind are matched in delivery
// order. Transports embed an Inbox per rank; it is safe for concurrent use.
type Inbox struct {
	mu     sync.Mutex
	queued map[inboxKey][]Message
	posted map[inboxKey][]*Request
	err    error
	failed map[int]error
}

func NewInbox() *Inbox {
	return &Inbox{
		queued: make(map[inboxKey][]Message),
		posted: make(map[inboxKey][]*Request),
		failed: make(map[int]error),
	}
}

// Deliver hands msg from rank from to the oldest matching posted receive,
// or queues it until one is posted.
func (b *Inbox) Deliver(from int, msg Message) {
	msg.Weights = copyWeights(msg.Weights)
	k := inboxKey{from, msg.Kind}

	b.mu.Lock()
	defer b.mu.Unlock()
	if reqs := b.posted[k]; len(reqs) > 0 {
		b.posted[k] = reqs[1:]
		reqs[0].Complete(msg, nil)
		return
	}
	b.queued[k] = append(b.queued[k], msg)
}

// Post registers a receive for the next message of kind from rank from.
func (b *Inbox) Post(from int, kind Kind) *Request {
	k := inboxKey{from, kind}

	b.mu.Lock()
	defer b.mu.Unlock()
	if msgs := b.queued[k]; len(msgs) > 0 {
		b.queued[k] = msgs[1:]
		return CompletedRequest(msgs[0], nil)
	}
	if b.err != nil {
		return CompletedRequest(Message{}, b.err)
	}
	if err := b.failed[from]; err != nil {
		return CompletedRequest(Message{}, err)
	}
	var r *Request
	r = NewRequest(func() { b.remove(k, r) })
	b.posted[k] = append(b.posted[k], r)
	return r
}

// FailFrom completes every pending and future receive from rank from with err.
func (b *Inbox) FailFrom(from int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed[from] = err
	for k, reqs := range b.posted {
		if k.from != from {
			continue
		}
		for _, r := range reqs {
			r.Complete(Message{}, err)
		}
		delete(b.posted, k)
	}
}

// Fail completes every pending and future receive with err.
func (b *Inbox) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	for k, reqs := range b.posted {
		for _, r := range reqs {
			r.Complete(Message{}, err)
		}
		delete(b.posted, k)
	}
}

// Pending is the number of posted receives not yet matched.
func (b *Inbox) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, reqs := range b.posted {
		n += len(reqs)
	}
	return n
}

func (b *Inbox) remove(k inboxKey, r *Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	reqs := b.posted[k]
	for i, p := range reqs {
		if p == r {
			b.posted[k] = append(reqs[:i:i], reqs[i+1:]...)
			return
		}
	}
}

func copyWeights(w []float64) []float64 {
	if w == nil {
		return nil
	}
	return append([]float64(nil), w...)
}
