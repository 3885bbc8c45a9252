package transport

import (
	"runtime"
)

// State of a Request.
type State int

const (
	// Idle requests were never posted or have been canceled.
	Idle State = iota
	// Pending requests are posted and not yet observed complete.
	Pending
	// Completed requests carry their final message and error.
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Request is a non-blocking send or receive. It is similar to a Future:
// the transport supplies the value by calling Complete, and the owner
// observes it by polling Test.
//
// Complete may be called from any goroutine. Test, State and Cancel must only
// be called by the owner, one goroutine at a time.
type Request struct {
	resCh  chan result
	state  State
	res    result
	cancel func()
}

type result struct {
	msg Message
	err error
}

// NewRequest returns a pending Request. cancel, if not nil, is called when
// the owner cancels the request before it completes.
func NewRequest(cancel func()) *Request {
	return &Request{
		resCh:  make(chan result, 1),
		state:  Pending,
		cancel: cancel,
	}
}

// CompletedRequest returns a Request that is already complete.
func CompletedRequest(msg Message, err error) *Request {
	r := NewRequest(nil)
	r.Complete(msg, err)
	return r
}

// Complete supplies the value of the Request. It must be called at most once;
// calling it again panics.
func (r *Request) Complete(msg Message, err error) {
	r.resCh <- result{msg, err}
	close(r.resCh)
}

// Test reports whether the request has completed and, if so, the message it
// delivered and the error it completed with. It never blocks and may be
// called again after returning true.
func (r *Request) Test() (bool, Message, error) {
	switch r.state {
	case Completed:
		return true, r.res.msg, r.res.err
	case Idle:
		return false, Message{}, nil
	}
	select {
	case res := <-r.resCh:
		r.res = res
		r.state = Completed
		return true, res.msg, res.err
	default:
		return false, Message{}, nil
	}
}

// State of the request as of the last Test.
func (r *Request) State() State {
	return r.state
}

// Cancel withdraws a pending request. A request whose result was delivered
// but not yet seen by Test keeps it: it moves to Completed and Test returns
// the result. Canceling a completed or idle request does nothing.
func (r *Request) Cancel() {
	if r.state != Pending {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	select {
	case res := <-r.resCh:
		r.res = res
		r.state = Completed
	default:
		r.state = Idle
	}
}

// Wait polls r until it completes, yielding the processor between polls.
// It is meant for collective steps at creation, never for the coordinator loop.
func Wait(r *Request) (Message, error) {
	for {
		if ok, msg, err := r.Test(); ok {
			return msg, err
		}
		if r.state == Idle {
			return Message{}, ErrClosed
		}
		runtime.Gosched()
	}
}

// WaitAll waits for every request and returns the first error seen.
func WaitAll(reqs ...*Request) error {
	var first error
	for _, r := range reqs {
		if _, err := Wait(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}
