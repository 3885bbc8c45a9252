package dtree

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/dtree/transport"
)

// Session is this process's membership in a scheduling group. It wraps the
// transport that was bootstrapped for the group and creates Trees over it.
type Session struct {
	tr       transport.Transport
	shutdown int32
}

// Init joins the group reachable through tr.
func Init(tr transport.Transport) (*Session, error) {
	if tr == nil {
		return nil, newError(ConfigurationError, "nil transport")
	}
	if tr.Size() < 1 {
		return nil, newError(ConfigurationError, "group size %d must be at least 1", tr.Size())
	}
	if r := tr.Rank(); r < 0 || r >= tr.Size() {
		return nil, newError(ConfigurationError, "rank %d outside group of size %d", r, tr.Size())
	}
	log.Infof("dtree session started: rank %d of %d", tr.Rank(), tr.Size())
	return &Session{tr: tr}, nil
}

// Shutdown leaves the group and closes the transport. Trees must be
// destroyed first.
func (s *Session) Shutdown() error {
	if !atomic.CompareAndSwapInt32(&s.shutdown, 0, 1) {
		return errShutdown
	}
	log.Infof("dtree session shutting down: rank %d", s.tr.Rank())
	if err := s.tr.Close(); err != nil {
		return wrapError(TransportError, err, "closing transport")
	}
	return nil
}

// NumNodes is the number of ranks in the group.
func (s *Session) NumNodes() int {
	return s.tr.Size()
}

// NodeID is this process's rank.
func (s *Session) NodeID() int {
	return s.tr.Rank()
}

func (s *Session) closed() bool {
	return atomic.LoadInt32(&s.shutdown) == 1
}

// Create builds this rank's node of a new scheduling tree over [0,
// opts.NumWorkItems). It is collective: every rank of the group must call it
// with matching options, and it returns once all node multipliers have been
// exchanged. isParent reports whether this rank has children.
func (s *Session) Create(opts Options) (t *Tree, isParent bool, err error) {
	if s.closed() {
		return nil, false, errShutdown
	}
	if err := opts.validate(); err != nil {
		return nil, false, err
	}
	topo, err := NewTopology(opts.FanOut, s.tr.Size(), s.tr.Rank(), opts.CanParent)
	if err != nil {
		return nil, false, err
	}
	mults, err := s.exchangeMultipliers(opts.NodeMultiplier)
	if err != nil {
		return nil, false, err
	}
	t = newTree(s.tr, opts, topo, newPolicy(&opts, topo, mults))
	first, last := InitialRange(&opts, topo, mults)
	t.seed(first, last)
	log.Infof("dtree created: %s, initial range [%d,%d)", topo, first, last)
	return t, topo.IsParent(), nil
}

// exchangeMultipliers gathers every rank's multiplier at rank 0 and
// broadcasts the full vector back.
func (s *Session) exchangeMultipliers(mine float64) ([]float64, error) {
	size, rank := s.tr.Size(), s.tr.Rank()
	if size == 1 {
		return []float64{mine}, nil
	}
	if rank != 0 {
		recv := s.tr.Irecv(0, transport.KindWeights)
		send := s.tr.Isend(0, transport.Message{Kind: transport.KindWeight, Weights: []float64{mine}})
		if err := transport.WaitAll(send); err != nil {
			recv.Cancel()
			return nil, wrapError(TransportError, err, "sending multiplier to rank 0")
		}
		msg, err := transport.Wait(recv)
		if err != nil {
			return nil, wrapError(TransportError, err, "receiving multipliers from rank 0")
		}
		if len(msg.Weights) != size {
			return nil, newError(TransportError, "got %d multipliers for a group of %d", len(msg.Weights), size)
		}
		return msg.Weights, nil
	}

	mults := make([]float64, size)
	mults[0] = mine
	recvs := make([]*transport.Request, size)
	for r := 1; r < size; r++ {
		recvs[r] = s.tr.Irecv(r, transport.KindWeight)
	}
	for r := 1; r < size; r++ {
		msg, err := transport.Wait(recvs[r])
		if err != nil {
			for _, rest := range recvs[r+1:] {
				rest.Cancel()
			}
			return nil, wrapError(TransportError, err, "receiving multiplier from rank %d", r)
		}
		if len(msg.Weights) != 1 || !(msg.Weights[0] > 0) {
			return nil, newError(ConfigurationError, "rank %d advertised invalid multiplier %v", r, msg.Weights)
		}
		mults[r] = msg.Weights[0]
	}
	sends := make([]*transport.Request, 0, size-1)
	for r := 1; r < size; r++ {
		sends = append(sends, s.tr.Isend(r, transport.Message{Kind: transport.KindWeights, Weights: mults}))
	}
	if err := transport.WaitAll(sends...); err != nil {
		return nil, wrapError(TransportError, err, "broadcasting multipliers")
	}
	return mults, nil
}
