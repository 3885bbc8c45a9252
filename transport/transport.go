// Package transport is the message-passing boundary the scheduler rides on.
// It provides rank identity, group size and non-blocking point-to-point
// send/receive whose completion is observed by polling a Request.
package transport

//go:generate mockgen -source=transport.go -package=transport -destination=transport_mock.go

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags a message so receives can be matched by sender and purpose.
type Kind int32

const (
	// KindRequest is sent by a child that ran out of work.
	KindRequest Kind = iota + 1
	// KindSupply answers a KindRequest with the range [First, Last).
	// An empty range tells the child that no more work exists above it.
	KindSupply
	// KindWeight carries one rank's node multiplier to rank 0 at creation.
	KindWeight
	// KindWeights carries every rank's node multiplier from rank 0 to the others.
	KindWeights
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindSupply:
		return "supply"
	case KindWeight:
		return "weight"
	case KindWeights:
		return "weights"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

// Message is the only payload the scheduler exchanges: integer ranges and,
// during creation, node multipliers.
type Message struct {
	Kind    Kind
	First   int64
	Last    int64
	Weights []float64
}

// Count is the number of work items carried by the message.
func (m Message) Count() int64 {
	if m.Last <= m.First {
		return 0
	}
	return m.Last - m.First
}

func (m Message) String() string {
	if m.Kind == KindWeight || m.Kind == KindWeights {
		return fmt.Sprintf("%s%v", m.Kind, m.Weights)
	}
	return fmt.Sprintf("%s[%d,%d)", m.Kind, m.First, m.Last)
}

// Transport is a reliable point-to-point message layer between the ranks of
// a fixed group. Isend and Irecv never block; their Requests are polled.
type Transport interface {
	// Rank of this process in the group, in [0, Size()).
	Rank() int

	// Size of the group.
	Size() int

	// Isend posts msg for delivery to rank to. The Request completes once the
	// transport owns the message, or with an error if it cannot be delivered.
	Isend(to int, msg Message) *Request

	// Irecv posts a receive for the next message of the given kind from rank from.
	Irecv(from int, kind Kind) *Request

	// Close leaves the group. Pending receives complete with ErrClosed.
	Close() error
}

var (
	// ErrClosed is returned by requests posted on, or pending in, a closed transport.
	ErrClosed = errors.New("transport closed")

	// ErrUnreachable is returned when a peer cannot be reached.
	ErrUnreachable = errors.New("peer unreachable")
)

// ErrBadRank reports a peer rank outside the group.
func ErrBadRank(rank, size int) error {
	return errors.Errorf("rank %d outside group of size %d", rank, size)
}
