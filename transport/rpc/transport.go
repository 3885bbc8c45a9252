// Package rpc is a networked Transport. Every rank serves a gRPC endpoint at
// its address in the peer list and delivers messages to other ranks with
// unary calls. Sends to one peer are issued in posting order.
package rpc

import (
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/twitter/dtree/transport"
)

const (
	DefaultCallTimeout      = 30 * time.Second
	DefaultBootstrapTimeout = 2 * time.Minute
)

// Config describes this rank and how to reach its peers.
type Config struct {
	Rank  int
	Peers []string

	// CallTimeout bounds a single Deliver call.
	CallTimeout time.Duration

	// BootstrapTimeout bounds how long a send keeps retrying a peer that is
	// not serving yet. Any other failure is returned immediately.
	BootstrapTimeout time.Duration
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	cfg    Config
	inbox  *transport.Inbox
	lis    net.Listener
	server *grpc.Server

	mu     sync.Mutex
	peers  map[int]*peer
	closed bool
	wg     sync.WaitGroup
}

// Listen starts serving this rank's address and returns the transport.
func Listen(cfg Config) (*Transport, error) {
	if cfg.Rank < 0 || cfg.Rank >= len(cfg.Peers) {
		return nil, transport.ErrBadRank(cfg.Rank, len(cfg.Peers))
	}
	lis, err := net.Listen("tcp", cfg.Peers[cfg.Rank])
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", cfg.Peers[cfg.Rank])
	}
	return Serve(cfg, lis)
}

// Serve is like Listen but serves on an already bound listener.
func Serve(cfg Config, lis net.Listener) (*Transport, error) {
	if cfg.Rank < 0 || cfg.Rank >= len(cfg.Peers) {
		return nil, transport.ErrBadRank(cfg.Rank, len(cfg.Peers))
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.BootstrapTimeout <= 0 {
		cfg.BootstrapTimeout = DefaultBootstrapTimeout
	}
	t := &Transport{
		cfg:    cfg,
		inbox:  transport.NewInbox(),
		lis:    lis,
		server: newServer(),
		peers:  make(map[int]*peer),
	}
	registerPeerServer(t.server, t)
	go func() {
		if err := t.server.Serve(lis); err != nil {
			log.Errorf("rank %d: serving %s: %v", cfg.Rank, lis.Addr(), err)
		}
	}()
	log.Infof("rank %d of %d serving on %s", cfg.Rank, len(cfg.Peers), lis.Addr())
	return t, nil
}

// newServer is grpc.NewServer with server reflection, so peers can be
// inspected with grpc_cli.
func newServer() *grpc.Server {
	s := grpc.NewServer()
	reflection.Register(s)
	return s
}

// Addr is the address this rank is serving on.
func (t *Transport) Addr() net.Addr {
	return t.lis.Addr()
}

func (t *Transport) Rank() int {
	return t.cfg.Rank
}

func (t *Transport) Size() int {
	return len(t.cfg.Peers)
}

// Deliver implements the gRPC service.
func (t *Transport) Deliver(ctx context.Context, env *Envelope) (*Ack, error) {
	from, msg := fromEnvelope(env)
	if from < 0 || from >= t.Size() {
		return nil, status.Errorf(codes.InvalidArgument, "sender %d outside group of size %d", from, t.Size())
	}
	log.Debugf("rank %d: received %v from %d", t.cfg.Rank, msg, from)
	t.inbox.Deliver(from, msg)
	return &Ack{}, nil
}

func (t *Transport) Isend(to int, msg transport.Message) *transport.Request {
	if to < 0 || to >= t.Size() {
		return transport.CompletedRequest(transport.Message{}, transport.ErrBadRank(to, t.Size()))
	}
	p, err := t.peer(to)
	if err != nil {
		return transport.CompletedRequest(transport.Message{}, err)
	}
	req := transport.NewRequest(nil)
	p.enqueue(outgoing{env: toEnvelope(t.cfg.Rank, msg), req: req})
	return req
}

func (t *Transport) Irecv(from int, kind transport.Kind) *transport.Request {
	if from < 0 || from >= t.Size() {
		return transport.CompletedRequest(transport.Message{}, transport.ErrBadRank(from, t.Size()))
	}
	return t.inbox.Post(from, kind)
}

// Close waits for queued sends to finish, then stops serving.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	peers := t.peers
	t.mu.Unlock()

	for _, p := range peers {
		p.stop()
	}
	t.wg.Wait()

	var first error
	for _, p := range peers {
		if err := p.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	t.server.GracefulStop()
	t.inbox.Fail(transport.ErrClosed)
	log.Infof("rank %d transport closed", t.cfg.Rank)
	return first
}

func (t *Transport) peer(rank int) (*peer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.ErrClosed
	}
	if p, ok := t.peers[rank]; ok {
		return p, nil
	}
	conn, err := grpc.Dial(t.cfg.Peers[rank], grpc.WithInsecure())
	if err != nil {
		return nil, errors.Wrapf(err, "dialing rank %d at %s", rank, t.cfg.Peers[rank])
	}
	p := &peer{
		rank:   rank,
		conn:   conn,
		wake:   make(chan struct{}, 1),
		cfg:    t.cfg,
		stopCh: make(chan struct{}),
	}
	t.peers[rank] = p
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		p.loop()
	}()
	return p, nil
}

type outgoing struct {
	env *Envelope
	req *transport.Request
}

// peer serializes the sends to one rank so they arrive in posting order.
type peer struct {
	rank int
	conn *grpc.ClientConn
	cfg  Config

	mu      sync.Mutex
	queue   []outgoing
	stopped bool
	wake    chan struct{}
	stopCh  chan struct{}
}

// enqueue queues o for the send loop. Once the peer is stopped the loop may
// already have exited, so o fails with ErrClosed instead.
func (p *peer) enqueue(o outgoing) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		o.req.Complete(transport.Message{}, transport.ErrClosed)
		return
	}
	p.queue = append(p.queue, o)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *peer) next() (outgoing, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return outgoing{}, false
	}
	o := p.queue[0]
	p.queue = p.queue[1:]
	return o, true
}

func (p *peer) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	close(p.stopCh)
}

// loop drains the queue; once stopped it finishes what is queued and exits.
func (p *peer) loop() {
	for {
		for {
			o, ok := p.next()
			if !ok {
				break
			}
			o.req.Complete(transport.Message{}, p.send(o.env))
		}
		select {
		case <-p.wake:
		case <-p.stopCh:
			for {
				o, ok := p.next()
				if !ok {
					return
				}
				o.req.Complete(transport.Message{}, p.send(o.env))
			}
		}
	}
}

// send delivers env, retrying with exponential backoff only while the peer
// reports itself unavailable, which is how a rank that has not started
// serving yet looks.
func (p *peer) send(env *Envelope) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.cfg.BootstrapTimeout

	var permanent error
	try := 1
	err := backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.CallTimeout)
		defer cancel()
		err := invokeDeliver(ctx, p.conn, env)
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.Unavailable {
			permanent = err
			return nil
		}
		log.Debugf("rank %d unavailable, try #%d: %v", p.rank, try, err)
		try++
		return err
	}, b)
	if permanent != nil {
		err = permanent
	}
	if err != nil {
		return errors.Wrapf(transport.ErrUnreachable, "rank %d: %v", p.rank, err)
	}
	return nil
}

var _ transport.Transport = (*Transport)(nil)
