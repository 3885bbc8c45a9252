package rpc

import (
	"net"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitter/dtree/transport"
)

func startGroup(t *testing.T, size int) []*Transport {
	var listeners []net.Listener
	var peers []string
	for i := 0; i < size; i++ {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		listeners = append(listeners, lis)
		peers = append(peers, lis.Addr().String())
	}
	var group []*Transport
	for i, lis := range listeners {
		tr, err := Serve(Config{Rank: i, Peers: peers, BootstrapTimeout: 5 * time.Second}, lis)
		require.NoError(t, err)
		group = append(group, tr)
	}
	return group
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := toEnvelope(3, transport.Message{Kind: transport.KindWeights, Weights: []float64{2, 1}})
	b, err := proto.Marshal(env)
	require.NoError(t, err)

	var got Envelope
	require.NoError(t, proto.Unmarshal(b, &got))
	from, msg := fromEnvelope(&got)
	assert.Equal(t, 3, from)
	assert.Equal(t, transport.KindWeights, msg.Kind)
	assert.Equal(t, []float64{2, 1}, msg.Weights)
}

func TestTransport_SendRecv(t *testing.T) {
	group := startGroup(t, 2)
	defer func() {
		for _, tr := range group {
			tr.Close()
		}
	}()
	assert.Equal(t, 2, group[1].Size())

	recv := group[1].Irecv(0, transport.KindSupply)
	for i := int64(0); i < 3; i++ {
		_, err := transport.Wait(group[0].Isend(1, transport.Message{Kind: transport.KindSupply, First: i * 10, Last: i*10 + 5}))
		require.NoError(t, err)
	}

	msg, err := transport.Wait(recv)
	require.NoError(t, err)
	assert.Equal(t, int64(0), msg.First)

	// later sends arrive in order
	msg, err = transport.Wait(group[1].Irecv(0, transport.KindSupply))
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.First)
	msg, err = transport.Wait(group[1].Irecv(0, transport.KindSupply))
	require.NoError(t, err)
	assert.Equal(t, int64(20), msg.First)
}

func TestTransport_BadRank(t *testing.T) {
	_, err := Listen(Config{Rank: 2, Peers: []string{"127.0.0.1:0"}})
	assert.Error(t, err)

	group := startGroup(t, 1)
	defer group[0].Close()
	_, _, err = group[0].Isend(4, transport.Message{}).Test()
	assert.Error(t, err)
}

func TestTransport_CloseFailsPendingReceives(t *testing.T) {
	group := startGroup(t, 2)
	pending := group[0].Irecv(1, transport.KindRequest)
	require.NoError(t, group[0].Close())
	group[1].Close()

	_, err := transport.Wait(pending)
	assert.Equal(t, transport.ErrClosed, err)
	_, err = transport.Wait(group[0].Isend(1, transport.Message{Kind: transport.KindRequest}))
	assert.Equal(t, transport.ErrClosed, err)
}

func TestTransport_SendToStoppedPeerFails(t *testing.T) {
	group := startGroup(t, 2)
	defer group[1].Close()
	p, err := group[0].peer(1)
	require.NoError(t, err)
	require.NoError(t, group[0].Close())

	// A send that got hold of the peer before Close must still complete.
	req := transport.NewRequest(nil)
	p.enqueue(outgoing{env: toEnvelope(0, transport.Message{Kind: transport.KindRequest}), req: req})
	ok, _, err := req.Test()
	require.True(t, ok)
	assert.Equal(t, transport.ErrClosed, err)
}
