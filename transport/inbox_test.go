package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_DeliverBeforePost(t *testing.T) {
	b := NewInbox()
	b.Deliver(2, Message{Kind: KindSupply, First: 0, Last: 4})
	b.Deliver(2, Message{Kind: KindSupply, First: 4, Last: 5})

	ok, msg, err := b.Post(2, KindSupply).Test()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, int64(4), msg.Count())

	ok, msg, _ = b.Post(2, KindSupply).Test()
	require.True(t, ok)
	assert.Equal(t, int64(4), msg.First)
}

func TestInbox_PostBeforeDeliver(t *testing.T) {
	b := NewInbox()
	r := b.Post(1, KindRequest)
	other := b.Post(1, KindSupply)

	ok, _, _ := r.Test()
	assert.False(t, ok)
	assert.Equal(t, 2, b.Pending())

	b.Deliver(1, Message{Kind: KindRequest})
	ok, msg, err := r.Test()
	require.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, KindRequest, msg.Kind)

	ok, _, _ = other.Test()
	assert.False(t, ok, "messages only match their own kind")
}

func TestInbox_WeightsAreCopied(t *testing.T) {
	b := NewInbox()
	w := []float64{1, 2}
	b.Deliver(0, Message{Kind: KindWeights, Weights: w})
	w[0] = 7

	_, msg, _ := b.Post(0, KindWeights).Test()
	assert.Equal(t, []float64{1, 2}, msg.Weights)
}

func TestInbox_Cancel(t *testing.T) {
	b := NewInbox()
	r := b.Post(3, KindRequest)
	r.Cancel()
	assert.Equal(t, 0, b.Pending())

	b.Deliver(3, Message{Kind: KindRequest})
	ok, _, _ := b.Post(3, KindRequest).Test()
	assert.True(t, ok, "message should be queued for the next receive")
}

func TestInbox_CancelAfterDeliveryKeepsMessage(t *testing.T) {
	b := NewInbox()
	r := b.Post(3, KindSupply)
	b.Deliver(3, Message{Kind: KindSupply, First: 10, Last: 20})
	r.Cancel()

	assert.Equal(t, Completed, r.State())
	ok, msg, err := r.Test()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.Count())
	assert.Equal(t, 0, b.Pending())
}

func TestInbox_Fail(t *testing.T) {
	b := NewInbox()
	fromOne := b.Post(1, KindSupply)
	fromTwo := b.Post(2, KindSupply)

	b.FailFrom(1, ErrUnreachable)
	ok, _, err := fromOne.Test()
	require.True(t, ok)
	assert.Equal(t, ErrUnreachable, err)
	ok, _, _ = fromTwo.Test()
	assert.False(t, ok)

	_, _, err = b.Post(1, KindRequest).Test()
	assert.Equal(t, ErrUnreachable, err)

	b.Fail(ErrClosed)
	_, _, err = fromTwo.Test()
	assert.Equal(t, ErrClosed, err)
	_, _, err = b.Post(5, KindRequest).Test()
	assert.Equal(t, ErrClosed, err)
}
