package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRaisesSmallBufferToMinimum(t *testing.T) {
	b := New(1)
	require.Equal(t, MinBufferSize, b.bufSize)
}

func TestNewKeepsLargerBuffer(t *testing.T) {
	b := New(100)
	require.Equal(t, 100, b.bufSize)
}

func TestSubscribeUnsubscribeTracksReceiverCount(t *testing.T) {
	b := New(MinBufferSize)
	require.Equal(t, 0, b.ReceiverCount())

	ch := b.Subscribe()
	require.Equal(t, 1, b.ReceiverCount())

	b.Unsubscribe(ch)
	require.Equal(t, 0, b.ReceiverCount())
}

func TestUnsubscribeUnknownChannelIsSafe(t *testing.T) {
	b := New(MinBufferSize)
	stray := make(chan Event)
	require.NotPanics(t, func() { b.Unsubscribe(stray) })
}

func TestBroadcastDeliversToEverySubscriber(t *testing.T) {
	b := New(MinBufferSize)
	a := b.Subscribe()
	c := b.Subscribe()

	b.Broadcast(Event{Kind: Shutdown})

	require.Equal(t, Shutdown, (<-a).Kind)
	require.Equal(t, Shutdown, (<-c).Kind)
}

func TestBroadcastSkipsFullBufferWithoutBlocking(t *testing.T) {
	b := New(MinBufferSize)
	ch := b.Subscribe()
	for i := 0; i < MinBufferSize; i++ {
		b.Broadcast(Event{Kind: Shutdown})
	}

	done := make(chan struct{})
	go func() {
		b.Broadcast(Event{Kind: Shutdown})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full subscriber buffer")
	}

	require.Len(t, ch, MinBufferSize)
}

func TestDrainReturnsOnceAllSubscribersGone(t *testing.T) {
	b := New(MinBufferSize)
	ch := b.Subscribe()

	done := make(chan struct{})
	go func() {
		b.Drain()
		close(done)
	}()

	time.Sleep(2 * DrainPollInterval)
	select {
	case <-done:
		t.Fatal("Drain returned before the subscriber unsubscribed")
	default:
	}

	b.Unsubscribe(ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drain did not return after the last subscriber left")
	}
}
