package services

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingConn records writes and flags any two that run concurrently.
type countingConn struct {
	inFlight   int32
	concurrent int32
	written    int32
}

func (c *countingConn) WriteJSON(v interface{}) error {
	if atomic.AddInt32(&c.inFlight, 1) > 1 {
		atomic.StoreInt32(&c.concurrent, 1)
	}
	time.Sleep(time.Millisecond)
	atomic.AddInt32(&c.inFlight, -1)
	atomic.AddInt32(&c.written, 1)
	return nil
}

func (c *countingConn) ReadJSON(dest interface{}) error { return nil }
func (c *countingConn) Close() error                    { return nil }

func TestFanOutDeliversOnlyToSubscribers(t *testing.T) {
	subscriber := uuid.New()
	bystander := uuid.New()
	subConn := &countingConn{}
	byConn := &countingConn{}

	RegisterUserConnection(subscriber, subConn)
	defer UnregisterUserConnection(subscriber)
	RegisterUserConnection(bystander, byConn)
	defer UnregisterUserConnection(bystander)

	SubscribeUserToConversation(subscriber, "conv-1")

	FanOutMessageEvent(MessageEvent{Type: "message", ConversationID: "conv-1", Text: "hello"})

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&subConn.written) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&byConn.written))
}

func TestConnectionWritesNeverInterleave(t *testing.T) {
	userID := uuid.New()
	conn := &countingConn{}

	uc := RegisterUserConnection(userID, conn)
	defer UnregisterUserConnection(userID)
	SubscribeUserToConversation(userID, "conv-1")

	// Fan-out goroutines racing against direct replies on the same connection
	const events = 20
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		FanOutMessageEvent(MessageEvent{Type: "message", ConversationID: "conv-1"})
		wg.Add(1)
		go func() {
			defer wg.Done()
			uc.WriteJSON(map[string]string{"type": "pong"})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&conn.written) == 2*events
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&conn.concurrent), "writes on one connection must be serialized")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	userID := uuid.New()
	conn := &countingConn{}

	RegisterUserConnection(userID, conn)
	defer UnregisterUserConnection(userID)
	SubscribeUserToConversation(userID, "conv-1")
	UnsubscribeUserFromConversation(userID, "conv-1")

	FanOutMessageEvent(MessageEvent{Type: "message", ConversationID: "conv-1"})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&conn.written))
}
