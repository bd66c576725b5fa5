package app

import (
	"testing"
	"time"

	"pluto_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func waitForWrites(t *testing.T, conn *fakeConn, want int) []domain.WSResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := conn.written(); len(got) >= want {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := conn.written()
	assert.Len(t, got, want)
	return got
}

func TestHub_PublishReachesRoomSubscribers(t *testing.T) {
	hub := NewHub()

	connA := &fakeConn{}
	connB := &fakeConn{}
	subA := NewSubscriber(connA)
	subB := NewSubscriber(connB)
	go subA.WritePump()
	go subB.WritePump()
	defer subA.Stop()
	defer subB.Stop()

	hub.Subscribe("general", subA)
	hub.Subscribe("general", subB)

	hub.Publish("general", domain.Message{ID: "m1", Sender: "alice", Content: "hi"})

	for _, conn := range []*fakeConn{connA, connB} {
		got := waitForWrites(t, conn, 1)
		assert.Equal(t, string(domain.NotifyMessage), got[0].Action)
		assert.Equal(t, "general", got[0].Payload["room_id"])
	}
}

// 廣播只進房間，其他房間的訂閱者收不到
func TestHub_PublishIsolatedPerRoom(t *testing.T) {
	hub := NewHub()

	connA := &fakeConn{}
	connB := &fakeConn{}
	subA := NewSubscriber(connA)
	subB := NewSubscriber(connB)
	go subA.WritePump()
	go subB.WritePump()
	defer subA.Stop()
	defer subB.Stop()

	hub.Subscribe("general", subA)
	hub.Subscribe("random", subB)

	hub.Publish("general", domain.Message{ID: "m1", Content: "hi"})

	waitForWrites(t, connA, 1)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, connB.written())
}

func TestHub_SubscribeIdempotent(t *testing.T) {
	hub := NewHub()
	sub := NewSubscriber(&fakeConn{})

	hub.Subscribe("general", sub)
	hub.Subscribe(" GENERAL ", sub)

	assert.Equal(t, 1, hub.SubscriberCount("general"))
}

func TestHub_UnsubscribeAll(t *testing.T) {
	hub := NewHub()
	sub := NewSubscriber(&fakeConn{})

	hub.Subscribe("general", sub)
	hub.Subscribe("random", sub)
	hub.UnsubscribeAll(sub)

	assert.Equal(t, 0, hub.SubscriberCount("general"))
	assert.Equal(t, 0, hub.SubscriberCount("random"))
}

// 停掉的訂閱者在下一次 publish 被剔除，活著的照樣收到
func TestHub_DeadSubscriberDropped(t *testing.T) {
	hub := NewHub()

	liveA := &fakeConn{}
	liveB := &fakeConn{}
	subA := NewSubscriber(liveA)
	subB := NewSubscriber(liveB)
	go subA.WritePump()
	go subB.WritePump()
	defer subA.Stop()
	defer subB.Stop()

	subDead := NewSubscriber(&fakeConn{})
	subDead.Stop()

	hub.Subscribe("general", subA)
	hub.Subscribe("general", subB)
	hub.Subscribe("general", subDead)

	hub.Publish("general", domain.Message{ID: "m1", Content: "hi"})

	waitForWrites(t, liveA, 1)
	waitForWrites(t, liveB, 1)
	assert.Equal(t, 2, hub.SubscriberCount("general"))
}

func TestSubscriber_SendAfterStop(t *testing.T) {
	sub := NewSubscriber(&fakeConn{})
	sub.Stop()
	sub.Stop()

	assert.False(t, sub.Send(domain.WSResponse{Action: "x"}))
}

// outbox 滿了 Send 要立刻回 false，不能卡住 caller
func TestSubscriber_SendNeverBlocks(t *testing.T) {
	sub := NewSubscriber(&fakeConn{})
	// 沒有 WritePump 在消化，塞到滿為止
	for i := 0; i < subscriberOutboxSize; i++ {
		assert.True(t, sub.Send(domain.WSResponse{Action: "x"}))
	}

	done := make(chan bool, 1)
	go func() {
		done <- sub.Send(domain.WSResponse{Action: "overflow"})
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full outbox")
	}
	sub.Stop()
}
