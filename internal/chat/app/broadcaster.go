package app

import (
	"sync"

	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const subscriberOutboxSize = 256

// WSConn is what the hub needs from a transport connection.
type WSConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Subscriber 一條訂閱中的連線。每條連線有自己的 outbox 與 WritePump，
// 慢的連線只會塞滿自己的 outbox，不會擋到同房間其他人。
type Subscriber struct {
	conn WSConn
	send chan domain.WSResponse
	done chan struct{}
	stop sync.Once
}

// NewSubscriber wrap a live connection with a bounded outbox
func NewSubscriber(conn WSConn) *Subscriber {
	return &Subscriber{
		conn: conn,
		send: make(chan domain.WSResponse, subscriberOutboxSize),
		done: make(chan struct{}),
	}
}

// WritePump drains the outbox onto the connection; run it in its own goroutine.
// Returns when the subscriber is stopped or the connection write fails.
func (s *Subscriber) WritePump() {
	for {
		select {
		case resp := <-s.send:
			if err := s.conn.WriteJSON(resp); err != nil {
				logger.Log.Warn("subscriber write failed", zap.Error(err))
				s.Stop()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Stop marks the subscriber dead; idempotent
func (s *Subscriber) Stop() {
	s.stop.Do(func() {
		close(s.done)
	})
}

// Send queues one response without ever blocking the caller; false when the
// outbox is full or the subscriber already stopped
func (s *Subscriber) Send(resp domain.WSResponse) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- resp:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// Hub maintains per-room sets of live subscribers and fans committed messages
// out to them. Registry mutation is independent from the per-room write lock.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

// NewHub create an empty hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe register a subscriber under a room; idempotent
func (h *Hub) Subscribe(roomID string, sub *Subscriber) {
	id := domain.NormalizeRoomID(roomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[id] == nil {
		h.rooms[id] = make(map[*Subscriber]struct{})
	}
	h.rooms[id][sub] = struct{}{}
}

// Unsubscribe remove one registration; no-op when it was never registered
func (h *Hub) Unsubscribe(roomID string, sub *Subscriber) {
	id := domain.NormalizeRoomID(roomID)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(id, sub)
}

// UnsubscribeAll remove a subscriber from every room; called on disconnect
func (h *Hub) UnsubscribeAll(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id := range h.rooms {
		h.removeLocked(id, sub)
	}
}

func (h *Hub) removeLocked(roomID string, sub *Subscriber) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SubscriberCount current number of live registrations for a room
func (h *Hub) SubscriberCount(roomID string) int {
	id := domain.NormalizeRoomID(roomID)

	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[id])
}

// Publish offer msg to every subscriber of the room at the moment of the call.
// Delivery is best-effort, at most once per subscriber: a full outbox or a dead
// connection drops that subscriber and never blocks the rest.
func (h *Hub) Publish(roomID string, msg domain.Message) {
	id := domain.NormalizeRoomID(roomID)

	resp := domain.WSResponse{
		Action:  string(domain.NotifyMessage),
		Success: true,
		Payload: map[string]interface{}{
			"room_id": id,
			"message": msg,
		},
	}

	// copy-on-iterate，publish 不會看到改到一半的訂閱表
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.rooms[id]))
	for sub := range h.rooms[id] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if !sub.Send(resp) {
			logger.Log.Warn("dropping slow subscriber", zap.String("room_id", id))
			sub.Stop()
			h.UnsubscribeAll(sub)
		}
	}
}
