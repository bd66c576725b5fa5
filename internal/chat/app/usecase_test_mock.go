package app

import (
	"context"
	"errors"
	"sync"

	"pluto_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

var errSaveFailed = errors.New("save failed")

// === 以下為測試用的 in-memory repository 與 mock ===

// memRoomRepository 行為等同 mongo 版，另外記錄 Save 次數方便驗證
// idempotent 操作沒有多寫
type memRoomRepository struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room

	saves    int
	failSave bool
}

func newMemRoomRepository() *memRoomRepository {
	return &memRoomRepository{rooms: map[string]*domain.Room{}}
}

func (r *memRoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (r *memRoomRepository) FindAllByRoomIDIn(ctx context.Context, roomIDs []string) ([]*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Room{}
	for _, id := range roomIDs {
		if room, ok := r.rooms[id]; ok {
			cp := *room
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRoomRepository) Save(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failSave {
		return nil, errSaveFailed
	}
	cp := *room
	r.rooms[room.RoomID] = &cp
	r.saves++
	return room, nil
}

func (r *memRoomRepository) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

type memUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
	saves int
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: map[string]*domain.User{}}
}

func (r *memUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (r *memUserRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *user
	r.users[user.Username] = &cp
	r.saves++
	return user, nil
}

// recordingPublisher 記錄 publish 的順序
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	roomID string
	msg    domain.Message
}

func (p *recordingPublisher) Publish(roomID string, msg domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{roomID: roomID, msg: msg})
}

func (p *recordingPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent{}, p.events...)
}

type mockMessageCache struct {
	mock.Mock
}

func (m *mockMessageCache) Push(ctx context.Context, roomID string, msg domain.Message) error {
	args := m.Called(ctx, roomID, msg)
	return args.Error(0)
}

func (m *mockMessageCache) Recent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

type mockImageHost struct {
	mock.Mock
}

func (m *mockImageHost) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, fileName, data)
	return args.String(0), args.Error(1)
}

// fakeConn 收集 WriteJSON 的輸出給 hub 測試用
type fakeConn struct {
	mu     sync.Mutex
	writes []domain.WSResponse
	closed bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(domain.WSResponse))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) written() []domain.WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.WSResponse{}, c.writes...)
}
