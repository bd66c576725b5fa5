package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/internal/chat/repository"
	"pluto_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolveMode decides how a missing room is handled by join/append.
type ResolveMode int

const (
	// ResolveStrict fail with ErrRoomNotFound when the room is absent
	ResolveStrict ResolveMode = iota
	// ResolveCreate create the room first when it is absent
	ResolveCreate
)

// Publisher delivers a committed message to the live subscribers of a room.
type Publisher interface {
	Publish(roomID string, msg domain.Message)
}

// RoomUseCase - 房間生命週期與訊息 append 的唯一序列化點。
// 同一個 normalized room id 的 create/join/append 互斥，不同房間完全並行。
// Publish 在房間臨界區內觸發，所以同房間的 append 順序就是廣播順序。
type RoomUseCase struct {
	roomRepo  repository.RoomRepository
	cache     repository.MessageCache   // optional
	archive   repository.MessageArchive // optional
	publisher Publisher                 // optional

	// normalized room id -> *sync.Mutex, created lazily
	locks sync.Map
}

// NewRoomUseCase init room use case. cache, archive and publisher may be nil.
func NewRoomUseCase(
	roomRepo repository.RoomRepository,
	cache repository.MessageCache,
	archive repository.MessageArchive,
	publisher Publisher,
) *RoomUseCase {
	return &RoomUseCase{
		roomRepo:  roomRepo,
		cache:     cache,
		archive:   archive,
		publisher: publisher,
	}
}

func (uc *RoomUseCase) lockRoom(roomID string) *sync.Mutex {
	m, _ := uc.locks.LoadOrStore(roomID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func normalizeRoomID(roomID string) (string, error) {
	id := domain.NormalizeRoomID(roomID)
	if id == "" {
		return "", fmt.Errorf("%w: room id is blank", domain.ErrValidation)
	}
	return id, nil
}

func normalizeUsername(username string) (string, error) {
	name := domain.NormalizeUsername(username)
	if name == "" {
		return "", fmt.Errorf("%w: username is blank", domain.ErrValidation)
	}
	return name, nil
}

// CreateOrGetRoom returns the room with that identity, creating it when absent.
// Safe under concurrent calls with the same normalized id: exactly one room is
// ever created per identity.
func (uc *RoomUseCase) CreateOrGetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}

	lock := uc.lockRoom(id)
	lock.Lock()
	defer lock.Unlock()

	return uc.createOrGetLocked(ctx, id)
}

// createOrGetLocked caller must hold the room lock
func (uc *RoomUseCase) createOrGetLocked(ctx context.Context, id string) (*domain.Room, error) {
	room, err := uc.roomRepo.FindByRoomID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}

	return uc.roomRepo.Save(ctx, &domain.Room{
		RoomID:   id,
		Members:  []string{},
		Messages: []domain.Message{},
	})
}

// CreateRoom explicit create, fails with ErrRoomExists when the identity is taken
func (uc *RoomUseCase) CreateRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}

	lock := uc.lockRoom(id)
	lock.Lock()
	defer lock.Unlock()

	existing, err := uc.roomRepo.FindByRoomID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrRoomExists
	}

	return uc.roomRepo.Save(ctx, &domain.Room{
		RoomID:   id,
		Members:  []string{},
		Messages: []domain.Message{},
	})
}

// JoinRoom adds username to the member set. Re-joining is a no-op, not an
// error, and performs no persistence write.
func (uc *RoomUseCase) JoinRoom(ctx context.Context, roomID, username string, mode ResolveMode) (*domain.Room, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}
	name, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}

	lock := uc.lockRoom(id)
	lock.Lock()
	defer lock.Unlock()

	room, err := uc.resolveLocked(ctx, id, mode)
	if err != nil {
		return nil, err
	}

	if room.HasMember(name) {
		return room, nil
	}

	// 只在 membership 真的改變時寫入；先複製再 Save，失敗不留半套狀態
	updated := *room
	updated.Members = append(append([]string{}, room.Members...), name)
	return uc.roomRepo.Save(ctx, &updated)
}

// AppendMessage appends to the room's log, persists, publishes to live
// subscribers and returns the updated room. This is the single serialization
// point per room for both the websocket and the HTTP transports.
func (uc *RoomUseCase) AppendMessage(ctx context.Context, roomID string, msg domain.Message, mode ResolveMode) (*domain.Room, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}
	if domain.NormalizeUsername(msg.Sender) == "" {
		return nil, fmt.Errorf("%w: message sender is blank", domain.ErrValidation)
	}

	lock := uc.lockRoom(id)
	lock.Lock()
	defer lock.Unlock()

	room, err := uc.resolveLocked(ctx, id, mode)
	if err != nil {
		return nil, err
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if !msg.HasTimestamp() {
		msg.Timestamp = time.Now()
		// server 指定的 timestamp 不可倒退
		if last := room.LastTimestamp(); msg.Timestamp.Before(last) {
			msg.Timestamp = last
		}
	}
	if msg.Type == "" {
		msg.Type = domain.MessageTypeText
	}

	updated := *room
	updated.Messages = append(append([]domain.Message{}, room.Messages...), msg)

	saved, err := uc.roomRepo.Save(ctx, &updated)
	if err != nil {
		return nil, err
	}

	uc.committed(ctx, id, msg)
	return saved, nil
}

// committed runs inside the room critical section so broadcast order matches
// append order for a room. Cache and archive are best-effort.
func (uc *RoomUseCase) committed(ctx context.Context, roomID string, msg domain.Message) {
	if uc.cache != nil {
		if err := uc.cache.Push(ctx, roomID, msg); err != nil {
			logger.Log.Warn("message cache push failed", zap.String("room_id", roomID), zap.Error(err))
		}
	}
	if uc.archive != nil {
		go func() {
			if err := uc.archive.Archive(context.Background(), roomID, msg); err != nil {
				logger.Log.Warn("message archive failed", zap.String("room_id", roomID), zap.Error(err))
			}
		}()
	}
	if uc.publisher != nil {
		uc.publisher.Publish(roomID, msg)
	}
}

// resolveLocked caller must hold the room lock
func (uc *RoomUseCase) resolveLocked(ctx context.Context, id string, mode ResolveMode) (*domain.Room, error) {
	if mode == ResolveCreate {
		return uc.createOrGetLocked(ctx, id)
	}

	room, err := uc.roomRepo.FindByRoomID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// GetRoom normalizes and looks up; returns (nil, nil) when absent, callers
// decide whether absence is a failure.
func (uc *RoomUseCase) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}
	return uc.roomRepo.FindByRoomID(ctx, id)
}

// GetRoomsByIDs returns the subset of rooms that exist; missing ids are
// silently omitted, duplicates are passed through.
func (uc *RoomUseCase) GetRoomsByIDs(ctx context.Context, roomIDs []string) ([]*domain.Room, error) {
	ids := make([]string, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		ids = append(ids, domain.NormalizeRoomID(roomID))
	}
	return uc.roomRepo.FindAllByRoomIDIn(ctx, ids)
}
