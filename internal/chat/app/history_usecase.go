package app

import (
	"context"

	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/internal/chat/repository"
	"pluto_chat_service/pkg/logger"

	"go.uber.org/zap"
)

const (
	// DefaultPageSize messages per page when the caller does not say
	DefaultPageSize = 20
	// DefaultPage zero-based page index when the caller does not say
	DefaultPage = 0
)

// PageMessages pages a chronological log newest-first. Pure function, no
// mutation. Zero or negative page/size fall back to the defaults; windows
// beyond the log return an empty slice instead of failing.
func PageMessages(msgs []domain.Message, page, size int) []domain.Message {
	if page < 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}

	total := len(msgs)
	start := total - (page+1)*size
	end := total - page*size
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start >= end {
		return []domain.Message{}
	}

	// 反轉，最新的訊息排最前
	window := make([]domain.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		window = append(window, msgs[i])
	}
	return window
}

// HistoryUseCase reads a room's message log.
type HistoryUseCase struct {
	roomRepo repository.RoomRepository
	cache    repository.MessageCache // optional
}

// NewHistoryUseCase init history use case. cache may be nil.
func NewHistoryUseCase(roomRepo repository.RoomRepository, cache repository.MessageCache) *HistoryUseCase {
	return &HistoryUseCase{
		roomRepo: roomRepo,
		cache:    cache,
	}
}

// GetMessages paginated history for an existing room, newest-first
func (uc *HistoryUseCase) GetMessages(ctx context.Context, roomID string, page, size int) ([]domain.Message, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}

	room, err := uc.roomRepo.FindByRoomID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	return PageMessages(room.Messages, page, size), nil
}

// Recent newest-first recent messages, served from the cache when it can,
// falling back to the stored log
func (uc *HistoryUseCase) Recent(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		msgs, err := uc.cache.Recent(ctx, id, limit)
		if err == nil && len(msgs) > 0 {
			return msgs, nil
		}
		if err != nil {
			logger.Log.Warn("message cache read failed", zap.String("room_id", id), zap.Error(err))
		}
	}

	return uc.GetMessages(ctx, id, DefaultPage, limit)
}
