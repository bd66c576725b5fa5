package app

import (
	"context"
	"fmt"

	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/internal/chat/repository"
	"pluto_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PhotoUploadUseCase 圖片上傳：先丟到外部 image host 拿回 URL，
// 再走跟文字訊息同一條 append→publish 路徑，同房間文字與圖片順序才會一致。
type PhotoUploadUseCase struct {
	roomUC *RoomUseCase
	host   repository.ImageHost
}

// NewPhotoUploadUseCase init photo upload use case
func NewPhotoUploadUseCase(roomUC *RoomUseCase, host repository.ImageHost) *PhotoUploadUseCase {
	return &PhotoUploadUseCase{
		roomUC: roomUC,
		host:   host,
	}
}

// Execute uploads the file, then appends an IMAGE message to an existing room.
// Upload failures surface to the caller; there is no retry here.
func (uc *PhotoUploadUseCase) Execute(ctx context.Context, roomID, sender, fileName string, data []byte) (*domain.Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", domain.ErrValidation)
	}

	room, err := uc.roomUC.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	url, err := uc.host.Upload(ctx, fileName, data)
	if err != nil {
		logger.Log.Error("image upload failed", zap.String("room_id", room.RoomID), zap.Error(err))
		return nil, fmt.Errorf("image upload failed: %w", err)
	}

	size := int64(len(data))
	msg := domain.Message{
		Sender:   sender,
		Content:  "Photo",
		Type:     domain.MessageTypeImage,
		MediaURL: url,
		FileName: fileName,
		FileSize: &size,
	}

	updated, err := uc.roomUC.AppendMessage(ctx, room.RoomID, msg, ResolveStrict)
	if err != nil {
		return nil, err
	}

	stored := updated.Messages[len(updated.Messages)-1]
	return &stored, nil
}
