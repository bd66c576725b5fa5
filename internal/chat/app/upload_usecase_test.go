package app

import (
	"context"
	"errors"
	"testing"

	"pluto_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPhotoUpload_AppendsImageMessage(t *testing.T) {
	ctx := context.Background()
	repo := newMemRoomRepository()
	pub := &recordingPublisher{}
	roomUC := NewRoomUseCase(repo, nil, nil, pub)

	_, err := roomUC.CreateOrGetRoom(ctx, "general")
	assert.NoError(t, err)

	host := new(mockImageHost)
	data := []byte("fake-png-bytes")
	host.On("Upload", ctx, "cat.png", data).Return("https://img.example/cat.png", nil)

	uc := NewPhotoUploadUseCase(roomUC, host)
	msg, err := uc.Execute(ctx, " General ", "alice", "cat.png", data)
	assert.NoError(t, err)

	assert.Equal(t, domain.MessageTypeImage, msg.Type)
	assert.Equal(t, "Photo", msg.Content)
	assert.Equal(t, "https://img.example/cat.png", msg.MediaURL)
	assert.Equal(t, "cat.png", msg.FileName)
	if assert.NotNil(t, msg.FileSize) {
		assert.Equal(t, int64(len(data)), *msg.FileSize)
	}

	// 圖片訊息跟文字訊息走同一條 publish 路徑
	events := pub.published()
	assert.Len(t, events, 1)
	assert.Equal(t, msg.ID, events[0].msg.ID)
	host.AssertExpectations(t)
}

func TestPhotoUpload_MissingRoom(t *testing.T) {
	ctx := context.Background()
	roomUC := NewRoomUseCase(newMemRoomRepository(), nil, nil, nil)
	host := new(mockImageHost)

	uc := NewPhotoUploadUseCase(roomUC, host)
	_, err := uc.Execute(ctx, "ghost", "alice", "cat.png", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	host.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestPhotoUpload_EmptyFile(t *testing.T) {
	ctx := context.Background()
	roomUC := NewRoomUseCase(newMemRoomRepository(), nil, nil, nil)

	uc := NewPhotoUploadUseCase(roomUC, new(mockImageHost))
	_, err := uc.Execute(ctx, "general", "alice", "cat.png", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPhotoUpload_HostFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemRoomRepository()
	roomUC := NewRoomUseCase(repo, nil, nil, nil)

	_, err := roomUC.CreateOrGetRoom(ctx, "general")
	assert.NoError(t, err)

	host := new(mockImageHost)
	host.On("Upload", ctx, "cat.png", mock.Anything).Return("", errors.New("host down"))

	uc := NewPhotoUploadUseCase(roomUC, host)
	_, err = uc.Execute(ctx, "general", "alice", "cat.png", []byte("x"))
	assert.Error(t, err)

	// 上傳失敗不該留下任何訊息
	room, err := roomUC.GetRoom(ctx, "general")
	assert.NoError(t, err)
	assert.Empty(t, room.Messages)
}
