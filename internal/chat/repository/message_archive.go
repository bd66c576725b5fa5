package repository

import (
	"context"
	"encoding/json"

	"pluto_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// MessageArchive streams every committed append to an external topic for
// downstream consumers. Archiving is best-effort and never blocks an append.
type MessageArchive interface {
	Archive(ctx context.Context, roomID string, msg domain.Message) error
}

type archivedMessage struct {
	RoomID  string         `json:"room_id"`
	Message domain.Message `json:"message"`
}

type kafkaMessageArchive struct {
	writer *kafka.Writer
}

// NewKafkaMessageArchive create a MessageArchive over a kafka writer
func NewKafkaMessageArchive(writer *kafka.Writer) MessageArchive {
	return &kafkaMessageArchive{writer: writer}
}

// Archive publish one appended message, keyed by room so a room stays on one partition
func (a *kafkaMessageArchive) Archive(ctx context.Context, roomID string, msg domain.Message) error {
	data, err := json.Marshal(archivedMessage{RoomID: roomID, Message: msg})
	if err != nil {
		return err
	}

	return a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(roomID),
		Value: data,
	})
}
