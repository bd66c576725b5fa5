package domain

import (
	"strings"
	"time"

	"pluto_chat_service/pkg"
)

// MessageType definition chat message type
type MessageType string

const (
	// MessageTypeText plain text message
	MessageTypeText MessageType = "TEXT"
	// MessageTypeImage hosted image message
	MessageTypeImage MessageType = "IMAGE"
)

// Message 表示一則聊天訊息，append 之後不可變
type Message struct {
	ID        string      `bson:"id" json:"id"`
	Sender    string      `bson:"sender" json:"sender"`
	Content   string      `bson:"content" json:"content"`
	Type      MessageType `bson:"type" json:"type"`
	MediaURL  string      `bson:"media_url,omitempty" json:"mediaUrl,omitempty"`
	FileName  string      `bson:"file_name,omitempty" json:"fileName,omitempty"`
	FileSize  *int64      `bson:"file_size,omitempty" json:"fileSize,omitempty"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}

// HasTimestamp reports whether the caller supplied a timestamp.
// 零值代表未帶 timestamp，由 server 在 append 時補上
func (m Message) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// Room definition a chat room aggregate.
// RoomID is the normalized room code and never changes after creation.
// Messages is append-only in chronological order; Members only grows.
type Room struct {
	RoomID   string    `bson:"_id" json:"roomId"`
	Members  []string  `bson:"members" json:"members"`
	Messages []Message `bson:"messages" json:"messages"`
}

// HasMember check username already in the member set
func (r *Room) HasMember(username string) bool {
	return pkg.Contains(r.Members, username)
}

// LastTimestamp returns the timestamp of the newest message, zero when the log is empty.
func (r *Room) LastTimestamp() time.Time {
	if len(r.Messages) == 0 {
		return time.Time{}
	}
	return r.Messages[len(r.Messages)-1].Timestamp
}

// User definition a chat user.
// Username is the normalized identity; JoinedRooms stores normalized room codes.
type User struct {
	Username    string   `bson:"_id" json:"username"`
	JoinedRooms []string `bson:"joined_rooms" json:"joinedRooms"`
}

// HasJoined check roomID already in the joined set
func (u *User) HasJoined(roomID string) bool {
	return pkg.Contains(u.JoinedRooms, roomID)
}

// NormalizeRoomID trim and case-fold a room code into its unique identity
func NormalizeRoomID(roomID string) string {
	return strings.ToLower(strings.TrimSpace(roomID))
}

// NormalizeUsername trim and case-fold a username into its unique identity
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
