package domain

// Action websocket request action
type Action string

const (
	// JoinRoom websocket action join_room
	JoinRoom Action = "join_room"
	// EnterRoom websocket action enter_room
	EnterRoom Action = "enter_room"
	// LeaveRoom websocket action leave_room
	LeaveRoom Action = "leave_room"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ListRooms websocket action list_rooms
	ListRooms Action = "list_rooms"
	// NotifyMessage websocket action notify_message, server push
	NotifyMessage Action = "notify_message"
)

// WSRequest websocket Request.
// Timestamp is an ISO-8601 string and may be absent; the server assigns one on append.
type WSRequest struct {
	Action    string `json:"action"`
	RoomID    string `json:"room_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
