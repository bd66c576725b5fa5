package domain

import "errors"

// 可預期的錯誤，由呼叫端決定如何回報
var (
	// ErrRoomNotFound strict join/append against a room that does not exist
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists explicit create against a room that already exists
	ErrRoomExists = errors.New("room already exists")
	// ErrValidation blank room id or username after trimming
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound lookup against a user that never logged in
	ErrUserNotFound = errors.New("user not found")
)
