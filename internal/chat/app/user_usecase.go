package app

import (
	"context"

	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/internal/chat/repository"
)

// UserUseCase 使用者登入與已加入房間清單。
// Room.Members 與 User.JoinedRooms 是兩筆獨立寫入，不保證同時成功，
// 這是沿用的最終一致行為，不在這裡補交易。
type UserUseCase struct {
	userRepo repository.UserRepository
}

// NewUserUseCase init user use case
func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{userRepo: userRepo}
}

// RegisterOrLogin returns the user with that username, creating it on first
// login. Idempotent.
func (uc *UserUseCase) RegisterOrLogin(ctx context.Context, username string) (*domain.User, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}

	user, err := uc.userRepo.FindByUsername(ctx, name)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	return uc.userRepo.Save(ctx, &domain.User{
		Username:    name,
		JoinedRooms: []string{},
	})
}

// AddRoomToUser records a joined room on the user; re-adding is a no-op and
// performs no persistence write
func (uc *UserUseCase) AddRoomToUser(ctx context.Context, username, roomID string) (*domain.User, error) {
	id, err := normalizeRoomID(roomID)
	if err != nil {
		return nil, err
	}

	user, err := uc.RegisterOrLogin(ctx, username)
	if err != nil {
		return nil, err
	}

	if user.HasJoined(id) {
		return user, nil
	}

	updated := *user
	updated.JoinedRooms = append(append([]string{}, user.JoinedRooms...), id)
	return uc.userRepo.Save(ctx, &updated)
}

// GetUserByUsername normalizes and looks up; (nil, nil) when absent
func (uc *UserUseCase) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	name, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return uc.userRepo.FindByUsername(ctx, name)
}
