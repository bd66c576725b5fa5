package app

import (
	"errors"
	"io"
	"time"

	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/pkg/logger"
	"pluto_chat_service/pkg/middlewares"
	"pluto_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler REST 的入口，房間 / 歷史 / 相片上傳 / 使用者
type ChatHTTPHandler struct {
	roomUC    *RoomUseCase
	userUC    *UserUseCase
	historyUC *HistoryUseCase
	uploadUC  *PhotoUploadUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(
	roomUC *RoomUseCase,
	userUC *UserUseCase,
	historyUC *HistoryUseCase,
	uploadUC *PhotoUploadUseCase,
) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		roomUC:    roomUC,
		userUC:    userUC,
		historyUC: historyUC,
		uploadUC:  uploadUC,
	}
}

type createRoomRequest struct {
	RoomID string `json:"room_id"`
}

type appendMessageRequest struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type loginRequest struct {
	Username string `json:"username"`
}

// Login 無密碼登入，第一次呼叫即註冊
func (h *ChatHTTPHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.userUC.RegisterOrLogin(c.Context(), req.Username)
	if err != nil {
		return respondUseCaseError(c, err)
	}

	jwt, err := token.GenerateJWT(user.Username, "chat_service")
	if err != nil {
		logger.Log.Error("generate jwt failed", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "internal error")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieToken,
		Value:    jwt,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"username":     user.Username,
		"joined_rooms": user.JoinedRooms,
		"token":        jwt,
	})
}

// CreateOrJoinRoom 建立或取回房間，並把呼叫者加入成員
func (h *ChatHTTPHandler) CreateOrJoinRoom(c *fiber.Ctx) error {
	username := c.Locals(middlewares.TokenUsername).(string)

	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.roomUC.CreateOrGetRoom(c.Context(), req.RoomID)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	room, err = h.roomUC.JoinRoom(c.Context(), room.RoomID, username, ResolveStrict)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	if _, err := h.userUC.AddRoomToUser(c.Context(), username, room.RoomID); err != nil {
		return respondUseCaseError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(room)
}

// CreateRoom 嚴格建立，同名房間回 409，建立者直接成為成員
func (h *ChatHTTPHandler) CreateRoom(c *fiber.Ctx) error {
	username := c.Locals(middlewares.TokenUsername).(string)

	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.roomUC.CreateRoom(c.Context(), req.RoomID)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	room, err = h.roomUC.JoinRoom(c.Context(), room.RoomID, username, ResolveStrict)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	if _, err := h.userUC.AddRoomToUser(c.Context(), username, room.RoomID); err != nil {
		return respondUseCaseError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// JoinRoom 嚴格加入，房間不存在回 404
func (h *ChatHTTPHandler) JoinRoom(c *fiber.Ctx) error {
	username := c.Locals(middlewares.TokenUsername).(string)

	var req createRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.roomUC.JoinRoom(c.Context(), req.RoomID, username, ResolveStrict)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	if _, err := h.userUC.AddRoomToUser(c.Context(), username, room.RoomID); err != nil {
		return respondUseCaseError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(room)
}

// GetRoom get single room by id
func (h *ChatHTTPHandler) GetRoom(c *fiber.Ctx) error {
	room, err := h.roomUC.GetRoom(c.Context(), c.Params("roomId"))
	if err != nil {
		return respondUseCaseError(c, err)
	}
	if room == nil {
		return respondError(c, fiber.StatusNotFound, domain.ErrRoomNotFound.Error())
	}
	return c.Status(fiber.StatusOK).JSON(room)
}

// GetMessages 分頁取歷史訊息，新的在前
func (h *ChatHTTPHandler) GetMessages(c *fiber.Ctx) error {
	page := c.QueryInt("page", DefaultPage)
	size := c.QueryInt("size", DefaultPageSize)

	msgs, err := h.historyUC.GetMessages(c.Context(), c.Params("roomId"), page, size)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"room_id":  domain.NormalizeRoomID(c.Params("roomId")),
		"page":     page,
		"size":     size,
		"messages": msgs,
	})
}

// AppendMessage HTTP 補發訊息，房間不存在時自動建立
func (h *ChatHTTPHandler) AppendMessage(c *fiber.Ctx) error {
	username := c.Locals(middlewares.TokenUsername).(string)

	var req appendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "invalid request body")
	}

	msg := domain.Message{
		Sender:  username,
		Content: req.Content,
		Type:    domain.MessageTypeText,
	}
	if req.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return respondError(c, fiber.StatusBadRequest, "invalid timestamp")
		}
		msg.Timestamp = ts
	}

	room, err := h.roomUC.AppendMessage(c.Context(), c.Params("roomId"), msg, ResolveCreate)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	stored := room.Messages[len(room.Messages)-1]
	return c.Status(fiber.StatusCreated).JSON(stored)
}

// UploadPhoto multipart 上傳相片，成功後以 IMAGE 訊息進房間
func (h *ChatHTTPHandler) UploadPhoto(c *fiber.Ctx) error {
	username := c.Locals(middlewares.TokenUsername).(string)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "missing file")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "unreadable file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "unreadable file")
	}

	msg, err := h.uploadUC.Execute(c.Context(), c.Params("roomId"), username, fileHeader.Filename, data)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetUserRooms 列出使用者已加入的房間
func (h *ChatHTTPHandler) GetUserRooms(c *fiber.Ctx) error {
	user, err := h.userUC.GetUserByUsername(c.Context(), c.Params("username"))
	if err != nil {
		return respondUseCaseError(c, err)
	}
	if user == nil {
		return respondError(c, fiber.StatusNotFound, domain.ErrUserNotFound.Error())
	}

	rooms, err := h.roomUC.GetRoomsByIDs(c.Context(), user.JoinedRooms)
	if err != nil {
		return respondUseCaseError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"username": user.Username,
		"rooms":    rooms,
	})
}

func respondError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// respondUseCaseError 把 domain sentinel 映射成 HTTP status
func respondUseCaseError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return respondError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		return respondError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		return respondError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrRoomExists):
		return respondError(c, fiber.StatusConflict, err.Error())
	default:
		logger.Log.Error("request failed", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, "internal error")
	}
}
