package app

import (
	"context"
	"encoding/json"
	"time"

	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/pkg/logger"
	"pluto_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler 聊天 WebSocket 的進入點，
// 把 inbound action 轉給各 UseCase，廣播統一走 RoomUseCase 的 commit 路徑
type ChatWebsocketHandler struct {
	roomUC    *RoomUseCase
	userUC    *UserUseCase
	historyUC *HistoryUseCase
	hub       *Hub
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	roomUC *RoomUseCase,
	userUC *UserUseCase,
	historyUC *HistoryUseCase,
	hub *Hub,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		roomUC:    roomUC,
		userUC:    userUC,
		historyUC: historyUC,
		hub:       hub,
	}
}

// HandleConnection 是 WebSocket 連線的進入點
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenUser := conn.Locals(middlewares.TokenUsername)
	username, ok := tokenUser.(string)
	if !ok || username == "" {
		logger.Log.Warn("websocket connection without username, closing")
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("username", username))

	sub := NewSubscriber(conn)
	go sub.WritePump()

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		cancel()
		// 斷線時清掉所有房間的訂閱
		h.hub.UnsubscribeAll(sub)
		sub.Stop()
		logger.Log.Info("websocket closed", zap.String("username", username))
		conn.Close()
	}()

	// client 發出 close，fiber 在 read msg 回傳 err 前先經過這裡
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, sub, username, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, sub *Subscriber, username string, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, sub, username, msg)
	default:
		h.sendError(sub, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, sub *Subscriber, username string, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		h.sendError(sub, "invalid request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {

	// 加入既有房間，房間不存在就失敗
	case string(domain.JoinRoom):
		room, err := h.roomUC.JoinRoom(ctx, req.RoomID, username, ResolveStrict)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		// 兩筆獨立寫入，member list 與 joined list 不保證同時成功
		if _, err := h.userUC.AddRoomToUser(ctx, username, room.RoomID); err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["room_id"] = room.RoomID
		resp.Payload["members"] = room.Members

	// 進入房間開始收廣播，並回帶最近的訊息
	case string(domain.EnterRoom):
		room, err := h.roomUC.GetRoom(ctx, req.RoomID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		if room == nil {
			resp.Error = domain.ErrRoomNotFound.Error()
			break
		}

		h.hub.Subscribe(room.RoomID, sub)

		recent, err := h.historyUC.Recent(ctx, room.RoomID, DefaultPageSize)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["room_id"] = room.RoomID
		resp.Payload["recent_messages"] = recent

	case string(domain.LeaveRoom):
		h.hub.Unsubscribe(req.RoomID, sub)
		resp.Success = true
		resp.Payload["room_id"] = req.RoomID

	// 訊息寫入後於同一臨界區內廣播給房間訂閱者
	case string(domain.SendMessage):
		m := domain.Message{
			Sender:  username,
			Content: req.Content,
			Type:    domain.MessageTypeText,
		}
		if req.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339, req.Timestamp)
			if err != nil {
				resp.Error = "invalid timestamp"
				break
			}
			m.Timestamp = ts
		}

		room, err := h.roomUC.AppendMessage(ctx, req.RoomID, m, ResolveCreate)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		stored := room.Messages[len(room.Messages)-1]
		resp.Success = true
		resp.Payload["message_id"] = stored.ID
		resp.Payload["timestamp"] = stored.Timestamp

	case string(domain.ListRooms):
		user, err := h.userUC.GetUserByUsername(ctx, username)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		joined := []string{}
		if user != nil {
			joined = user.JoinedRooms
		}
		rooms, err := h.roomUC.GetRoomsByIDs(ctx, joined)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		ids := make([]string, 0, len(rooms))
		for _, r := range rooms {
			ids = append(ids, r.RoomID)
		}
		resp.Success = true
		resp.Payload["rooms"] = ids

	default:
		h.sendError(sub, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err",
			zap.String("username", username),
			zap.String("action", req.Action),
			zap.String("err", resp.Error))
	}
	h.sendResponse(sub, resp)
}

// sendResponse 經過 subscriber outbox，避免多 goroutine 同時寫同一條連線
func (h *ChatWebsocketHandler) sendResponse(sub *Subscriber, resp domain.WSResponse) {
	if !sub.Send(resp) {
		logger.Log.Warn("websocket response dropped", zap.String("action", resp.Action))
	}
}

func (h *ChatWebsocketHandler) sendError(sub *Subscriber, errorMsg string) {
	h.sendResponse(sub, domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	})
}
