package bdd

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"pluto_chat_service/internal/chat/app"
	"pluto_chat_service/internal/chat/domain"
	"pluto_chat_service/pkg/logger"

	"github.com/cucumber/godog"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeChatScenario,
		Options: &godog.Options{
			Paths:  []string{"./featureFiles"}, // 指向 feature 檔相對路徑
			Format: "pretty",
			Output: os.Stdout,
		},
	}

	if suite.Run() != 0 {
		t.Fail()
	}
}

// === in-memory repository，BDD 不碰真的 mongo/redis ===

type bddRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room
}

func (r *bddRoomRepo) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (r *bddRoomRepo) FindAllByRoomIDIn(ctx context.Context, roomIDs []string) ([]*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Room{}
	for _, id := range roomIDs {
		if room, ok := r.rooms[id]; ok {
			cp := *room
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *bddRoomRepo) Save(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *room
	r.rooms[room.RoomID] = &cp
	return room, nil
}

type bddUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (r *bddUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

func (r *bddUserRepo) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.Username] = &cp
	return user, nil
}

type bddConn struct {
	mu     sync.Mutex
	writes []domain.WSResponse
}

func (c *bddConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v.(domain.WSResponse))
	return nil
}

func (c *bddConn) Close() error { return nil }

func (c *bddConn) received() []domain.WSResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.WSResponse{}, c.writes...)
}

// chatWorld 一個 scenario 一份乾淨的世界
type chatWorld struct {
	hub       *app.Hub
	roomUC    *app.RoomUseCase
	userUC    *app.UserUseCase
	historyUC *app.HistoryUseCase

	conns map[string]*bddConn
	subs  map[string]*app.Subscriber
}

var world *chatWorld

func resetWorld() {
	roomRepo := &bddRoomRepo{rooms: map[string]*domain.Room{}}
	userRepo := &bddUserRepo{users: map[string]*domain.User{}}

	hub := app.NewHub()
	world = &chatWorld{
		hub:       hub,
		roomUC:    app.NewRoomUseCase(roomRepo, nil, nil, hub),
		userUC:    app.NewUserUseCase(userRepo),
		historyUC: app.NewHistoryUseCase(roomRepo, nil),
		conns:     map[string]*bddConn{},
		subs:      map[string]*app.Subscriber{},
	}
}

func hasLoggedIn(username string) error {
	_, err := world.userUC.RegisterOrLogin(context.Background(), username)
	return err
}

func createsRoom(username, roomID string) error {
	ctx := context.Background()
	room, err := world.roomUC.CreateOrGetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if _, err := world.roomUC.JoinRoom(ctx, room.RoomID, username, app.ResolveStrict); err != nil {
		return err
	}
	_, err = world.userUC.AddRoomToUser(ctx, username, room.RoomID)
	return err
}

func joinsRoom(username, roomID string) error {
	ctx := context.Background()
	room, err := world.roomUC.JoinRoom(ctx, roomID, username, app.ResolveStrict)
	if err != nil {
		return err
	}
	_, err = world.userUC.AddRoomToUser(ctx, username, room.RoomID)
	return err
}

func isListeningToRoom(username, roomID string) error {
	conn := &bddConn{}
	sub := app.NewSubscriber(conn)
	go sub.WritePump()

	world.conns[username] = conn
	world.subs[username] = sub
	world.hub.Subscribe(roomID, sub)
	return nil
}

func sendsToRoom(username, content, roomID string) error {
	_, err := world.roomUC.AppendMessage(context.Background(), roomID, domain.Message{
		Sender:  username,
		Content: content,
	}, app.ResolveStrict)
	return err
}

func roomShouldHaveMembers(roomID, a, b string) error {
	room, err := world.roomUC.GetRoom(context.Background(), roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("room %q does not exist", roomID)
	}
	for _, want := range []string{a, b} {
		if !room.HasMember(want) {
			return fmt.Errorf("room %q is missing member %q", roomID, want)
		}
	}
	return nil
}

func roomShouldHaveMemberCount(roomID string, count int) error {
	room, err := world.roomUC.GetRoom(context.Background(), roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("room %q does not exist", roomID)
	}
	if len(room.Members) != count {
		return fmt.Errorf("expected %d members, got %v", count, room.Members)
	}
	return nil
}

func shouldReceive(username, content string) error {
	conn, ok := world.conns[username]
	if !ok {
		return fmt.Errorf("%q is not listening to any room", username)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, resp := range conn.received() {
			msg, ok := resp.Payload["message"].(domain.Message)
			if ok && msg.Content == content {
				return nil
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("%q never received %q", username, content)
}

func latestMessageShouldBe(roomID, content string) error {
	msgs, err := world.historyUC.GetMessages(context.Background(), roomID, 0, 20)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return fmt.Errorf("room %q has no messages", roomID)
	}
	if msgs[0].Content != content {
		return fmt.Errorf("latest message is %q, expected %q", msgs[0].Content, content)
	}
	return nil
}

// InitializeChatScenario 註冊 Gherkin 與 Step Definition 的對應
func InitializeChatScenario(s *godog.ScenarioContext) {
	s.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		resetWorld()
		return ctx, nil
	})
	s.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		for _, sub := range world.subs {
			sub.Stop()
		}
		return ctx, nil
	})

	s.Step(`^"([^"]*)" has logged in$`, hasLoggedIn)
	s.Step(`^"([^"]*)" creates room "([^"]*)"$`, createsRoom)
	s.Step(`^"([^"]*)" joins room "([^"]*)"$`, joinsRoom)
	s.Step(`^"([^"]*)" is listening to room "([^"]*)"$`, isListeningToRoom)
	s.Step(`^"([^"]*)" sends "([^"]*)" to room "([^"]*)"$`, sendsToRoom)
	s.Step(`^room "([^"]*)" should have members "([^"]*)" and "([^"]*)"$`, roomShouldHaveMembers)
	s.Step(`^room "([^"]*)" should have (\d+) member$`, roomShouldHaveMemberCount)
	s.Step(`^"([^"]*)" should receive "([^"]*)"$`, shouldReceive)
	s.Step(`^the latest message in room "([^"]*)" should be "([^"]*)"$`, latestMessageShouldBe)
}
