package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/locolive/chat-engine/internal/api"
	"github.com/locolive/chat-engine/internal/auth"
	"github.com/locolive/chat-engine/internal/domain"
	"github.com/locolive/chat-engine/internal/repository"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type testServer struct {
	server *httptest.Server
	repo   *repository.BadgerRepository
	jwt    *auth.JWTManager
	ws     *api.WebSocketManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := repository.OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewBadgerRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	// Session goroutines outlive the test; keep them off the test logger.
	wsManager := api.NewWebSocketManager(zap.NewNop())
	go wsManager.Run(ctx)

	notifications := domain.NewNotificationService(wsManager, nil, time.Second, logger)
	chatService := domain.NewChatService(repo, repo, notifications, nil, 3, logger)
	profileService := domain.NewProfileService(repo, repo, nil, logger)
	jwtManager := auth.NewJWTManager("test-secret", time.Minute)

	router := api.NewRouter(
		api.NewChatHandler(chatService, wsManager, logger),
		api.NewProfileHandler(profileService, logger),
		api.NewHealthHandler(map[string]api.Pinger{"store": repo}, logger),
		jwtManager,
		nil,
		logger,
	)
	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)

	return &testServer{server: server, repo: repo, jwt: jwtManager, ws: wsManager}
}

func (s *testServer) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, s.repo.UpsertUser(context.Background(), domain.Profile{ID: id, Name: name}))
	return id
}

func (s *testServer) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := s.jwt.GenerateAccessToken(userID)
	require.NoError(t, err)
	return token
}

// do sends an authenticated request as userID; uuid.Nil sends none.
func (s *testServer) do(t *testing.T, userID uuid.UUID, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	r, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	r.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		r.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}

	resp, err := s.server.Client().Do(r)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (s *testServer) createGroup(t *testing.T, creator uuid.UUID, name string, members ...uuid.UUID) uuid.UUID {
	t.Helper()
	status, env := s.do(t, creator, http.MethodPost, "/api/v1/chats/group", map[string]interface{}{
		"name":    name,
		"members": members,
	})
	require.Equal(t, http.StatusCreated, status)

	var chat domain.ChatDetails
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	return chat.ID
}

func TestChatAPI_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, uuid.Nil, http.MethodGet, "/api/v1/chats", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)

	r, err := http.NewRequest(http.MethodGet, s.server.URL+"/api/v1/chats", nil)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := s.server.Client().Do(r)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatAPI_GroupLifecycle(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	alice, bob, carol, dave := s.user(t, "alice"), s.user(t, "bob"), s.user(t, "carol"), s.user(t, "dave")

	chatID := s.createGroup(t, alice, "Team", bob, carol)

	status, env := s.do(t, bob, http.MethodGet, "/api/v1/chats/"+chatID.String(), nil)
	req.Equal(http.StatusOK, status)
	var chat domain.ChatDetails
	req.NoError(json.Unmarshal(env.Data, &chat))
	req.Equal("Team", chat.Name)
	req.Len(chat.Members, 3)

	status, _ = s.do(t, alice, http.MethodPut, "/api/v1/chats/"+chatID.String()+"/members",
		map[string]interface{}{"members": []uuid.UUID{dave}})
	req.Equal(http.StatusNoContent, status)

	status, _ = s.do(t, alice, http.MethodPatch, "/api/v1/chats/"+chatID.String(),
		map[string]string{"name": "Core"})
	req.Equal(http.StatusNoContent, status)

	status, _ = s.do(t, alice, http.MethodDelete, "/api/v1/chats/"+chatID.String()+"/members/"+dave.String(), nil)
	req.Equal(http.StatusNoContent, status)

	status, env = s.do(t, alice, http.MethodGet, "/api/v1/chats/groups", nil)
	req.Equal(http.StatusOK, status)
	var groups []domain.GroupSummary
	req.NoError(json.Unmarshal(env.Data, &groups))
	req.Len(groups, 1)
	req.Equal("Core", groups[0].Name)

	status, env = s.do(t, carol, http.MethodGet, "/api/v1/chats", nil)
	req.Equal(http.StatusOK, status)
	var chats []domain.ChatSummary
	req.NoError(json.Unmarshal(env.Data, &chats))
	req.Len(chats, 1)

	// Leaving a three-member group dissolves it
	status, _ = s.do(t, carol, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/leave", nil)
	req.Equal(http.StatusNoContent, status)

	status, env = s.do(t, alice, http.MethodGet, "/api/v1/chats/"+chatID.String(), nil)
	req.Equal(http.StatusNotFound, status)
	req.Equal("NOT_FOUND", env.Error.Code)
}

func TestChatAPI_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	alice, bob, carol := s.user(t, "alice"), s.user(t, "bob"), s.user(t, "carol")
	chatID := s.createGroup(t, alice, "Team", bob, carol)
	chatPath := "/api/v1/chats/" + chatID.String()

	status, direct := s.do(t, alice, http.MethodPost, "/api/v1/chats/direct", map[string]uuid.UUID{"user_id": bob})
	require.Equal(t, http.StatusOK, status)
	var directChat domain.ChatDetails
	require.NoError(t, json.Unmarshal(direct.Data, &directChat))

	tests := []struct {
		name   string
		user   uuid.UUID
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{
			name: "non-creator add", user: bob, method: http.MethodPut, path: chatPath + "/members",
			body: map[string]interface{}{"members": []uuid.UUID{uuid.New()}}, status: http.StatusForbidden, code: "NOT_AUTHORIZED",
		},
		{
			name: "remove below the floor", user: alice, method: http.MethodDelete, path: chatPath + "/members/" + bob.String(),
			status: http.StatusUnprocessableEntity, code: "INVARIANT_VIOLATION",
		},
		{
			name: "rename a direct chat", user: alice, method: http.MethodPatch, path: "/api/v1/chats/" + directChat.ID.String(),
			body: map[string]string{"name": "x"}, status: http.StatusConflict, code: "INVALID_STATE",
		},
		{
			name: "direct chat with yourself", user: alice, method: http.MethodPost, path: "/api/v1/chats/direct",
			body: map[string]uuid.UUID{"user_id": alice}, status: http.StatusBadRequest, code: "INVALID_ARGUMENT",
		},
		{
			name: "unknown chat", user: alice, method: http.MethodGet, path: "/api/v1/chats/" + uuid.NewString(),
			status: http.StatusNotFound, code: "NOT_FOUND",
		},
		{
			name: "malformed chat id", user: alice, method: http.MethodGet, path: "/api/v1/chats/not-a-uuid",
			status: http.StatusBadRequest, code: "INVALID_ARGUMENT",
		},
		{
			name: "validation failure", user: alice, method: http.MethodPost, path: "/api/v1/chats/group",
			body: map[string]interface{}{"name": "", "members": []string{"nope"}}, status: http.StatusBadRequest, code: "INVALID_ARGUMENT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, tt.user, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			require.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestChatAPI_TooManyMembers(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice")
	members := make([]uuid.UUID, domain.MaxChatMembers)
	for i := range members {
		members[i] = s.user(t, "member")
	}

	status, env := s.do(t, alice, http.MethodPost, "/api/v1/chats/group", map[string]interface{}{
		"name":    "Big",
		"members": members,
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, status)
	require.Equal(t, "LIMIT_EXCEEDED", env.Error.Code)
}

func TestChatAPI_UnifiedCreate(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	alice, bob, carol := s.user(t, "alice"), s.user(t, "bob"), s.user(t, "carol")

	// One other member makes a direct chat, idempotently
	status, first := s.do(t, alice, http.MethodPost, "/api/v1/chats", map[string]interface{}{"members": []uuid.UUID{bob}})
	req.Equal(http.StatusOK, status)
	status, second := s.do(t, bob, http.MethodPost, "/api/v1/chats", map[string]interface{}{"members": []uuid.UUID{alice, bob}})
	req.Equal(http.StatusOK, status)
	req.JSONEq(string(first.Data), string(second.Data))

	status, env := s.do(t, alice, http.MethodPost, "/api/v1/chats", map[string]interface{}{
		"name":    "Team",
		"members": []uuid.UUID{bob, carol},
	})
	req.Equal(http.StatusCreated, status)
	var chat domain.ChatDetails
	req.NoError(json.Unmarshal(env.Data, &chat))
	req.True(chat.IsGroup)
}

func TestChatAPI_WebSocketReceivesNotifications(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	alice, bob, carol := s.user(t, "alice"), s.user(t, "bob"), s.user(t, "carol")

	wsURL := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/v1/ws?access_token=" + s.token(t, bob)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	req.NoError(err)
	resp.Body.Close()
	defer conn.Close()

	req.Eventually(func() bool { return s.ws.SessionCount(bob) == 1 }, 2*time.Second, 10*time.Millisecond)

	chatID := s.createGroup(t, alice, "Team", bob, carol)

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var kinds []string
	for i := 0; i < 2; i++ {
		var msg struct {
			Type    string `json:"type"`
			Payload struct {
				ChatID  uuid.UUID `json:"chat_id"`
				Message string    `json:"message"`
			} `json:"payload"`
		}
		req.NoError(conn.ReadJSON(&msg))
		req.Equal(chatID, msg.Payload.ChatID)
		kinds = append(kinds, msg.Type)
	}
	req.ElementsMatch([]string{"ALERT", "CHAT_LIST_REFRESH"}, kinds)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		resp, err := s.server.Client().Get(s.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
