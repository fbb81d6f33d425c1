package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/locolive/chat-engine/internal/domain"
	"github.com/locolive/chat-engine/internal/middleware"
	"github.com/locolive/chat-engine/pkg/response"
	"github.com/locolive/chat-engine/pkg/validator"
)

// CreateChatRequest is the unified create body: one other member makes a
// direct chat, more make a group.
type CreateChatRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members" validate:"required,min=1,dive,uuid"`
}

type CreateDirectChatRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type CreateGroupChatRequest struct {
	Name    string   `json:"name" validate:"required"`
	Members []string `json:"members" validate:"required,dive,uuid"`
}

type AddMembersRequest struct {
	Members []string `json:"members" validate:"required,dive,uuid"`
}

type RenameGroupRequest struct {
	Name string `json:"name" validate:"required"`
}

type ChatHandler struct {
	chatService *domain.ChatService
	wsManager   *WebSocketManager
	logger      *zap.Logger
}

func NewChatHandler(chatService *domain.ChatService, wsManager *WebSocketManager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		wsManager:   wsManager,
		logger:      logger,
	}
}

// HandleWebSocket upgrades HTTP connection to WebSocket
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.New(),
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		UserID: userID,
	}

	if !h.wsManager.Register(r.Context(), client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.wsManager)
}

// CreateChat creates a direct chat when the request names one other user and
// a group otherwise
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req CreateChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	members := parseIDs(req.Members)

	others := lo.Without(lo.Uniq(members), userID)
	if len(others) == 1 {
		chat, err := h.chatService.CreateDirectChat(r.Context(), userID, others[0])
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		response.OK(w, chat)
		return
	}

	chat, err := h.chatService.CreateGroupChat(r.Context(), userID, req.Name, members)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, chat)
}

// CreateDirectChat returns the direct chat with another user, creating it if needed
func (h *ChatHandler) CreateDirectChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req CreateDirectChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	chat, err := h.chatService.CreateDirectChat(r.Context(), userID, uuid.MustParse(req.UserID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, chat)
}

// CreateGroupChat creates a group owned by the caller
func (h *ChatHandler) CreateGroupChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req CreateGroupChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	chat, err := h.chatService.CreateGroupChat(r.Context(), userID, req.Name, parseIDs(req.Members))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, chat)
}

// GetChats returns list of user's chats
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	chats, err := h.chatService.ListChats(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, chats)
}

// GetCreatedGroups returns the groups created by the caller
func (h *ChatHandler) GetCreatedGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	groups, err := h.chatService.ListGroupChatsCreatedBy(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, groups)
}

// GetChat returns one chat with member profiles
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}

	chat, err := h.chatService.GetChat(r.Context(), chatID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, chat)
}

// RenameGroup changes the name of a group
func (h *ChatHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}

	var req RenameGroupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.chatService.RenameGroup(r.Context(), chatID, userID, req.Name); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

// DeleteChat deletes a chat
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}

	if err := h.chatService.DeleteChat(r.Context(), chatID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

// AddMembers adds users to a group
func (h *ChatHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}

	var req AddMembersRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.chatService.AddMembers(r.Context(), chatID, userID, parseIDs(req.Members)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

// RemoveMember removes a user from a group
func (h *ChatHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	if err := h.chatService.RemoveMember(r.Context(), chatID, userID, targetID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

// LeaveGroup removes the caller from a group
func (h *ChatHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}

	if err := h.chatService.LeaveGroup(r.Context(), chatID, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}
	if errs := validator.Struct(req); errs.HasErrors() {
		response.Validation(w, errs)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.BadRequest(w, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// parseIDs converts validated UUID strings
func parseIDs(raw []string) []uuid.UUID {
	return lo.Map(raw, func(s string, _ int) uuid.UUID {
		return uuid.MustParse(s)
	})
}
