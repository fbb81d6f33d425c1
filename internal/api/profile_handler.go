package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/locolive/chat-engine/internal/domain"
	"github.com/locolive/chat-engine/internal/middleware"
	"github.com/locolive/chat-engine/pkg/response"
)

type UpdateProfileRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

type ProfileHandler struct {
	profileService *domain.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService *domain.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// GetMe returns the caller's profile
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, profile)
}

// UpdateMe publishes the caller's name and avatar so others can add them to chats
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.profileService.UpdateProfile(r.Context(), userID, req.Name, req.AvatarURL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.OK(w, profile)
}
