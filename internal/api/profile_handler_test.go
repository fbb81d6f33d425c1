package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/locolive/chat-engine/internal/domain"
)

func TestProfileAPI_OnboardsUsers(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	// Nobody is in the directory yet
	status, env := s.do(t, alice, http.MethodGet, "/api/v1/users/me", nil)
	req.Equal(http.StatusNotFound, status)
	req.Equal("NOT_FOUND", env.Error.Code)

	status, _ = s.do(t, alice, http.MethodPost, "/api/v1/chats/group", map[string]interface{}{
		"name": "Team", "members": []uuid.UUID{bob, carol},
	})
	req.Equal(http.StatusNotFound, status)

	// Each user publishes a profile with nothing but their own token
	for id, name := range map[uuid.UUID]string{alice: "alice", bob: "bob", carol: "carol"} {
		status, env := s.do(t, id, http.MethodPut, "/api/v1/users/me", map[string]string{
			"name":       name,
			"avatar_url": "https://cdn.example.com/" + name + ".png",
		})
		req.Equal(http.StatusOK, status)

		var profile domain.Profile
		req.NoError(json.Unmarshal(env.Data, &profile))
		req.Equal(id, profile.ID)
		req.Equal(name, profile.Name)
	}

	// Then they can be put in a group
	chatID := s.createGroup(t, alice, "Team", bob, carol)

	status, env = s.do(t, carol, http.MethodGet, "/api/v1/chats/"+chatID.String(), nil)
	req.Equal(http.StatusOK, status)
	var chat domain.ChatDetails
	req.NoError(json.Unmarshal(env.Data, &chat))
	req.Len(chat.Members, 3)

	// A rename shows up on the next read
	status, _ = s.do(t, bob, http.MethodPut, "/api/v1/users/me", map[string]string{"name": "Bobby"})
	req.Equal(http.StatusOK, status)
	status, env = s.do(t, bob, http.MethodGet, "/api/v1/users/me", nil)
	req.Equal(http.StatusOK, status)
	var me domain.Profile
	req.NoError(json.Unmarshal(env.Data, &me))
	req.Equal("Bobby", me.Name)
	req.Empty(me.AvatarURL)
}

func TestProfileAPI_Validation(t *testing.T) {
	s := newTestServer(t)
	alice := uuid.New()

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing name", body: map[string]string{"avatar_url": "https://cdn.example.com/a.png"}},
		{name: "bad avatar url", body: map[string]string{"name": "alice", "avatar_url": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, alice, http.MethodPut, "/api/v1/users/me", tt.body)
			require.Equal(t, http.StatusBadRequest, status)
			require.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
		})
	}

	status, _ := s.do(t, uuid.Nil, http.MethodPut, "/api/v1/users/me", map[string]string{"name": "alice"})
	require.Equal(t, http.StatusUnauthorized, status)
}
