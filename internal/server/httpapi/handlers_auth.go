package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/schema"
	"github.com/dmitrijs2005/taskmate/internal/server/services"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        snapshot.FormatID(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

type sessionResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type loginRequest struct {
	Credential string `json:"credential"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req loginRequest
	if err := s.deps.Validator.Decode(schema.KindLogin, body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.deps.Accounts.Login(r.Context(), req.Credential)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, session)
}

// handleRefresh reissues a token for the caller of a still valid one.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := s.deps.Extractor.Extract(r)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: missing token", common.ErrUnauthenticated))
		return
	}

	session, err := s.deps.Accounts.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, session)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearTokenCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Accounts.Me(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]userResponse{"user": toUserResponse(user)})
}

func (s *Server) writeSession(w http.ResponseWriter, session *services.Session) {
	s.setTokenCookie(w, session.Token.Token, session.Token.ExpiresAt)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:      toUserResponse(session.User),
		Token:     session.Token.Token,
		ExpiresAt: session.Token.ExpiresAt,
	})
}
