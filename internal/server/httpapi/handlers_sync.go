package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/schema"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
)

type uploadResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Tasks         int    `json:"tasks"`
	Conversations int    `json:"conversations"`
	Messages      int    `json:"messages"`
}

type preferencesBody struct {
	Preferences models.Preferences `json:"preferences"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var snap snapshot.Snapshot
	if err := s.deps.Validator.Decode(schema.KindSnapshot, body, &snap); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.deps.Sync.Upload(r.Context(), claimsFrom(r.Context()).UserID, &snap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:       true,
		Message:       fmt.Sprintf("synced %d tasks and %d conversations", res.Tasks, res.Conversations),
		Tasks:         res.Tasks,
		Conversations: res.Conversations,
		Messages:      res.Messages,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Sync.Download(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSyncPreferences(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req preferencesBody
	if err := s.deps.Validator.Decode(schema.KindPreferences, body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	merged, err := s.deps.Preferences.Sync(r.Context(), claimsFrom(r.Context()).UserID, req.Preferences)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if merged == nil {
		merged = models.Preferences{}
	}
	writeJSON(w, http.StatusOK, preferencesBody{Preferences: merged})
}
