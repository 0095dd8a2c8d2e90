package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/server/schema"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
)

// pathID parses the {id} route segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &common.ValidationError{Violations: []common.FieldViolation{
			{Field: "id", Reason: "must be a positive decimal identifier"},
		}}
	}
	return id, nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Tasks.List(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]snapshot.Task, 0, len(items))
	for _, t := range items {
		out = append(out, snapshot.FromTask(t))
	}
	writeJSON(w, http.StatusOK, map[string][]snapshot.Task{"tasks": out})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.deps.Tasks.Get(r.Context(), claimsFrom(r.Context()).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot.FromTask(t))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeTask(w, r)
	if !ok {
		return
	}

	t, err := s.deps.Tasks.Create(r.Context(), claimsFrom(r.Context()).UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot.FromTask(t))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in, ok := s.decodeTask(w, r)
	if !ok {
		return
	}

	t, err := s.deps.Tasks.Update(r.Context(), claimsFrom(r.Context()).UserID, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot.FromTask(t))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.deps.Tasks.Delete(r.Context(), claimsFrom(r.Context()).UserID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) decodeTask(w http.ResponseWriter, r *http.Request) (snapshot.Task, bool) {
	var in snapshot.Task

	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return in, false
	}
	if err := s.deps.Validator.Decode(schema.KindTask, body, &in); err != nil {
		s.writeError(w, r, err)
		return in, false
	}
	return in, true
}
