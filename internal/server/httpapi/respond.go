package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/auth"
)

type errorResponse struct {
	Error      string                  `json:"error"`
	Violations []common.FieldViolation `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes. Details of server side
// failures are logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve      *common.ValidationError
		tooBig  *http.MaxBytesError
		status  int
		payload errorResponse
	)

	switch {
	case errors.As(err, &ve):
		status, payload = http.StatusBadRequest, errorResponse{Error: "validation failed", Violations: ve.Violations}
	case errors.As(err, &tooBig):
		status, payload = http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("body exceeds %d bytes", tooBig.Limit)}
	case errors.Is(err, common.ErrTokenExpired):
		status, payload = http.StatusUnauthorized, errorResponse{Error: "token expired"}
	case errors.Is(err, common.ErrUnauthenticated):
		status, payload = http.StatusUnauthorized, errorResponse{Error: "unauthenticated"}
	case errors.Is(err, common.ErrIdentityRejected):
		status, payload = http.StatusForbidden, errorResponse{Error: "identity rejected"}
	case errors.Is(err, common.ErrorNotFound):
		status, payload = http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, common.ErrTransaction):
		status, payload = http.StatusInternalServerError, errorResponse{Error: "sync failed, no changes were applied"}
	default:
		status, payload = http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}

	log := logging.FromContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", "error", err)
	} else {
		log.Debug(r.Context(), "request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, payload)
}

// readBody reads at most the configured number of bytes.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(auth.TokenValidity / time.Second),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
