package auth

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/taskmate/internal/common"
)

// Extractor pulls a raw token out of a request.
type Extractor interface {
	Extract(r *http.Request) (string, bool)
}

type ExtractorFunc func(r *http.Request) (string, bool)

func (f ExtractorFunc) Extract(r *http.Request) (string, bool) { return f(r) }

// FromCookie reads the token from the named cookie.
func FromCookie(name string) Extractor {
	return ExtractorFunc(func(r *http.Request) (string, bool) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", false
		}
		return c.Value, true
	})
}

// FromBearerHeader reads "Authorization: Bearer <token>".
func FromBearerHeader() Extractor {
	return ExtractorFunc(func(r *http.Request) (string, bool) {
		h := r.Header.Get(common.AuthorizationHeaderName)
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	})
}

// Chain tries extractors in order and returns the first token found.
type Chain []Extractor

func (c Chain) Extract(r *http.Request) (string, bool) {
	for _, e := range c {
		if token, ok := e.Extract(r); ok {
			return token, true
		}
	}
	return "", false
}

// DefaultChain prefers the browser cookie over the bearer header.
func DefaultChain() Chain {
	return Chain{FromCookie(common.TokenCookieName), FromBearerHeader()}
}
