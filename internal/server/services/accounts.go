// Package services contains server-side business logic. This file implements
// AccountService, which maps external identities to local users and issues
// session tokens for them.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/auth"
	"github.com/dmitrijs2005/taskmate/internal/server/identity"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
)

// Session is a resolved user together with a freshly issued token.
type Session struct {
	User  *models.User
	Token *auth.IssuedToken
}

type AccountService struct {
	repomanager repomanager.RepositoryManager
	verifier    identity.Verifier
	tokens      *auth.Authority
	log         logging.Logger
}

func NewAccountService(m repomanager.RepositoryManager, v identity.Verifier, tokens *auth.Authority, log logging.Logger) *AccountService {
	return &AccountService{repomanager: m, verifier: v, tokens: tokens, log: log}
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Resolve returns the local user for a verified identity, creating it on
// first sight and refreshing its profile otherwise. Users are never merged
// or deleted.
func (s *AccountService) Resolve(ctx context.Context, id *models.Identity) (*models.User, error) {
	email := NormalizeEmail(id.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: assertion carries no email", common.ErrIdentityRejected)
	}
	if !id.EmailVerified {
		return nil, fmt.Errorf("%w: email %s is not verified", common.ErrIdentityRejected, email)
	}

	user, created, err := s.repomanager.Repositories().Users().Upsert(ctx, &models.User{
		Email:      email,
		Name:       id.Name,
		AvatarURL:  id.AvatarURL,
		ExternalID: id.Subject,
	})
	if err != nil {
		return nil, fmt.Errorf("error resolving user: %w", err)
	}
	if created {
		s.log.Info(ctx, "user created", "user_id", user.ID)
	}
	return user, nil
}

// Login verifies an identity provider credential, resolves the user and
// issues a token.
func (s *AccountService) Login(ctx context.Context, credential string) (*Session, error) {
	id, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	user, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Refresh re-reads the token's user from storage and issues a new token
// with a full validity period.
func (s *AccountService) Refresh(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.Me(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Me returns the stored profile. An unknown id means the token outlived its
// user and is treated as unauthenticated.
func (s *AccountService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repomanager.Repositories().Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user %d no longer exists", common.ErrUnauthenticated, userID)
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *AccountService) issue(user *models.User) (*Session, error) {
	tok, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &Session{User: user, Token: tok}, nil
}
