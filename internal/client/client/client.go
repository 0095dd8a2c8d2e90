package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
)

// User is the profile returned by the auth endpoints.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
}

type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UploadResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Tasks         int    `json:"tasks"`
	Conversations int    `json:"conversations"`
	Messages      int    `json:"messages"`
}

// Client is the API contract used by the CLI.
type Client interface {
	SetToken(token string)
	Login(ctx context.Context, credential string) (*Session, error)
	Refresh(ctx context.Context) (*Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*User, error)
	Upload(ctx context.Context, snap *snapshot.Snapshot) (*UploadResult, error)
	Download(ctx context.Context) (*snapshot.Snapshot, error)
	SyncPreferences(ctx context.Context, local models.Preferences) (models.Preferences, error)
}
