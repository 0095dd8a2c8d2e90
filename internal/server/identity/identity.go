// Package identity verifies external identity assertions and turns them
// into models.Identity values the account resolver can trust.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"google.golang.org/api/idtoken"
)

// Verifier checks a credential issued by an identity provider.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*models.Identity, error)
}

// validateIDToken is a seam for testing idtoken.Validate.
var validateIDToken = idtoken.Validate

// GoogleVerifier validates Google Sign-In ID tokens for one OAuth client id.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	return &GoogleVerifier{clientID: clientID}, nil
}

// Verify checks signature, audience and expiry of the ID token. Any failure
// is common.ErrIdentityRejected.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*models.Identity, error) {
	payload, err := validateIDToken(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrIdentityRejected, err)
	}
	return fromClaims(payload.Subject, payload.Claims), nil
}

func fromClaims(subject string, claims map[string]any) *models.Identity {
	id := &models.Identity{Subject: subject}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.AvatarURL, _ = claims["picture"].(string)

	switch v := claims["email_verified"].(type) {
	case bool:
		id.EmailVerified = v
	case string:
		id.EmailVerified = strings.EqualFold(v, "true")
	}
	return id
}

// Disabled rejects every credential. It is used when no provider is
// configured.
type Disabled struct{}

func (Disabled) Verify(context.Context, string) (*models.Identity, error) {
	return nil, fmt.Errorf("%w: no identity provider configured", common.ErrIdentityRejected)
}
