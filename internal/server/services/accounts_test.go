package services

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T, m repomanager.RepositoryManager) *AccountService {
	t.Helper()
	v := &fakeVerifier{identities: map[string]*models.Identity{
		"cred-a":       {Subject: "g-1", Email: "A@X.com ", EmailVerified: true, Name: "A", AvatarURL: "https://img/a"},
		"cred-a2":      {Subject: "g-1", Email: "a@x.com", EmailVerified: true, Name: "A Renamed"},
		"cred-noemail": {Subject: "g-2", EmailVerified: true, Name: "Nobody"},
		"cred-unverif": {Subject: "g-3", Email: "c@x.com", Name: "C"},
	}}
	return NewAccountService(m, v, newAuthority(t), logging.Nop{})
}

func TestResolve_CreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newAccountService(t, m)

	first, err := svc.Resolve(ctx, &models.Identity{Subject: "g-1", Email: "A@x.com", EmailVerified: true, Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", first.Email)
	assert.NotZero(t, first.ID)

	second, err := svc.Resolve(ctx, &models.Identity{Subject: "g-1b", Email: "a@x.com", EmailVerified: true, Name: "A2", AvatarURL: "https://img"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same email resolves to the same user")

	stored, err := m.Repositories().Users().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "A2", stored.Name)
	assert.Equal(t, "https://img", stored.AvatarURL)
	assert.Equal(t, "g-1b", stored.ExternalID)
	assert.False(t, stored.LastLogin.Before(first.LastLogin))
}

func TestResolve_ConcurrentFirstLogins(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newAccountService(t, m)

	const n = 8
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := svc.Resolve(ctx, &models.Identity{Subject: "g-1", Email: "a@x.com", EmailVerified: true, Name: "A"})
			errs[i] = err
			if u != nil {
				ids[i] = u.ID
			}
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every login resolves to one account")
	}
}

func TestResolve_DifferentEmailsNeverMerge(t *testing.T) {
	ctx := context.Background()
	m := repomanager.NewMemoryRepositoryManager()
	svc := newAccountService(t, m)

	a, err := svc.Resolve(ctx, &models.Identity{Subject: "s", Email: "a@x.com", EmailVerified: true})
	require.NoError(t, err)
	b, err := svc.Resolve(ctx, &models.Identity{Subject: "s", Email: "b@x.com", EmailVerified: true})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestResolve_Rejections(t *testing.T) {
	svc := newAccountService(t, repomanager.NewMemoryRepositoryManager())

	_, err := svc.Resolve(context.Background(), &models.Identity{Subject: "s", EmailVerified: true})
	assert.ErrorIs(t, err, common.ErrIdentityRejected)

	_, err = svc.Resolve(context.Background(), &models.Identity{Subject: "s", Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrIdentityRejected)
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t, repomanager.NewMemoryRepositoryManager())

	sess, err := svc.Login(ctx, "cred-a")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sess.User.Email)

	claims, err := svc.tokens.Verify(sess.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "A", claims.Name)
}

func TestLogin_Failures(t *testing.T) {
	svc := newAccountService(t, repomanager.NewMemoryRepositoryManager())

	_, err := svc.Login(context.Background(), "unknown")
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), "cred-noemail")
	assert.ErrorIs(t, err, common.ErrIdentityRejected)

	_, err = svc.Login(context.Background(), "cred-unverif")
	assert.ErrorIs(t, err, common.ErrIdentityRejected)
}

func TestRefresh_ReturnsFreshProfile(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(t, repomanager.NewMemoryRepositoryManager())

	sess, err := svc.Login(ctx, "cred-a")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "cred-a2")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, sess.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, "A Renamed", refreshed.User.Name)

	claims, err := svc.tokens.Verify(refreshed.Token.Token)
	require.NoError(t, err)
	assert.Equal(t, "A Renamed", claims.Name)
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc := newAccountService(t, repomanager.NewMemoryRepositoryManager())

	_, err := svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestRefresh_UnknownUser(t *testing.T) {
	svc := newAccountService(t, repomanager.NewMemoryRepositoryManager())

	tok, err := svc.tokens.Issue(&models.User{ID: 777, Email: "ghost@x.com"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), tok.Token)
	assert.ErrorIs(t, err, common.ErrUnauthenticated)
}
