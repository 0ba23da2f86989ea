package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgauth "github.com/galleryve/galleryve-backend/pkg/auth"
	"github.com/galleryve/galleryve-backend/pkg/auth/session"
	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/security"
)

type stubAuthUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (r *stubAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAuthUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *stubAuthUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := r.users[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: make(map[string]string)}
}

func (m *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := uuid.NewString()
	m.sessions[accessID] = token
	return token, nil
}

func (m *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := m.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.sessions, oldAccessID)
	newAccessID := session.NewAccessID()
	newToken := uuid.NewString()
	m.sessions[newAccessID] = newToken
	return newAccessID, newToken, nil
}

func (m *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	m.revoked = append(m.revoked, accessID)
	delete(m.sessions, accessID)
	return nil
}

type authFixture struct {
	repo    *stubAuthUserRepo
	session *stubSessionManager
	jwtCfg  config.JWTConfig
	svc     Service
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		repo:    &stubAuthUserRepo{users: make(map[uuid.UUID]*models.User)},
		session: newStubSessionManager(),
		jwtCfg: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "galleryve",
			ExpirationMinutes: 15,
		},
	}
	svc, err := NewService(ServiceParams{
		UserRepo:       f.repo,
		SessionManager: f.session,
		JWTConfig:      f.jwtCfg,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func seedLoginUser(t *testing.T, f *authFixture, password string) *models.User {
	t.Helper()

	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)

	team := uuid.New()
	user := &models.User{
		ID:           uuid.New(),
		Email:        "curator@gallery.test",
		PasswordHash: hash,
		Name:         "Curator",
		Role:         enums.RoleManager,
		TeamID:       &team,
		IsActive:     true,
	}
	f.repo.users[user.ID] = user
	return user
}

func TestLogin_IssuesTokenPairWithClaims(t *testing.T) {
	f := newAuthFixture(t)
	user := seedLoginUser(t, f, "s3cret-pass")

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    " Curator@Gallery.Test ",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := pkgauth.ParseAccessToken(f.jwtCfg, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.RoleManager, claims.Role)
	require.NotNil(t, claims.TeamID)
	assert.Equal(t, *user.TeamID, *claims.TeamID)

	// session keyed by the token's jti
	_, ok := f.session.sessions[claims.ID]
	assert.True(t, ok)

	assert.NotNil(t, f.repo.users[user.ID].LastLoginAt)
}

func TestLogin_WrongPasswordUnauthorized(t *testing.T) {
	f := newAuthFixture(t)
	seedLoginUser(t, f, "s3cret-pass")

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "curator@gallery.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLogin_UnknownEmailUnauthorized(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@gallery.test",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLogin_InactiveUserDenied(t *testing.T) {
	f := newAuthFixture(t)
	user := seedLoginUser(t, f, "s3cret-pass")
	user.IsActive = false

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "curator@gallery.test",
		Password: "s3cret-pass",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRefresh_RotatesSessionAndPicksUpCurrentRole(t *testing.T) {
	f := newAuthFixture(t)
	user := seedLoginUser(t, f, "s3cret-pass")

	login, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "curator@gallery.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	// role changed after login; the refreshed token must reflect it
	f.repo.users[user.ID].Role = enums.RoleStaff

	refreshed, err := f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(f.jwtCfg, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleStaff, claims.Role)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the old pair no longer rotates
	_, err = f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRefresh_DeactivatedUserDenied(t *testing.T) {
	f := newAuthFixture(t)
	user := seedLoginUser(t, f, "s3cret-pass")

	login, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "curator@gallery.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	f.repo.users[user.ID].IsActive = false

	_, err = f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	seedLoginUser(t, f, "s3cret-pass")

	login, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "curator@gallery.test",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), LogoutRequest{AccessToken: login.AccessToken}))
	require.Len(t, f.session.revoked, 1)

	_, err = f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}
