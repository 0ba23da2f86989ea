package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/galleryve/galleryve-backend/pkg/auth"
	"github.com/galleryve/galleryve-backend/pkg/config"
	"github.com/galleryve/galleryve-backend/pkg/enums"
)

type stubSessionChecker struct {
	sessions map[string]bool
	err      error
}

func (s *stubSessionChecker) HasSession(_ context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.sessions[accessID], nil
}

func authTestJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "middleware-test-secret",
		Issuer:            "galleryve",
		ExpirationMinutes: 15,
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.Role, teamID *uuid.UUID, jti string) (string, uuid.UUID) {
	t.Helper()

	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		TeamID: teamID,
		JTI:    jti,
	})
	require.NoError(t, err)
	return token, userID
}

func TestAuthInjectsPrincipal(t *testing.T) {
	cfg := authTestJWTConfig()
	teamID := uuid.New()
	token, userID := mintTestToken(t, cfg, enums.RoleStaff, &teamID, "session-1")
	checker := &stubSessionChecker{sessions: map[string]bool{"session-1": true}}

	var seen bool
	handler := Auth(cfg, checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, userID, principal.ID)
		require.Equal(t, enums.RoleStaff, principal.Role)
		require.NotNil(t, principal.TeamID)
		require.Equal(t, teamID, *principal.TeamID)
		seen = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.True(t, seen)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(authTestJWTConfig(), &stubSessionChecker{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := authTestJWTConfig()
	token, _ := mintTestToken(t, cfg, enums.RoleManager, nil, "revoked-session")
	checker := &stubSessionChecker{sessions: map[string]bool{}}

	handler := Auth(cfg, checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsTamperedToken(t *testing.T) {
	cfg := authTestJWTConfig()
	other := cfg
	other.Secret = "some-other-secret"
	token, _ := mintTestToken(t, other, enums.RoleAdmin, nil, "session-2")

	handler := Auth(cfg, &stubSessionChecker{sessions: map[string]bool{"session-2": true}}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
