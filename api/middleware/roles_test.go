package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/galleryve/galleryve-backend/pkg/enums"
	"github.com/galleryve/galleryve-backend/pkg/identity"
	"github.com/galleryve/galleryve-backend/pkg/logger"
)

func requireRoleHandler(t *testing.T, roles ...enums.Role) (http.Handler, *bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	logg := logger.New(logger.Options{ServiceName: "test"})
	return RequireRole(logg, roles...)(next), &called
}

func requestWithRole(role enums.Role) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	principal := identity.Principal{ID: uuid.New(), Role: role, IsActive: true}
	return req.WithContext(WithPrincipal(req.Context(), principal))
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	handler, called := requireRoleHandler(t, enums.RoleAdmin)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithRole(enums.RoleAdmin))

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, *called)
}

func TestRequireRoleAlwaysAllowsMaster(t *testing.T) {
	handler, called := requireRoleHandler(t, enums.RoleAdmin)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithRole(enums.RoleMaster))

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, *called)
}

func TestRequireRoleBlocksOtherRoles(t *testing.T) {
	handler, called := requireRoleHandler(t, enums.RoleAdmin)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, requestWithRole(enums.RoleStaff))

	require.Equal(t, http.StatusForbidden, resp.Code)
	require.False(t, *called)
}

func TestRequireRoleRejectsMissingPrincipal(t *testing.T) {
	handler, called := requireRoleHandler(t, enums.RoleAdmin)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.False(t, *called)
}
