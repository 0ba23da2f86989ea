package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/galleryve/galleryve-backend/api/responses"
	"github.com/galleryve/galleryve-backend/api/validators"
	"github.com/galleryve/galleryve-backend/internal/rbac"
	"github.com/galleryve/galleryve-backend/pkg/enums"
	pkgerrors "github.com/galleryve/galleryve-backend/pkg/errors"
	"github.com/galleryve/galleryve-backend/pkg/logger"
)

type rolePermissionSetRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,min=1"`
}

// PermissionList returns the registry of known permission keys.
func PermissionList(svc rbac.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rbac service unavailable"))
			return
		}

		permissions, err := svc.ListPermissions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"permissions": permissions})
	}
}

// RolePermissionList returns the permissions attached to one role.
func RolePermissionList(svc rbac.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rbac service unavailable"))
			return
		}

		role, err := parseRoleParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		permissions, err := svc.ListRolePermissions(r.Context(), role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"role":        role,
			"permissions": permissions,
		})
	}
}

// RolePermissionSet replaces a role's permission set wholesale.
func RolePermissionSet(svc rbac.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rbac service unavailable"))
			return
		}

		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := parseRoleParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rolePermissionSetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetPermissionsForRole(r.Context(), principal, role, body.Permissions); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		permissions, err := svc.ListRolePermissions(r.Context(), role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"role":        role,
			"permissions": permissions,
		})
	}
}

func parseRoleParam(r *http.Request) (enums.Role, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "role"))
	role, err := enums.ParseRole(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	return role, nil
}
