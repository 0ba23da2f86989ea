package controllers

import (
	"net/http"

	"github.com/galleryve/galleryve-backend/api/middleware"
	"github.com/galleryve/galleryve-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
			payload["user_id"] = principal.ID.String()
			payload["role"] = string(principal.Role)
		}
		responses.WriteSuccess(w, payload)
	}
}
