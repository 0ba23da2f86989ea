package auth

import "github.com/galleryve/galleryve-backend/internal/users"

// LoginRequest carries the credential pair.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the token pair plus the authenticated principal.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         users.Response `json:"user"`
}

// RefreshRequest rotates the session. The access token may be expired;
// only its signature and jti are inspected.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the replacement token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest revokes the session tied to the access token.
type LogoutRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}
