package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/galleryve/galleryve-backend/pkg/db/models"
	"github.com/galleryve/galleryve-backend/pkg/enums"
)

// CreateRequest provisions a new principal. The role is validated
// against the enum; MASTER is never provisionable through this surface.
type CreateRequest struct {
	Email  string     `json:"email" validate:"required,email"`
	Name   string     `json:"name" validate:"required,min=1,max=120"`
	Phone  *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role   string     `json:"role" validate:"required"`
	TeamID *uuid.UUID `json:"team_id,omitempty"`
}

// AssignRoleRequest changes a principal's role.
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AssignTeamRequest moves a principal to another team. A nil team
// detaches the principal from any team.
type AssignTeamRequest struct {
	TeamID *uuid.UUID `json:"team_id"`
}

// Filters narrow roster listings.
type Filters struct {
	TeamID   *uuid.UUID
	Role     *enums.Role
	IsActive *bool
}

// Response is the transport shape of a principal. Credentials never
// appear here.
type Response struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       *string    `json:"phone,omitempty"`
	Role        enums.Role `json:"role"`
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProvisionResult carries the one-time temporary password alongside the
// created principal. The password is returned exactly once and never
// stored in clear.
type ProvisionResult struct {
	User         Response `json:"user"`
	TempPassword string   `json:"temp_password"`
}

// List is one roster page.
type List struct {
	Users      []Response `json:"users"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToResponse maps the model onto the transport shape.
func ToResponse(user *models.User) Response {
	return Response{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Phone:       user.Phone,
		Role:        user.Role,
		TeamID:      user.TeamID,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
