package auth

import (
	"time"

	"github.com/angelmondragon/hostelhub-backend/internal/docstore"
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the access token and the public user record.
type LoginResponse struct {
	AccessToken string          `json:"accessToken"`
	TokenType   string          `json:"tokenType"`
	ExpiresAt   time.Time       `json:"expiresAt"`
	User        docstore.Record `json:"user"`
}

// Actor is the authenticated caller of an administrative operation.
type Actor struct {
	UserID   string
	Role     enums.Role
	HostelID string
}
