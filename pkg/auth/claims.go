package auth

import (
	"github.com/angelmondragon/hostelhub-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   string
	Role     enums.Role
	HostelID string
	Email    string
	Name     string
}

// AccessTokenClaims represents the typed JWT issued to clients. The subject
// carries the user id.
type AccessTokenClaims struct {
	Role     enums.Role `json:"role"`
	HostelID string     `json:"hostelId,omitempty"`
	Email    string     `json:"email,omitempty"`
	Name     string     `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the principal encoded in the subject claim.
func (c *AccessTokenClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
