package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClientMeta identifies the device a session was opened from. It is filled
// by the handler, never decoded from the body.
type ClientMeta struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	ClientMeta
}

// RefreshRequest carries a refresh token, either for rotation or for logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	ClientMeta
}

// PasswordChange is the self-service password update.
type PasswordChange struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=8,nefield=Current"`
}

// Profile is the public view of the signed-in account.
type Profile struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// TokenPair is returned by login and refresh. ExpiresIn is in seconds.
type TokenPair struct {
	TokenType        string    `json:"token_type"`
	AccessToken      string    `json:"access_token"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	Account          Profile   `json:"account"`
}

// AccessClaims is the signed access-token body. Subject mirrors UserID.
type AccessClaims struct {
	UserID   string   `json:"uid"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// RefreshToken is one row of refresh_tokens. Rotation revokes the old row.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	IPAddress string     `db:"ip_address" json:"ip_address"`
	UserAgent string     `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}
