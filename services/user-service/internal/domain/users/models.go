package users

import (
	"time"

	"github.com/floroz/lelang/pkg/auth"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never return in JSON
	PhotoURL     *string   `json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	TokenHash string
	UserID    int64
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UserAgent string
	IPAddress string
}

// RegisterCommand is the sign-up input. Tags are checked at the HTTP boundary.
type RegisterCommand struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	PhotoURL *string `json:"photo_url" validate:"omitempty,url"`
}

type LoginCommand struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

// UpdateCommand changes only the fields that are set.
type UpdateCommand struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	PhotoURL *string `json:"photo_url" validate:"omitempty,url"`
}

// Session is the result of a successful login.
type Session struct {
	User   *User
	Tokens *auth.TokenPair
}
