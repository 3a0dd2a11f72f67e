package users

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// UserRepository reads return (nil, nil) when no row matches.
type UserRepository interface {
	// CreateUser assigns ID and timestamps. A duplicate email yields
	// ErrUserAlreadyExists.
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	// DeleteUser removes the user and, by cascade, its refresh tokens.
	// Returns ErrUserNotFound when no row was deleted.
	DeleteUser(ctx context.Context, id int64) error
}

type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, tx pgx.Tx, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	// RevokeRefreshToken reports false when the token was unknown or already
	// revoked, so only one caller can win a rotation.
	RevokeRefreshToken(ctx context.Context, tx pgx.Tx, tokenHash string) (bool, error)
	RevokeAllUserTokens(ctx context.Context, tx pgx.Tx, userID int64) error
}
