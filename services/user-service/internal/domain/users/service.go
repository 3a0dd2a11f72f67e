package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/auth"
	"github.com/floroz/lelang/pkg/database"
)

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("you can only modify your own account")
)

type Service struct {
	userRepo  UserRepository
	tokenRepo TokenRepository
	signer    *auth.Signer
	txManager database.TransactionManager
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(
	userRepo UserRepository,
	tokenRepo TokenRepository,
	signer *auth.Signer,
	txManager database.TransactionManager,
	logger zerolog.Logger,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		signer:    signer,
		txManager: txManager,
		logger:    logger.With().Str("component", "users").Logger(),
		now:       time.Now,
	}
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*User, error) {
	email := normalizeEmail(cmd.Email)

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hash, err := auth.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Name:         strings.TrimSpace(cmd.Name),
		Email:        email,
		PasswordHash: hash,
		PhotoURL:     cmd.PhotoURL,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*Session, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(cmd.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tokens, err := s.issueTokens(ctx, tx, user, cmd.UserAgent, cmd.IPAddress)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Session{User: user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Presenting an already revoked token revokes every token of
// its owner.
func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent, ip string) (*auth.TokenPair, error) {
	tokenHash := auth.HashToken(refreshToken)

	stored, err := s.tokenRepo.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if stored == nil {
		return nil, ErrInvalidToken
	}
	if stored.Revoked {
		return nil, s.rejectReuse(ctx, stored.UserID)
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	revoked, err := s.tokenRepo.RevokeRefreshToken(ctx, tx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke token: %w", err)
	}
	if !revoked {
		// Another request rotated this token first.
		_ = tx.Rollback(ctx)
		return nil, s.rejectReuse(ctx, stored.UserID)
	}
	tokens, err := s.issueTokens(ctx, tx, user, userAgent, ip)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tokens, nil
}

// Logout revokes refreshToken. Unknown or already revoked tokens are not an
// error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return database.RunInTx(ctx, s.txManager, func(tx pgx.Tx) error {
		if _, err := s.tokenRepo.RevokeRefreshToken(ctx, tx, auth.HashToken(refreshToken)); err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		return nil
	})
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	list, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return list, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUser applies cmd to the account id on behalf of actorID.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, cmd UpdateCommand) (*User, error) {
	if actorID != id {
		return nil, ErrForbidden
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if cmd.Email != nil {
		email := normalizeEmail(*cmd.Email)
		if email != user.Email {
			other, err := s.userRepo.GetUserByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("failed to check existing user: %w", err)
			}
			if other != nil && other.ID != user.ID {
				return nil, ErrUserAlreadyExists
			}
		}
		user.Email = email
	}
	if cmd.Name != nil {
		user.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.PhotoURL != nil {
		user.PhotoURL = cmd.PhotoURL
	}

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the account id on behalf of actorID. Its refresh tokens
// go with it.
func (s *Service) DeleteUser(ctx context.Context, actorID, id int64) error {
	if actorID != id {
		return ErrForbidden
	}
	if err := s.userRepo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

// Helpers

func (s *Service) issueTokens(ctx context.Context, tx pgx.Tx, user *User, userAgent, ip string) (*auth.TokenPair, error) {
	pair, err := s.signer.GenerateTokens(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	token := &RefreshToken{
		TokenHash: auth.HashToken(pair.RefreshToken),
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiry,
		CreatedAt: s.now(),
		UserAgent: userAgent,
		IPAddress: ip,
	}
	if err := s.tokenRepo.CreateRefreshToken(ctx, tx, token); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}
	return pair, nil
}

// rejectReuse revokes every token of userID and returns ErrInvalidToken.
func (s *Service) rejectReuse(ctx context.Context, userID int64) error {
	s.logger.Warn().Int64("user_id", userID).Msg("revoked refresh token presented, revoking all sessions")
	if err := s.revokeAll(ctx, userID); err != nil {
		return err
	}
	return ErrInvalidToken
}

func (s *Service) revokeAll(ctx context.Context, userID int64) error {
	return database.RunInTx(ctx, s.txManager, func(tx pgx.Tx) error {
		if err := s.tokenRepo.RevokeAllUserTokens(ctx, tx, userID); err != nil {
			return fmt.Errorf("failed to revoke user tokens: %w", err)
		}
		return nil
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
