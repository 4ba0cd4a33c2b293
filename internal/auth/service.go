package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/aura-quiz/backend/internal/apperr"
	"github.com/aura-quiz/backend/internal/models"
	"github.com/aura-quiz/backend/internal/store"
	"github.com/aura-quiz/backend/pkg/utils"
	"github.com/aura-quiz/backend/pkg/validate"
)

// Service registers users, verifies credentials and issues session tokens.
type Service struct {
	store  store.Store
	hasher utils.PasswordHasher
	jwt    *JWTService
	logger *zap.Logger
}

// NewService creates an auth service.
func NewService(st store.Store, hasher utils.PasswordHasher, jwt *JWTService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, hasher: hasher, jwt: jwt, logger: logger}
}

// Register creates an account. Username and email must be unused.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*models.UserPublic, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	_, err := s.store.Users().GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperr.Conflict("email already registered")
	case !errors.Is(err, store.ErrNotFound):
		return nil, apperr.Internal(err, "failed to look up user")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "failed to hash password")
	}

	user := &models.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, err, "username or email already registered")
		}
		return nil, apperr.Internal(err, "failed to create user")
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	public := user.ToPublic()
	return &public, nil
}

// Login verifies credentials and returns the user with a signed token.
func (s *Service) Login(ctx context.Context, in models.LoginInput) (*models.LoginResponse, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	user, err := s.store.Users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, apperr.Internal(err, "failed to look up user")
	}
	if !s.hasher.Check(in.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("invalid email or password")
	}

	token, err := s.jwt.Generate(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, apperr.Internal(err, "failed to generate token")
	}
	return &models.LoginResponse{User: user.ToPublic(), Token: token}, nil
}

// Profile returns the public record of a user.
func (s *Service) Profile(ctx context.Context, id int64) (*models.UserPublic, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("user %d not found", id)
		}
		return nil, apperr.Internal(err, "failed to load user")
	}
	public := user.ToPublic()
	return &public, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
