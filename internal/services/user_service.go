package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/fintrack/internal/models"
)

// UserService handles account lifecycle outside of authentication.
type UserService struct {
	repo   UserRepository
	audit  Auditor
	logger *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, audit Auditor, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		audit:  audit,
		logger: logger,
	}
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// DeleteAccount removes the caller's account. Cards and transactions go with
// it through the foreign keys.
func (s *UserService) DeleteAccount(ctx context.Context, user *models.User, sourceIP string) error {
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deleted", slog.String("user_id", user.ID))
	s.audit.RecordEvent(ctx, models.EventUserDeleted, models.SeverityMedium,
		"user account deleted", sourceIP, user.ID)
	return nil
}

// EnsureAdmin creates the bootstrap administrator if no account uses email
// yet, and promotes an existing account to admin otherwise. The password is
// only used for a new account.
func (s *UserService) EnsureAdmin(ctx context.Context, auth *AuthService, email, password string) error {
	if email == "" {
		return nil
	}
	email = normalizeEmail(email)

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		if err := s.repo.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		s.logger.Info("promoted bootstrap admin", slog.String("user_id", existing.ID))
		return nil
	case !errors.Is(err, models.ErrNotFound):
		return err
	}

	user, err := auth.Register(ctx, RegisterInput{Email: email, Password: password, FullName: "Administrator"}, "")
	if err != nil {
		return err
	}
	if err := s.repo.UpdateRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return err
	}
	s.logger.Info("created bootstrap admin", slog.String("user_id", user.ID))
	return nil
}
