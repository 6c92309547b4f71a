package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	pkgauth "github.com/BradenHooton/fintrack/pkg/auth"
	pkglogger "github.com/BradenHooton/fintrack/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/BradenHooton/fintrack/internal/services")

// dummyPassword is hashed once and compared against when the email is
// unknown, so both failure paths spend a bcrypt comparison.
const dummyPassword = "fintrack-dummy-password-for-timing"

// FailureMonitor is the part of the Security Monitor the login flow needs.
type FailureMonitor interface {
	RecordFailure(ctx context.Context, key monitor.SourceKey, at time.Time) *models.Alert
	IsBlocked(key monitor.SourceKey) bool
	BlockedFor(key monitor.SourceKey) time.Duration
}

// Auditor records audit events.
type Auditor interface {
	RecordEvent(ctx context.Context, typ models.EventType, sev models.Severity, desc, sourceIP, userID string)
}

// LockoutError is returned while a source is blocked. It matches
// models.ErrTooManyAttempts.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s: retry after %s", models.ErrTooManyAttempts, e.RetryAfter)
}

func (e *LockoutError) Unwrap() error {
	return models.ErrTooManyAttempts
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// AuthService handles authentication business logic
type AuthService struct {
	repo    UserRepository
	tm      *auth.TokenManager
	monitor FailureMonitor
	audit   Auditor
	hasher  *pkgauth.Hasher
	policy  pkgauth.PasswordPolicy
	timing  *auth.TimingDelay
	logger  *slog.Logger
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// AuthServiceDeps groups the collaborators of AuthService.
type AuthServiceDeps struct {
	Users   UserRepository
	Tokens  *auth.TokenManager
	Monitor FailureMonitor
	Audit   Auditor
	Hasher  *pkgauth.Hasher
	Policy  pkgauth.PasswordPolicy
	Timing  *auth.TimingDelay
	Logger  *slog.Logger
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	if deps.Hasher == nil {
		deps.Hasher = pkgauth.NewHasher(pkgauth.DefaultBcryptCost)
	}
	if deps.Policy.MinLength == 0 {
		deps.Policy = pkgauth.DefaultPasswordPolicy()
	}
	return &AuthService{
		repo:    deps.Users,
		tm:      deps.Tokens,
		monitor: deps.Monitor,
		audit:   deps.Audit,
		hasher:  deps.Hasher,
		policy:  deps.Policy,
		timing:  deps.Timing,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to prepare dummy hash", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Login verifies credentials and issues an access token. Unknown emails,
// wrong passwords and disabled accounts all fail with models.ErrUnauthorized
// and are counted against both the email and the source address. While
// either is blocked the password is not checked at all.
func (s *AuthService) Login(ctx context.Context, email, password, sourceIP string) (*models.TokenResponse, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	start := time.Now()
	email = normalizeEmail(email)

	if err := s.checkBlocked(email, sourceIP); err != nil {
		span.SetAttributes(attribute.Bool("auth.blocked", true))
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, models.ErrInternalServer
	}

	hash := s.fallbackHash()
	if user != nil {
		hash = user.PasswordHash
	}
	cmpErr := s.hasher.Compare(hash, password)

	if user == nil || cmpErr != nil || !user.IsActive {
		s.recordLoginFailure(ctx, email, sourceIP, user)
		s.timing.WaitFrom(ctx, start, false)
		span.SetAttributes(attribute.Bool("auth.success", false))
		return nil, models.ErrUnauthorized
	}

	token, _, err := s.tm.IssueAccessToken(user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		span.SetStatus(codes.Error, "token issue failed")
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.audit.RecordEvent(ctx, models.EventSuccessfulLogin, models.SeverityLow,
		"successful login", sourceIP, user.ID)
	s.timing.WaitFrom(ctx, start, true)
	span.SetAttributes(attribute.Bool("auth.success", true))

	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   models.TokenTypeBearer,
		ExpiresIn:   int64(s.tm.AccessTokenExpiry().Seconds()),
	}, nil
}

// checkBlocked returns a *LockoutError while the identity or the origin is
// locked out. Callers run it before any credential comparison.
func (s *AuthService) checkBlocked(email, sourceIP string) error {
	for _, key := range []monitor.SourceKey{monitor.IdentityKey(email), monitor.OriginKey(sourceIP)} {
		if s.monitor.IsBlocked(key) {
			retry := s.monitor.BlockedFor(key)
			s.logger.Warn("authentication rejected: source blocked",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.String("source_ip", sourceIP),
				slog.Duration("retry_after", retry))
			return &LockoutError{RetryAfter: retry}
		}
	}
	return nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, email, sourceIP string, user *models.User) {
	now := s.now()
	s.monitor.RecordFailure(ctx, monitor.OriginKey(sourceIP), now)
	s.monitor.RecordFailure(ctx, monitor.IdentityKey(email), now)

	var userID string
	if user != nil {
		userID = user.ID
	}
	s.logger.Info("login failed: invalid credentials")
	s.audit.RecordEvent(ctx, models.EventFailedLogin, models.SeverityMedium,
		fmt.Sprintf("failed login attempt for %s", pkglogger.SanitizedEmail(email)), sourceIP, userID)
}

// Register creates a user account with the default role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, sourceIP string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeEmail(in.Email)

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		s.logger.Info("registration rejected: email already registered")
		return nil, models.ErrConflict
	case err != nil && !errors.Is(err, models.ErrNotFound):
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.policy.Validate(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         models.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.audit.RecordEvent(ctx, models.EventUserCreated, models.SeverityLow,
		"user account created", sourceIP, user.ID)
	return user, nil
}

// Authorize resolves a bearer token to an active user.
func (s *AuthService) Authorize(ctx context.Context, token string) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Authorize", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	subject, err := s.tm.Verify(token)
	if err != nil {
		s.logger.Debug("token verification failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load token subject", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !user.IsActive {
		return nil, models.ErrUnauthorized
	}
	return user, nil
}

// ChangePassword replaces the password of user after checking the current
// one. A wrong current password counts as a failed authentication, and a
// locked-out identity or origin is rejected before the comparison.
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, current, next, sourceIP string) error {
	ctx, span := tracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	if err := s.checkBlocked(normalizeEmail(user.Email), sourceIP); err != nil {
		span.SetAttributes(attribute.Bool("auth.blocked", true))
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		s.recordLoginFailure(ctx, user.Email, sourceIP, user)
		return models.ErrUnauthorized
	}
	if err := s.policy.Validate(next); err != nil {
		return fmt.Errorf("%w: %w", models.ErrWeakPassword, err)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.audit.RecordEvent(ctx, models.EventPasswordChanged, models.SeverityMedium,
		"password changed", sourceIP, user.ID)
	return nil
}
