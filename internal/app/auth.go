package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/pscheid92/feedbackpulse/internal/domain"
	apperrors "github.com/pscheid92/feedbackpulse/internal/platform/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt ignores everything beyond
	maxEmailLength    = 254
)

// dummyHash is compared against when the email is unknown so that sign-in
// takes the same time whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("feedbackpulse-timing"), bcrypt.DefaultCost)

type SignUpRequest struct {
	Email     string
	Password  string
	AdminCode string
}

// SignUp creates an account. A matching AdminCode grants the admin role.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	role := domain.RoleUser
	if req.AdminCode != "" {
		if !s.adminCodeMatches(req.AdminCode) {
			return nil, apperrors.ValidationError("invalid admin code")
		}
		role = domain.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "User signed up", "user_id", user.ID.String(), "role", user.Role)
	return user, nil
}

// SignIn checks credentials. Unknown emails and wrong passwords both yield
// domain.ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if errors.Is(err, domain.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) adminCodeMatches(code string) bool {
	if s.adminSignupCode == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.adminSignupCode)) == 1
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return "", apperrors.ValidationError("a valid email address is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.ValidationError("a valid email address is required")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperrors.ValidationError(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return apperrors.ValidationError(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}
