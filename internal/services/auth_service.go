package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/file-hosting-api/internal/constants"
	"github.com/yukikurage/file-hosting-api/internal/identity"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrMissingRegistrationFields = errors.New("email, password, and username are required")
	ErrMissingCredentials        = errors.New("email and password are required")
	ErrPasswordTooShort          = errors.New("password too short")
	ErrUsernameTooLong           = errors.New("username too long")
	ErrInvalidRole               = errors.New("invalid role")
	ErrEmailTaken                = errors.New("email already registered")
	ErrRegistrationRejected      = errors.New("registration rejected by identity provider")
	ErrFailedToCreateProfile     = errors.New("failed to create profile")
	ErrInvalidCredentials        = errors.New("invalid email or password")
	ErrInvalidRefreshToken       = errors.New("invalid refresh token")
	ErrProfileNotFound           = errors.New("profile not found")
)

// AuthService handles registration, sign-in and profile resolution.
type AuthService struct {
	provider identity.Provider
	profiles repository.ProfileRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(provider identity.Provider, profiles repository.ProfileRepository) *AuthService {
	return &AuthService{
		provider: provider,
		profiles: profiles,
	}
}

// RegisterInput represents the information needed to create an account.
type RegisterInput struct {
	Email    string
	Password string
	Username string
	Role     models.Role
}

// Register validates the input, creates the identity subject and then the
// paired profile. Validation failures never reach the provider. If the
// profile insert fails the new subject is deleted so the email can be
// registered again.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.Profile, error) {
	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)
	if email == "" || input.Password == "" || username == "" {
		return nil, ErrMissingRegistrationFields
	}
	if utf8.RuneCountInString(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if utf8.RuneCountInString(username) > constants.MaxUsernameLength {
		return nil, ErrUsernameTooLong
	}

	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	subject, err := s.provider.SignUp(ctx, email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAlreadyRegistered):
			return nil, ErrEmailTaken
		case errors.Is(err, identity.ErrRejected):
			return nil, fmt.Errorf("%w: %v", ErrRegistrationRejected, err)
		default:
			return nil, fmt.Errorf("failed to register subject: %w", err)
		}
	}

	profile := &models.Profile{
		AuthUserID: subject.ID,
		Username:   username,
		Email:      email,
		Role:       role,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if delErr := s.provider.DeleteSubject(ctx, subject.ID); delErr != nil {
			slog.WarnContext(ctx, "Failed to roll back identity subject after profile insert failure",
				"subject_id", subject.ID, "error", delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateProfile, err)
	}

	return profile, nil
}

// Login exchanges credentials for a session and resolves the caller's profile.
func (s *AuthService) Login(ctx context.Context, email, password string) (*identity.Session, *models.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil, ErrMissingCredentials
	}

	session, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to sign in: %w", err)
	}

	profile, err := s.ResolveProfile(ctx, session.Subject.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, profile, nil
}

// Refresh exchanges a refresh token for a new session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	session, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return session, nil
}

// Logout revokes the access token's session. An already invalid token is
// treated as logged out.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil && !errors.Is(err, identity.ErrInvalidToken) {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// ResolveProfile maps a subject id to its profile. Each call hits the
// record store.
func (s *AuthService) ResolveProfile(ctx context.Context, subjectID string) (*models.Profile, error) {
	profile, err := s.profiles.FindByAuthUserID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return profile, nil
}
