package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/file-hosting-api/internal/identity"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrFailedToDeleteLogin = errors.New("failed to delete identity subject")
)

// AdminService implements the account management operations. Callers are
// expected to have checked the admin role already.
type AdminService struct {
	auth     *AuthService
	profiles repository.ProfileRepository
	provider identity.Provider
}

// NewAdminService creates a new AdminService.
func NewAdminService(auth *AuthService, profiles repository.ProfileRepository, provider identity.Provider) *AdminService {
	return &AdminService{
		auth:     auth,
		profiles: profiles,
		provider: provider,
	}
}

// ListUsers returns every profile, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return profiles, nil
}

// CreateUser registers an account with the requested role.
func (s *AdminService) CreateUser(ctx context.Context, input RegisterInput) (*models.Profile, error) {
	return s.auth.Register(ctx, input)
}

// DeleteUser removes the target profile and then its identity subject.
// The caller cannot delete their own profile. The target's files are left
// in place.
func (s *AdminService) DeleteUser(ctx context.Context, caller *models.Profile, targetID uint64) error {
	target, err := s.profiles.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if caller != nil && target.UserID == caller.UserID {
		return ErrCannotDeleteSelf
	}

	if err := s.profiles.Delete(ctx, target.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if err := s.provider.DeleteSubject(ctx, target.AuthUserID); err != nil && !errors.Is(err, identity.ErrSubjectNotFound) {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteLogin, err)
	}
	return nil
}
