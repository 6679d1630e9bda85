package repository

import (
	"context"

	"github.com/yukikurage/file-hosting-api/internal/models"
)

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	// Create inserts a new profile
	Create(ctx context.Context, profile *models.Profile) error

	// FindByID finds a profile by its userid
	FindByID(ctx context.Context, id uint64) (*models.Profile, error)

	// FindByAuthUserID finds the profile linked to an identity provider subject
	FindByAuthUserID(ctx context.Context, authUserID string) (*models.Profile, error)

	// List returns every profile, newest first
	List(ctx context.Context) ([]models.Profile, error)

	// Delete removes a profile row
	Delete(ctx context.Context, id uint64) error
}

// FileRepository defines the interface for file metadata access
type FileRepository interface {
	// Create inserts a new file record
	Create(ctx context.Context, file *models.File) error

	// FindByID finds a file record by its fileid
	FindByID(ctx context.Context, id uint64) (*models.File, error)

	// ListByUser returns the files owned by a profile, newest upload first
	ListByUser(ctx context.Context, userID uint64) ([]models.File, error)

	// Delete removes a file record
	Delete(ctx context.Context, id uint64) error
}
