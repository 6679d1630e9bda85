package repository

import (
	"context"

	"github.com/yukikurage/file-hosting-api/internal/models"
	"gorm.io/gorm"
)

// GormProfileRepository is a GORM implementation of ProfileRepository
type GormProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &GormProfileRepository{db: db}
}

// Create inserts a new profile
func (r *GormProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// FindByID finds a profile by its userid
func (r *GormProfileRepository) FindByID(ctx context.Context, id uint64) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("userid = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByAuthUserID finds the profile linked to an identity provider subject
func (r *GormProfileRepository) FindByAuthUserID(ctx context.Context, authUserID string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("authuserid = ?", authUserID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// List returns every profile, newest first
func (r *GormProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	profiles := []models.Profile{}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("userid DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Delete removes a profile row. Deleting a missing row reports
// gorm.ErrRecordNotFound.
func (r *GormProfileRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Where("userid = ?", id).Delete(&models.Profile{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
