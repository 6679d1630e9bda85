package repository

import (
	"context"

	"github.com/yukikurage/file-hosting-api/internal/models"
	"gorm.io/gorm"
)

// GormFileRepository is a GORM implementation of FileRepository
type GormFileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(db *gorm.DB) FileRepository {
	return &GormFileRepository{db: db}
}

// Create inserts a new file record
func (r *GormFileRepository) Create(ctx context.Context, file *models.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// FindByID finds a file record by its fileid
func (r *GormFileRepository) FindByID(ctx context.Context, id uint64) (*models.File, error) {
	var file models.File
	if err := r.db.WithContext(ctx).Where("fileid = ?", id).First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// ListByUser returns the files owned by a profile, newest upload first
func (r *GormFileRepository) ListByUser(ctx context.Context, userID uint64) ([]models.File, error) {
	files := []models.File{}
	err := r.db.WithContext(ctx).
		Where("userid = ?", userID).
		Order("uploaded_at DESC").
		Order("fileid DESC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Delete removes a file record
func (r *GormFileRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Where("fileid = ?", id).Delete(&models.File{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
