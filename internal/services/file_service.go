package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/yukikurage/file-hosting-api/internal/access"
	"github.com/yukikurage/file-hosting-api/internal/metrics"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/repository"
	"github.com/yukikurage/file-hosting-api/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrNoFileUploaded = errors.New("no file uploaded")
	ErrFileNotFound   = access.ErrFileNotFound
	ErrAccessDenied   = access.ErrAccessDenied
	ErrFileMissing    = errors.New("file missing from storage")
	ErrFailedToRecord = errors.New("failed to record upload")
)

// FileService owns the file record and its stored object as a pair.
type FileService struct {
	files   repository.FileRepository
	store   storage.Store
	metrics *metrics.Metrics
}

// NewFileService creates a new FileService. m may be nil.
func NewFileService(files repository.FileRepository, store storage.Store, m *metrics.Metrics) *FileService {
	return &FileService{
		files:   files,
		store:   store,
		metrics: m,
	}
}

// List returns the caller's files, newest first.
func (s *FileService) List(ctx context.Context, userID uint64) ([]models.File, error) {
	files, err := s.files.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// RecordUpload inserts the record for an object already written to storage.
// When the insert fails the object is removed before the error is returned.
func (s *FileService) RecordUpload(ctx context.Context, userID uint64, obj *storage.Object) (*models.File, error) {
	if obj == nil {
		return nil, ErrNoFileUploaded
	}

	file := &models.File{
		UserID:       userID,
		Filename:     obj.Filename,
		OriginalName: obj.OriginalName,
		FilePath:     obj.Path,
		FileSize:     obj.Size,
		MimeType:     obj.MimeType,
	}
	if err := s.files.Create(ctx, file); err != nil {
		s.Discard(ctx, obj)
		s.metrics.UploadCompensated()
		return nil, fmt.Errorf("%w: %v", ErrFailedToRecord, err)
	}

	s.metrics.UploadRecorded(file.FileSize)
	return file, nil
}

// Discard removes a stored object that will not be recorded.
func (s *FileService) Discard(ctx context.Context, obj *storage.Object) {
	if obj == nil {
		return
	}
	if err := s.store.Remove(context.WithoutCancel(ctx), obj.Path); err != nil {
		slog.ErrorContext(ctx, "Failed to remove unrecorded upload", "path", obj.Path, "error", err)
	}
}

// Authorize resolves fileID for callerID. Checks run in a fixed order:
// record existence, then ownership, then presence in storage.
func (s *FileService) Authorize(ctx context.Context, callerID, fileID uint64) (*models.File, error) {
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}

	if err := access.CheckFile(callerID, file); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			s.metrics.AccessDenied()
		}
		return nil, err
	}

	exists, err := s.store.Exists(ctx, file.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check storage: %w", err)
	}
	if !exists {
		return nil, ErrFileMissing
	}
	return file, nil
}

// Open authorizes the caller and opens the stored content. The caller
// closes the reader.
func (s *FileService) Open(ctx context.Context, callerID, fileID uint64) (*models.File, io.ReadCloser, error) {
	file, err := s.Authorize(ctx, callerID, fileID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Open(ctx, file.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileMissing
		}
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, rc, nil
}

// Delete removes the stored object and then the record. A record whose
// object is already gone is still deleted.
func (s *FileService) Delete(ctx context.Context, callerID, fileID uint64) error {
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to find file: %w", err)
	}

	if err := access.CheckFile(callerID, file); err != nil {
		if errors.Is(err, ErrAccessDenied) {
			s.metrics.AccessDenied()
		}
		return err
	}

	if err := s.store.Remove(ctx, file.FilePath); err != nil {
		return fmt.Errorf("failed to remove stored file: %w", err)
	}

	if err := s.files.Delete(ctx, file.FileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	s.metrics.FileDeleted()
	return nil
}
