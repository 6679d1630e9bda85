// Package access decides who may touch a file record. It performs no I/O.
package access

import (
	"errors"

	"github.com/yukikurage/file-hosting-api/internal/models"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrAccessDenied = errors.New("access denied")
)

// CheckFile allows read and delete of f by the profile callerID. A nil
// record reports ErrFileNotFound before ownership is considered.
func CheckFile(callerID uint64, f *models.File) error {
	if f == nil {
		return ErrFileNotFound
	}
	if f.UserID != callerID {
		return ErrAccessDenied
	}
	return nil
}

// IsAdmin reports whether p may use the admin routes.
func IsAdmin(p *models.Profile) bool {
	return p.IsAdmin()
}
