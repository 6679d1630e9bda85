package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	apierrors "github.com/yukikurage/file-hosting-api/internal/errors"
	"github.com/yukikurage/file-hosting-api/internal/middleware"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/services"
)

// FileHandler serves the caller's own files.
type FileHandler struct {
	fileService *services.FileService
	profiles    middleware.ProfileResolver
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(fileService *services.FileService, profiles middleware.ProfileResolver) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		profiles:    profiles,
	}
}

// ListFiles returns the caller's files, newest first.
func (h *FileHandler) ListFiles(c *gin.Context) {
	profile, ok := h.resolveCaller(c, "Failed to fetch files")
	if !ok {
		return
	}

	files, err := h.fileService.List(c.Request.Context(), profile.UserID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to fetch files", "userid", profile.UserID, "error", err)
		apierrors.InternalError(c, "Failed to fetch files")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
	})
}

// UploadFile records the object written by the SingleFile middleware.
func (h *FileHandler) UploadFile(c *gin.Context) {
	obj, ok := middleware.GetUpload(c)
	if !ok {
		apierrors.BadRequest(c, "No file uploaded")
		return
	}

	profile, ok := h.resolveCaller(c, "Failed to upload file")
	if !ok {
		h.fileService.Discard(c.Request.Context(), obj)
		return
	}

	file, err := h.fileService.RecordUpload(c.Request.Context(), profile.UserID, obj)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to record upload",
			"userid", profile.UserID, "filename", obj.Filename, "error", err)
		apierrors.InternalError(c, "Failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "File uploaded successfully",
		"file":    file,
	})
}

// DownloadFile streams an owned file back under its original name.
func (h *FileHandler) DownloadFile(c *gin.Context) {
	fileID, ok := parseID(c, "Invalid file ID")
	if !ok {
		return
	}

	profile, ok := h.resolveCaller(c, "Failed to download file")
	if !ok {
		return
	}

	file, content, err := h.fileService.Open(c.Request.Context(), profile.UserID, fileID)
	if err != nil {
		respondFileError(c, err, "Failed to download file")
		return
	}
	defer content.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = constants.DefaultContentType
	}
	c.DataFromReader(http.StatusOK, file.FileSize, contentType, content, map[string]string{
		"Content-Disposition": contentDisposition(file.OriginalName),
	})
}

// DeleteFile removes an owned file and its record.
func (h *FileHandler) DeleteFile(c *gin.Context) {
	fileID, ok := parseID(c, "Invalid file ID")
	if !ok {
		return
	}

	profile, ok := h.resolveCaller(c, "Failed to delete file")
	if !ok {
		return
	}

	if err := h.fileService.Delete(c.Request.Context(), profile.UserID, fileID); err != nil {
		respondFileError(c, err, "Failed to delete file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File deleted successfully",
	})
}

// resolveCaller maps the authenticated subject to a profile. A subject
// without a profile is reported with the operation's failure message.
func (h *FileHandler) resolveCaller(c *gin.Context, failure string) (*models.Profile, bool) {
	subjectID, exists := middleware.GetSubjectID(c)
	if !exists {
		apierrors.Unauthorized(c, "Access token required")
		return nil, false
	}

	profile, err := h.profiles.ResolveProfile(c.Request.Context(), subjectID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Profile lookup failed", "subject_id", subjectID, "error", err)
		apierrors.InternalError(c, failure)
		return nil, false
	}
	return profile, true
}

func respondFileError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrFileNotFound):
		apierrors.NotFound(c, "File not found")
	case errors.Is(err, services.ErrAccessDenied):
		apierrors.Forbidden(c, "Access denied")
	case errors.Is(err, services.ErrFileMissing):
		apierrors.NotFound(c, "File not found on server")
	default:
		slog.ErrorContext(c.Request.Context(), fallback, "error", err)
		apierrors.Respond(c, apierrors.Wrap(apierrors.KindUpstream, fallback, err))
	}
}

// parseID reads the :id path parameter. Zero is not a valid id.
func parseID(c *gin.Context, message string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, message)
		return 0, false
	}
	return id, true
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
