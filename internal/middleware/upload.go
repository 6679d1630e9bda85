package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	apierrors "github.com/yukikurage/file-hosting-api/internal/errors"
	"github.com/yukikurage/file-hosting-api/internal/storage"
	"github.com/yukikurage/file-hosting-api/internal/utils"
)

// multipartOverhead is the allowance for boundaries and headers on top of
// the file itself.
const multipartOverhead = 1 << 20

// SingleFile accepts at most one file in the "file" field, writes it to store
// under a generated name and puts a *storage.Object in the context. A request
// with no such field passes through without an object.
func SingleFile(store storage.Store, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

		fh, err := c.FormFile(constants.UploadFieldName)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				apierrors.PayloadTooLarge(c, "File too large")
				return
			}
			c.Next()
			return
		}
		defer func() {
			if c.Request.MultipartForm != nil {
				c.Request.MultipartForm.RemoveAll()
			}
		}()

		if fh.Size > maxBytes {
			apierrors.PayloadTooLarge(c, "File too large")
			return
		}

		src, err := fh.Open()
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "Failed to open multipart file",
				"error", err, "request_id", c.GetString(constants.ContextKeyRequestID))
			apierrors.InternalError(c, "Failed to upload file")
			return
		}
		defer src.Close()

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = constants.DefaultContentType
		}
		filename := utils.StoredFilename(fh.Filename, time.Now())

		path, err := store.Save(c.Request.Context(), filename, src, fh.Size, contentType)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "Failed to store upload",
				"error", err, "filename", filename, "request_id", c.GetString(constants.ContextKeyRequestID))
			apierrors.InternalError(c, "Failed to upload file")
			return
		}

		c.Set(constants.ContextKeyUpload, &storage.Object{
			Filename:     filename,
			OriginalName: fh.Filename,
			Path:         path,
			Size:         fh.Size,
			MimeType:     contentType,
		})
		c.Next()
	}
}

// GetUpload retrieves the object stored by SingleFile
func GetUpload(c *gin.Context) (*storage.Object, bool) {
	v, exists := c.Get(constants.ContextKeyUpload)
	if !exists {
		return nil, false
	}
	obj, ok := v.(*storage.Object)
	return obj, ok && obj != nil
}
