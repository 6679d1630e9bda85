package constants

// Context keys
const (
	ContextKeySubjectID   = "subject_id"
	ContextKeyAccessToken = "access_token"
	ContextKeyProfile     = "profile"
	ContextKeyUpload      = "upload"
	ContextKeyRequestID   = "request_id"
)

// Session
const (
	SessionCookieName      = "file_session"
	SessionKeyRefreshToken = "refresh_token"
)

// Validation
const (
	MinPasswordLength = 6
	MaxUsernameLength = 50
)

// Uploads
const (
	UploadFieldName    = "file"
	DefaultMaxUpload   = 10 * 1024 * 1024
	DefaultContentType = "application/octet-stream"
)
