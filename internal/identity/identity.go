// Package identity defines the contract with the service that owns
// credentials and bearer tokens. The application never stores passwords
// itself; it only keeps the subject id a provider hands back.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when a bearer token is malformed, expired or revoked.
	ErrInvalidToken = errors.New("identity: invalid or expired token")
	// ErrInvalidCredentials is returned when email and password do not match.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	// ErrAlreadyRegistered is returned when the email already has a subject.
	ErrAlreadyRegistered = errors.New("identity: email already registered")
	// ErrRejected is returned when the provider refuses a request for a reason
	// other than the ones above (weak password, malformed email, rate limit).
	ErrRejected = errors.New("identity: request rejected")
	// ErrSubjectNotFound is returned when deleting a subject the provider does not know.
	ErrSubjectNotFound = errors.New("identity: subject not found")
	// ErrAdminUnavailable is returned when an elevated call is made without
	// elevated credentials.
	ErrAdminUnavailable = errors.New("identity: admin credentials not configured")
)

// Subject is an authenticated principal as the provider knows it.
type Subject struct {
	ID    string
	Email string
}

// Session is the token pair issued on sign-in or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	Subject      Subject
}

// Provider is the identity service the API delegates to.
type Provider interface {
	// SignUp creates a subject for email/password.
	SignUp(ctx context.Context, email, password string) (*Subject, error)

	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (*Session, error)

	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)

	// SignOut revokes the session the access token belongs to.
	SignOut(ctx context.Context, accessToken string) error

	// Resolve validates an access token and returns its subject.
	Resolve(ctx context.Context, accessToken string) (*Subject, error)

	// DeleteSubject removes a subject and, with it, its outstanding sessions.
	DeleteSubject(ctx context.Context, subjectID string) error
}
