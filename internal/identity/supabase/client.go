// Package supabase implements identity.Provider against the hosted auth
// (GoTrue) REST API.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	auth "github.com/supabase-community/auth-go"
	"github.com/supabase-community/auth-go/types"

	"github.com/yukikurage/file-hosting-api/internal/identity"
)

const authPath = "/auth/v1"

// Config holds the project URL and keys.
type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
}

// Client talks to the auth endpoints of one project.
type Client struct {
	anon  auth.Client
	admin auth.Client
}

var _ identity.Provider = (*Client)(nil)

// New creates a Client. ServiceRoleKey may be empty; only DeleteSubject needs it.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.URL, "/") + authPath
	httpClient := http.Client{Timeout: timeout}

	c := &Client{
		anon: auth.New("", cfg.AnonKey).WithCustomAuthURL(baseURL).WithClient(httpClient),
	}
	if cfg.ServiceRoleKey != "" {
		c.admin = auth.New("", cfg.ServiceRoleKey).
			WithCustomAuthURL(baseURL).
			WithClient(httpClient).
			WithToken(cfg.ServiceRoleKey)
	}
	return c
}

// SignUp registers a new subject.
func (c *Client) SignUp(ctx context.Context, email, password string) (*identity.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.anon.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		if isClientError(err) {
			if isAlreadyRegistered(err) {
				return nil, fmt.Errorf("%w: %v", identity.ErrAlreadyRegistered, err)
			}
			return nil, fmt.Errorf("%w: %v", identity.ErrRejected, err)
		}
		return nil, fmt.Errorf("supabase auth: signup: %w", err)
	}

	user := resp.User
	if user.ID == uuid.Nil {
		user = resp.Session.User
	}
	if user.ID == uuid.Nil {
		return nil, errors.New("supabase auth: signup response has no user id")
	}
	return toSubject(user), nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.anon.SignInWithEmailPassword(email, password)
	if err != nil {
		if isClientError(err) || errors.Is(err, types.ErrInvalidTokenRequest) {
			return nil, fmt.Errorf("%w: %v", identity.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("supabase auth: sign in: %w", err)
	}
	return toSession(resp.Session)
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.anon.RefreshToken(refreshToken)
	if err != nil {
		if isClientError(err) || errors.Is(err, types.ErrInvalidTokenRequest) {
			return nil, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
		}
		return nil, fmt.Errorf("supabase auth: refresh: %w", err)
	}
	return toSession(resp.Session)
}

// SignOut revokes the session belonging to accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.anon.WithToken(accessToken).Logout()
	if err == nil {
		return nil
	}
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}
	return fmt.Errorf("supabase auth: sign out: %w", err)
}

// Resolve validates accessToken and returns its subject.
func (c *Client) Resolve(ctx context.Context, accessToken string) (*identity.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.anon.WithToken(accessToken).GetUser()
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
		}
		return nil, fmt.Errorf("supabase auth: get user: %w", err)
	}
	if resp.ID == uuid.Nil {
		return nil, identity.ErrInvalidToken
	}
	return toSubject(resp.User), nil
}

// DeleteSubject removes a subject using the service role key.
func (c *Client) DeleteSubject(ctx context.Context, subjectID string) error {
	if c.admin == nil {
		return identity.ErrAdminUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	id, err := uuid.Parse(subjectID)
	if err != nil {
		return fmt.Errorf("%w: %q is not a user id", identity.ErrSubjectNotFound, subjectID)
	}

	err = c.admin.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: id})
	if err == nil {
		return nil
	}
	switch statusOf(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", identity.ErrSubjectNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", identity.ErrAdminUnavailable, err)
	}
	return fmt.Errorf("supabase auth: delete user: %w", err)
}

func toSubject(u types.User) *identity.Subject {
	return &identity.Subject{ID: u.ID.String(), Email: u.Email}
}

func toSession(s types.Session) (*identity.Session, error) {
	if s.AccessToken == "" || s.User.ID == uuid.Nil {
		return nil, errors.New("supabase auth: token response is missing the session")
	}
	return &identity.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    int64(s.ExpiresIn),
		Subject:      *toSubject(s.User),
	}, nil
}

// The client reports non-2xx responses as "response status code N: body".
var statusPattern = regexp.MustCompile(`^response status code (\d{3})`)

// statusOf returns the upstream HTTP status carried by err, or 0 when err
// did not come from a response (transport failure, decode error).
func statusOf(err error) int {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	status, _ := strconv.Atoi(m[1])
	return status
}

func isClientError(err error) bool {
	status := statusOf(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

func isAlreadyRegistered(err error) bool {
	text := strings.ToLower(err.Error())
	for _, marker := range []string{"user_already_exists", "email_exists", "already registered"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
