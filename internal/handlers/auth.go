package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	"github.com/yukikurage/file-hosting-api/internal/dto"
	apierrors "github.com/yukikurage/file-hosting-api/internal/errors"
	"github.com/yukikurage/file-hosting-api/internal/middleware"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register creates an identity subject and its profile. Public
// registration always creates a regular user.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithError(c, apierrors.ErrInvalidInput)
		return
	}

	profile, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Role:     models.RoleUser,
	})
	if err != nil {
		respondAuthError(c, err, "Registration failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    dto.ToUserDTO(*profile),
	})
}

// Login authenticates with email and password, returns the token pair and
// keeps the refresh token in the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithError(c, apierrors.ErrInvalidInput)
		return
	}

	authSession, profile, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err, "Login failed")
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyRefreshToken, authSession.RefreshToken)
	if err := session.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to save session", "error", err)
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Message:      "Login successful",
		AccessToken:  authSession.AccessToken,
		RefreshToken: authSession.RefreshToken,
		ExpiresIn:    authSession.ExpiresIn,
		User:         dto.ToUserDTO(*profile),
	})
}

// Refresh issues a new token pair from the session's refresh token, or
// from the request body when no session is present.
func (h *AuthHandler) Refresh(c *gin.Context) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	session := sessions.Default(c)
	refreshToken, _ := session.Get(constants.SessionKeyRefreshToken).(string)
	if refreshToken == "" {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	authSession, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			session.Delete(constants.SessionKeyRefreshToken)
			_ = session.Save()
			apierrors.Unauthorized(c, "Invalid refresh token")
			return
		}
		slog.ErrorContext(c.Request.Context(), "Token refresh failed", "error", err)
		apierrors.InternalError(c, "Failed to refresh token")
		return
	}

	session.Set(constants.SessionKeyRefreshToken, authSession.RefreshToken)
	if err := session.Save(); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to save session", "error", err)
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken:  authSession.AccessToken,
		RefreshToken: authSession.RefreshToken,
		ExpiresIn:    authSession.ExpiresIn,
	})
}

// Logout revokes the bearer token, if any, and clears the session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		slog.ErrorContext(c.Request.Context(), "Sign out failed", "error", err)
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the caller's profile.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	subjectID, exists := middleware.GetSubjectID(c)
	if !exists {
		apierrors.Unauthorized(c, "Access token required")
		return
	}

	profile, err := h.authService.ResolveProfile(c.Request.Context(), subjectID)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Profile lookup failed", "subject_id", subjectID, "error", err)
		apierrors.InternalError(c, "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": dto.ToUserDTO(*profile),
	})
}

// respondAuthError maps registration and login failures. fallback is the
// message used for anything that is not a client error.
func respondAuthError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrMissingRegistrationFields):
		apierrors.BadRequest(c, "Email, password, and username are required")
	case errors.Is(err, services.ErrMissingCredentials):
		apierrors.BadRequest(c, "Email and password are required")
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrUsernameTooLong):
		apierrors.BadRequest(c, fmt.Sprintf("Username must be at most %d characters", constants.MaxUsernameLength))
	case errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, "Role must be user or admin")
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.BadRequest(c, "User already registered")
	case errors.Is(err, services.ErrRegistrationRejected):
		apierrors.BadRequest(c, "Registration rejected")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Unauthorized(c, "Invalid email or password")
	default:
		slog.ErrorContext(c.Request.Context(), fallback, "error", err)
		apierrors.Respond(c, apierrors.Wrap(apierrors.KindUpstream, fallback, err))
	}
}
