package dto

import (
	"github.com/yukikurage/file-hosting-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64      `json:"id"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// ToUserDTO converts a profile to its public projection
func ToUserDTO(profile models.Profile) UserDTO {
	return UserDTO{
		ID:       profile.UserID,
		Email:    profile.Email,
		Username: profile.Username,
		Role:     profile.Role,
	}
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Message      string  `json:"message"`
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	ExpiresIn    int64   `json:"expiresIn,omitempty"`
	User         UserDTO `json:"user"`
}

// TokenResponse is returned by a successful refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}
