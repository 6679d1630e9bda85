// Package local is a self-hosted identity.Provider: bcrypt credentials in the
// application database and HS256 JWTs. It serves development and tests when
// no hosted auth project is available.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yukikurage/file-hosting-api/internal/identity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Credential is the provider's own subject record.
type Credential struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (Credential) TableName() string {
	return "auth_credentials"
}

// Claims carries the subject, its email and the token type.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Type  string `json:"typ"`
}

// Config controls token lifetimes and hashing cost.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Provider implements identity.Provider on top of gorm.
type Provider struct {
	db    *gorm.DB
	cfg   Config
	nowFn func() time.Time
}

var _ identity.Provider = (*Provider)(nil)

// New creates a Provider. Zero durations and cost fall back to 1h, 30d and
// bcrypt.DefaultCost.
func New(db *gorm.DB, cfg Config) *Provider {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Provider{db: db, cfg: cfg, nowFn: time.Now}
}

// Migrate creates the credentials table.
func (p *Provider) Migrate() error {
	return p.db.AutoMigrate(&Credential{})
}

// SignUp stores a new credential.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*identity.Subject, error) {
	email = normalizeEmail(email)

	var count int64
	if err := p.db.WithContext(ctx).Model(&Credential{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, identity.ErrAlreadyRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", identity.ErrRejected, err)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.db.WithContext(ctx).Create(cred).Error; err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	return &identity.Subject{ID: cred.ID, Email: cred.Email}, nil
}

// SignIn verifies the password and issues a token pair.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	var cred Credential
	err := p.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, identity.ErrInvalidCredentials
	}

	return p.issue(cred.ID, cred.Email)
}

// Refresh validates a refresh token and issues a new pair. Unlike Resolve
// it checks the credential still exists.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	claims, err := p.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	var cred Credential
	err = p.db.WithContext(ctx).Where("id = ?", claims.Subject).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, identity.ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	return p.issue(cred.ID, cred.Email)
}

// SignOut is a no-op: tokens are stateless and expire on their own.
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	return nil
}

// Resolve checks signature, expiry and token type only.
func (p *Provider) Resolve(ctx context.Context, accessToken string) (*identity.Subject, error) {
	claims, err := p.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return &identity.Subject{ID: claims.Subject, Email: claims.Email}, nil
}

// DeleteSubject removes the credential.
func (p *Provider) DeleteSubject(ctx context.Context, subjectID string) error {
	result := p.db.WithContext(ctx).Where("id = ?", subjectID).Delete(&Credential{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete credential: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return identity.ErrSubjectNotFound
	}
	return nil
}

func (p *Provider) issue(subjectID, email string) (*identity.Session, error) {
	access, err := p.sign(subjectID, email, tokenTypeAccess, p.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := p.sign(subjectID, email, tokenTypeRefresh, p.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &identity.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(p.cfg.AccessTTL / time.Second),
		Subject:      identity.Subject{ID: subjectID, Email: email},
	}, nil
}

func (p *Provider) sign(subjectID, email, typ string, ttl time.Duration) (string, error) {
	now := p.nowFn()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Type:  typ,
	})

	signed, err := token.SignedString(p.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (p *Provider) parse(tokenString, typ string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return p.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.nowFn))
	if err != nil || !token.Valid {
		return nil, identity.ErrInvalidToken
	}
	if claims.Type != typ || claims.Subject == "" {
		return nil, identity.ErrInvalidToken
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
