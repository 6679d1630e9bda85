package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Profile is the application-level user row, linked one-to-one with an
// identity provider subject through AuthUserID.
type Profile struct {
	UserID     uint64    `gorm:"column:userid;primaryKey;autoIncrement" json:"userid"`
	AuthUserID string    `gorm:"column:authuserid;type:varchar(255);uniqueIndex;not null" json:"authuserid"`
	Username   string    `gorm:"type:varchar(50);not null" json:"username"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role       Role      `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Profile) TableName() string {
	return "users"
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
