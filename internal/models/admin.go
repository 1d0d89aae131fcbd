package models

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrAdminExists is returned by CreateAdmin when the username is taken.
var ErrAdminExists = errors.New("admin with this username already exists")

// Role enum
type Role string

const (
	RoleAdmin Role = "admin"
)

// Admin is a staff account allowed into the admin console.
type Admin struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password    string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Role        Role       `gorm:"size:20;default:'admin'" json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:AdminID" json:"-"`
}

// AdminSanitized is the admin data that is safe to send in API responses.
type AdminSanitized struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Role        Role       `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// SetPassword hashes a password and sets it on the admin
func (a *Admin) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hashedPassword)
	return nil
}

// HasHashedPassword reports whether the stored password is a bcrypt hash.
func (a *Admin) HasHashedPassword() bool {
	return strings.HasPrefix(a.Password, "$2")
}

// CheckPassword compares a password with the stored one. Accounts seeded before
// hashing was introduced hold plaintext; those still verify, and the caller is
// expected to re-hash them with SetPassword.
func (a *Admin) CheckPassword(password string) bool {
	if a.HasHashedPassword() {
		return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) == nil
	}
	return a.Password != "" && subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) == 1
}

// Sanitize creates an AdminSanitized struct, excluding sensitive data.
func (a *Admin) Sanitize() AdminSanitized {
	return AdminSanitized{
		ID:          a.ID,
		Username:    a.Username,
		Role:        a.Role,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

// CreateAdmin stores a new admin with a hashed password.
func CreateAdmin(ctx context.Context, db *gorm.DB, username, password string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	var existing Admin
	err := db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrAdminExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	admin := &Admin{Username: username, Role: RoleAdmin}
	if err := admin.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}
