// Package users holds the API principals the read endpoints authenticate.
package users

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User represents an API principal. Tokens have the form "<id>.<secret>";
// only the bcrypt digest of the secret is stored.
type User struct {
	ID             uint   `gorm:"primaryKey"`
	Email          string `gorm:"uniqueIndex"`
	APITokenDigest string `gorm:"not null"`
	IsAdmin        bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ErrUserExists is returned when attempting to create a user that already exists.
var ErrUserExists = errors.New("user already exists")

// ErrInvalidToken is returned when an API token fails to parse or verify.
var ErrInvalidToken = errors.New("invalid API token")

// FindByEmail retrieves a user by email.
func FindByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID retrieves a user by ID.
func FindByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Create stores a new user and returns the user plus the plaintext API
// token. The token is shown once; only its digest is persisted.
func Create(db *gorm.DB, email, secret string, isAdmin bool) (*User, string, error) {
	if email == "" {
		return nil, "", errors.New("email cannot be empty")
	}
	if secret == "" {
		return nil, "", errors.New("token secret cannot be empty")
	}

	if _, err := FindByEmail(db, email); err == nil {
		return nil, "", ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash token secret: %w", err)
	}

	user := &User{Email: email, APITokenDigest: string(digest), IsAdmin: isAdmin}
	if err := db.Create(user).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	return user, fmt.Sprintf("%d.%s", user.ID, secret), nil
}

// Authenticate resolves a bearer token to a user. Any parse or verification
// failure collapses to ErrInvalidToken so callers cannot distinguish an
// unknown principal from a bad secret.
func Authenticate(db *gorm.DB, token string) (*User, error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := FindByID(db, uint(userID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading user %d: %w", userID, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.APITokenDigest), []byte(secret)) != nil {
		return nil, ErrInvalidToken
	}

	return user, nil
}
