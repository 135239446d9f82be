package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// User scopes
const (
	InfluencerScope = "influencer"
	AdvertiserScope = "advertiser"
	AdminScope      = "admin"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidPass  = errors.New("invalid password")
	ErrInvalidScope = errors.New("invalid scope")
	ErrEmailExists  = errors.New("email already registered")
	ErrUnauthorized = errors.New("unauthorized")
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Scope string `json:"scope"`

	// Notification preferences
	OfferPing       bool `json:"offerPing,omitempty"`
	ApplicationPing bool `json:"applicationPing,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

func (u *User) Check() error {
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	switch u.Scope {
	case InfluencerScope, AdvertiserScope, AdminScope:
	default:
		return ErrInvalidScope
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Scope == AdminScope
}

type Login struct {
	UserID   string `json:"userID"`
	Password string `json:"password"` // bcrypt hash
}

func HashPassword(pass string) (string, error) {
	if len(pass) < 8 {
		return "", ErrInvalidPass
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	return string(h), err
}

func CheckPassword(hashed, pass string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pass)) == nil
}
