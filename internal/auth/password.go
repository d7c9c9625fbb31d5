package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

var (
	// ErrPasswordTooShort indicates a password below the minimum length.
	ErrPasswordTooShort = fmt.Errorf("password should be at least %d characters", minPasswordLength)
	// ErrPasswordTooLong indicates a password bcrypt would silently truncate.
	ErrPasswordTooLong = fmt.Errorf("password should be at most %d bytes", maxPasswordLength)
	// ErrPasswordContainsEmail indicates the password embeds the account email.
	ErrPasswordContainsEmail = errors.New("password should not contain e-mail")
)

// ValidatePassword applies the account password policy.
func ValidatePassword(password, email string) error {
	switch {
	case len(password) < minPasswordLength:
		return ErrPasswordTooShort
	case len(password) > maxPasswordLength:
		return ErrPasswordTooLong
	case email != "" && strings.Contains(strings.ToLower(password), strings.ToLower(email)):
		return ErrPasswordContainsEmail
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
