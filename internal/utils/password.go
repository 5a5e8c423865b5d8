package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor used for new digests.
var passwordCost = bcrypt.DefaultCost

// ErrPasswordTooLong is returned for inputs bcrypt cannot hash.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword returns a salted bcrypt digest of password. Each call uses a
// fresh salt, so hashing the same input twice yields different digests.
func HashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// CheckPasswordHash reports whether password matches digest. Malformed
// digests never match.
func CheckPasswordHash(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
