package utils

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

// CheckPassword reports whether password matches the bcrypt hash. An empty hash never matches.
func CheckPassword(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// CheckAdminCredentials validates a login attempt against the configured admin account.
func CheckAdminCredentials(username, passwordHash, gotUsername, gotPassword string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(gotUsername)) == 1
	passOK := CheckPassword(passwordHash, gotPassword)
	return userOK && passOK
}
