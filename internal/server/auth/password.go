// Package auth implements the credential primitives of the server: bcrypt
// password hashing and signed bearer tokens.
package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash of the password. The salt is generated
// by bcrypt and embedded in the output, so two calls with the same input
// produce different strings that both verify.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
// Malformed or empty stored hashes fail the check rather than erroring; the
// comparison itself is constant-time inside bcrypt.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
