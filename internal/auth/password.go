package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost matches the cost used for every stored credential. Changing it
// only affects newly hashed passwords; verification reads the cost from the
// hash itself.
const bcryptCost = 12

// HashPassword salts and hashes a plaintext password. Each call produces a
// different hash for the same input.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches the stored hash. A
// mismatch is not an error.
func VerifyPassword(plaintext string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
