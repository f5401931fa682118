// Package password hashes and verifies credentials for both the
// admin-panel bootstrap credential carried in domain.AdminConfig and
// the SQL authentication backend's name/password check.
package password

import "golang.org/x/crypto/bcrypt"

const cost = 12

func Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// MeetsMinimumStrength enforces the scaffold's bootstrap requirement
// that an admin password be at least 8 characters.
func MeetsMinimumStrength(plaintext string) bool {
	return len(plaintext) >= 8
}
