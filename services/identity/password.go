package identity

import "golang.org/x/crypto/bcrypt"

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash without truncation
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// HashPassword returns a salted bcrypt hash of plaintext
func HashPassword(plaintext string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plaintext matches hash. A missing or
// malformed hash never matches.
func VerifyPassword(plaintext string, hash *string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(plaintext)) == nil
}
