package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements Hasher using bcrypt. bcrypt embeds its own salt in
// the produced hash, so two hashes of the same secret never match byte-wise.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost.
// A cost below bcrypt.MinCost falls back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// NewDefaultHasher creates a BcryptHasher with the default cost
func NewDefaultHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.DefaultCost)
}

// Hash implements Hasher.Hash
func (h *BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Verify implements Hasher.Verify
func (h *BcryptHasher) Verify(secret, hashedSecret string) (bool, error) {
	if secret == "" || hashedSecret == "" {
		return false, errors.New("secret and hashed secret cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Secret doesn't match, but not an error
		}
		return false, err
	}

	return true, nil
}
