package password

// Hasher defines the interface for one-way salted hash implementations.
// The 2FA core uses it both for current-password checks and for hashing
// backup codes at rest.
type Hasher interface {
	// Hash hashes a secret
	Hash(secret string) (string, error)

	// Verify checks if the provided secret matches the stored hash
	Verify(secret, hashedSecret string) (bool, error)
}
