package auth

import "golang.org/x/crypto/bcrypt"

// Hasher is the one-way credential hasher shared by worker PINs and admin
// passwords. There is no decrypt operation; verification re-hashes and
// compares in constant time.
type Hasher struct {
	cost int
}

func NewHasher() Hasher {
	return Hasher{cost: bcrypt.DefaultCost}
}

func (h Hasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

func (h Hasher) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
