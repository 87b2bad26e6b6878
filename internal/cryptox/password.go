// Package cryptox holds the credential primitives of the service: bcrypt
// password hashing and random single-use verification tokens.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/webapp/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for every stored password.
const PasswordCost = 10

// maxBcryptInput is the longest input bcrypt accepts.
const maxBcryptInput = 72

// verificationTokenBytes is the amount of entropy in a verification token.
const verificationTokenBytes = 32

// Hasher hashes passwords and checks candidates against stored hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// BcryptHasher implements Hasher with a fixed bcrypt cost.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: PasswordCost}
}

// Hash returns the salted bcrypt hash of password. Passwords longer than
// bcrypt's 72 byte input are digested first, so every byte counts.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Compare reports whether password matches hash. The comparison is constant time.
func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)) == nil
}

func bcryptInput(password string) []byte {
	if len(password) <= maxBcryptInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// NewVerificationToken returns an opaque hex token for email verification.
func NewVerificationToken() (string, error) {
	return common.MakeRandHexString(verificationTokenBytes)
}
