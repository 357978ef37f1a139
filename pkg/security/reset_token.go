package security

import (
	"crypto/sha256"
	"encoding/hex"

	"bitwise74/auth-api/pkg/util"
)

const (
	resetTokenSize = 32 // 256 bits
)

// ResetTokenGenerator creates reset tokens. Only Hash output is ever stored,
// the plaintext goes out in the reset link and nowhere else
type ResetTokenGenerator interface {
	Generate() (token, hash string, err error)
	Hash(token string) string
}

type ResetTokens struct{}

func NewResetTokens() *ResetTokens {
	return &ResetTokens{}
}

// Generate returns a fresh 64 character hex token and its hash
func (ResetTokens) Generate() (token, hash string, err error) {
	token, err = util.GenerateToken(resetTokenSize)
	if err != nil {
		return "", "", err
	}

	return token, HashResetToken(token), nil
}

func (ResetTokens) Hash(token string) string {
	return HashResetToken(token)
}

// HashResetToken is the hex encoded sha256 of token
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
