package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidAuthToken = errors.New("authorization token invalid")

// AuthClaims carries the account id as the only application claim, expiry
// is checked by whoever parses the token
type AuthClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a bearer token for userID that expires after the configured TTL
func (j *JWTIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("no user ID provided")
	}

	now := j.now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	})

	return t.SignedString(j.secret)
}

// Parse validates signature and expiry of tokenStr and returns the account id
func (j *JWTIssuer) Parse(tokenStr string) (string, error) {
	var claims AuthClaims

	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return j.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w, %w", ErrInvalidAuthToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidAuthToken
	}

	return claims.UserID, nil
}
