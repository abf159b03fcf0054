package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNoSecret means the server side has no credential configured at all.
	ErrNoSecret = errors.New("auth: no secret configured")
	// ErrNoToken means the request carried no bearer credential.
	ErrNoToken = errors.New("auth: missing bearer token")
	// ErrInvalidToken means the presented credential did not match.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Verifier checks bearer credentials against a server-held secret. The secret
// can be held plain or as a bcrypt hash; a presented credential matches if it
// equals the secret directly or is an HS256 JWT signed with it.
type Verifier struct {
	Secret     string
	SecretHash string
}

// Configured reports whether any server-side secret is present.
func (v Verifier) Configured() bool {
	return v.Secret != "" || v.SecretHash != ""
}

// Verify checks one presented credential.
func (v Verifier) Verify(token string) error {
	if !v.Configured() {
		return ErrNoSecret
	}
	if token == "" {
		return ErrNoToken
	}

	if v.SecretHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(v.SecretHash), []byte(token)); err == nil {
			return nil
		}
		return ErrInvalidToken
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(v.Secret)) == 1 {
		return nil
	}
	if v.verifyJWT(token) == nil {
		return nil
	}
	return ErrInvalidToken
}

func (v Verifier) verifyJWT(token string) error {
	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(v.Secret), nil
	})
	return err
}
