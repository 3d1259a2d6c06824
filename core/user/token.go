package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pkg/errors"
)

var (
	salt = []byte("reportdesk.core.user.refresh_token")

	// errors
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// fingerprint is the keyed hash of a refresh token stored in place of the token itself.
func fingerprint(secret []byte, token string) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, salt...), secret...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write([]byte(token)); err != nil {
		return "", errors.Wrap(err, "hashing refresh token")
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func verifyFingerprint(secret []byte, stored, token string) error {
	if stored == "" || token == "" {
		return ErrInvalidRefreshToken
	}
	fp, err := fingerprint(secret, token)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(fp), []byte(stored)) == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}
