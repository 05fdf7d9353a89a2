package api

import (
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"net/http"

	"tripchat-backend/internal/crypto"
	"tripchat-backend/internal/storage"
)

// cookiePort adapts one request/response pair to the storage.Port the
// session manager persists through: the anonymous session travels in an
// AES-GCM-sealed cookie, so clients cannot forge or tamper with the owner
// key their history is filed under.
type cookiePort struct {
	w    http.ResponseWriter
	r    *http.Request
	aead cipher.AEAD
}

var _ storage.Port = cookiePort{}

func (p cookiePort) Get(key string) (string, bool, error) {
	c, err := p.r.Cookie(key)
	if err != nil {
		// http.ErrNoCookie is the only error Cookie returns.
		return "", false, nil
	}

	sealed, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return "", false, errors.New("session cookie is not valid base64")
	}
	plaintext, err := crypto.Open(p.aead, sealed)
	if err != nil {
		// Tampered or sealed under an old key; read as "no session".
		return "", false, err
	}
	return string(plaintext), true, nil
}

func (p cookiePort) Set(key, value string) error {
	sealed, err := crypto.Seal(p.aead, []byte(value))
	if err != nil {
		return err
	}
	http.SetCookie(p.w, &http.Cookie{
		Name:     key,
		Value:    base64.RawURLEncoding.EncodeToString(sealed),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // stable across visits until cleared
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (p cookiePort) Remove(key string) error {
	http.SetCookie(p.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
