package serve

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcus/vault/internal/models"
)

const (
	sessionCookie = "vault_session"
	sessionTTL    = 12 * time.Hour
	tokenVersion  = 1
)

// sessionClaims is the signed token payload. Tokens are stateless: nothing
// is stored server side, so restarting the portal does not invalidate them.
type sessionClaims struct {
	V   int   `json:"v"`
	Iat int64 `json:"iat"`
	Exp int64 `json:"exp"`
}

// mintToken issues a signed session token valid for sessionTTL.
func mintToken(secret []byte, now time.Time) (string, error) {
	claims := sessionClaims{
		V:   tokenVersion,
		Iat: now.Unix(),
		Exp: now.Add(sessionTTL).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + sign(secret, body), nil
}

// verifyToken checks signature, version, and expiry. Every failure maps to
// the same error so callers cannot distinguish forged from expired tokens.
func verifyToken(secret []byte, token string, now time.Time) error {
	body, sig, ok := splitToken(token)
	if !ok {
		return models.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(sign(secret, body)), []byte(sig)) != 1 {
		return models.ErrUnauthorized
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return models.ErrUnauthorized
	}
	var claims sessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return models.ErrUnauthorized
	}
	if claims.V != tokenVersion || now.Unix() >= claims.Exp {
		return models.ErrUnauthorized
	}
	return nil
}

func sign(secret []byte, body string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func splitToken(token string) (body, sig string, ok bool) {
	for i := len(token) - 1; i >= 0; i-- {
		if token[i] == '.' {
			return token[:i], token[i+1:], token[:i] != "" && token[i+1:] != ""
		}
	}
	return "", "", false
}

// setSessionCookie attaches the token as an httpOnly cookie scoped to the
// portal. SameSite=Lax keeps it working for the local web UI while blocking
// cross-site posts.
func setSessionCookie(w http.ResponseWriter, token string, now time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// checkPassword compares the submitted secret against the configured one in
// constant time.
func checkPassword(configured, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(configured), []byte(submitted)) == 1
}
