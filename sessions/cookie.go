package sessions

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cookieIssuer = "go-tenant-server"

// CookieSigner wraps session ids in short HS256 tokens so a forged or tampered
// cookie never reaches the session store.
type CookieSigner struct {
	key     []byte
	nowTime func() time.Time
}

type cookieClaims struct {
	jwt.RegisteredClaims
}

func NewCookieSigner(key []byte) (*CookieSigner, error) {
	if len(key) < 32 {
		return nil, errors.New("[NewCookieSigner] signing key must be at least 32 bytes")
	}
	return &CookieSigner{key: key, nowTime: time.Now}, nil
}

// Sign returns the cookie value for sessionID, valid for ttl.
func (c *CookieSigner) Sign(sessionID string, ttl time.Duration) (string, error) {
	now := c.nowTime()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cookieIssuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("[CookieSigner.Sign] %w", err)
	}
	return signed, nil
}

// Verify returns the session id inside a cookie value produced by Sign.
func (c *CookieSigner) Verify(value string) (string, error) {
	claims := &cookieClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithTimeFunc(c.nowTime),
	)
	if err != nil {
		return "", fmt.Errorf("[CookieSigner.Verify] %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("[CookieSigner.Verify] invalid session cookie")
	}
	return claims.Subject, nil
}
