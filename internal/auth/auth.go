// Package auth verifies the configured username/password before the
// caller requests the session transition to session.LoggedIn, and
// mints a short-lived bearer token the REST admin surface
// (internal/admin) accepts on its inject and status endpoints.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials  = errors.New("auth: invalid username or password")
	ErrInvalidToken        = errors.New("auth: invalid token")
	ErrExpiredToken        = errors.New("auth: token has expired")
	ErrInvalidSecretLength = errors.New("auth: secret must be at least 32 characters")
)

// Credentials is the configured username/password pair a Verifier checks
// a Logon attempt against.
type Credentials struct {
	Username string
	Password string
}

// Config holds the Verifier's signing parameters.
type Config struct {
	// Secret is the HMAC signing key for minted tokens. Must be at
	// least 32 characters.
	Secret string

	// Issuer is the token issuer claim. Default: "fix44".
	Issuer string

	// TokenDuration is the session token lifetime. Default: 1 hour,
	// generously longer than any single FIX session's Logon/Logout
	// handshake window.
	TokenDuration time.Duration
}

// Verifier authenticates a configured Credentials pair and mints a
// bearer token admitting the resulting session to the REST admin surface.
type Verifier struct {
	creds  Credentials
	config Config
}

// New returns a Verifier checking attempts against creds.
func New(creds Credentials, config Config) (*Verifier, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if config.Issuer == "" {
		config.Issuer = "fix44"
	}
	if config.TokenDuration == 0 {
		config.TokenDuration = time.Hour
	}
	return &Verifier{creds: creds, config: config}, nil
}

// claims carries the session identity a minted token asserts.
type claims struct {
	jwt.RegisteredClaims
	ConnectionName string `json:"conn"`
}

// Ready checks username/password against the configured Credentials and,
// on success, mints a bearer token scoped to connectionName. The caller
// (cmd/fixcli's connect flow) should send session.LoggedIn on the
// Connection's Target channel only once Ready returns without error, so
// an outbound Logon is held until authentication signals readiness.
func (v *Verifier) Ready(connectionName, username, password string) (token string, err error) {
	if username != v.creds.Username || password != v.creds.Password {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.config.Issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.config.TokenDuration)),
		},
		ConnectionName: connectionName,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString([]byte(v.config.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a bearer token minted by Ready and returns the
// connection name it was scoped to. internal/admin's middleware calls
// this to gate POST /inject and GET /status.
func (v *Verifier) Verify(token string) (connectionName string, err error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(v.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	return c.ConnectionName, nil
}
