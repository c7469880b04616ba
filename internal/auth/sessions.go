package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/storage"
)

var errInvalidSession = errors.Auth("invalid or expired session, run 'sprout login'")

// Session is the authenticated context handed to every operation on behalf
// of a user. There is no process-wide current user.
type Session struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims are the JWT claims of a session token. Subject holds the username.
type Claims struct {
	jwt.RegisteredClaims
}

// Sessions issues and parses HS256 session tokens
type Sessions struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSessions(key []byte, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTL
	}
	return &Sessions{key: key, ttl: ttl, now: time.Now}
}

// Issue signs a token for username
func (s *Sessions) Issue(username string) (string, Session, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    constants.AppName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, Session{Username: username, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse verifies the token and returns its session
func (s *Sessions) Parse(tokenStr string) (Session, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Session{}, errInvalidSession
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(constants.AppName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Session{}, &errors.Error{Kind: errors.KindAuth, Msg: errInvalidSession.Error(), Err: err}
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Subject == "" {
		return Session{}, errInvalidSession
	}
	return Session{Username: c.Subject, ExpiresAt: c.ExpiresAt.Time}, nil
}

// LoadOrCreateKey reads the hex-encoded signing key at path, generating and
// saving a new random key (0600) if the file does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode session key %s: %w", path, err)
		}
		if len(key) < constants.SessionKeyLength {
			return nil, fmt.Errorf("session key %s is too short", path)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read session key: %w", err)
	}

	key := make([]byte, constants.SessionKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	if err := storage.WriteFileAtomic(path, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("failed to save session key: %w", err)
	}
	return key, nil
}
