// Package session issues, verifies and revokes the signed principal cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pinboard/internal/cache"
	"pinboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the cookie carrying the signed principal.
	CookieName = "pinboard_session"

	issuer   = "pinboard"
	audience = "pinboard-web"
)

var (
	ErrNoSession    = errors.New("no session")
	ErrInvalidToken = errors.New("invalid or expired session")
	ErrRevoked      = errors.New("session has been revoked")
)

// Principal identifies the acting user for one request.
type Principal struct {
	UserID    uint
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs principals and keeps the revocation list.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	rdb    *redis.Client
	now    func() time.Time
}

// NewManager returns a Manager. rdb may be nil, in which case logout only
// clears the cookie.
func NewManager(secret string, ttl time.Duration, secure bool, rdb *redis.Client) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		rdb:    rdb,
		now:    time.Now,
	}
}

// Issue signs a new principal for the user.
func (m *Manager) Issue(userID uint, username string) (string, *Principal, error) {
	if len(m.secret) == 0 {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := m.now()
	p := &Principal{
		UserID:    userID,
		Username:  username,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl),
	}
	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
			ID:        p.TokenID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return token, p, nil
}

// Parse verifies the token signature, lifetime and revocation status. A
// revocation lookup that fails is logged and the token is accepted.
func (m *Manager) Parse(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || c.ID == "" {
		return nil, ErrInvalidToken
	}

	if m.rdb != nil {
		n, err := m.rdb.Exists(ctx, cache.RevokedSessionKey(c.ID)).Result()
		switch {
		case err != nil:
			middleware.Logger.WarnContext(ctx, "session revocation lookup failed", "error", err.Error())
		case n > 0:
			return nil, ErrRevoked
		}
	}

	return &Principal{
		UserID:    uint(userID),
		Username:  c.Username,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Revoke records the principal's token id until the token would expire anyway.
func (m *Manager) Revoke(ctx context.Context, p *Principal) error {
	if p == nil || m.rdb == nil {
		return nil
	}
	ttl := p.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	if err := m.rdb.Set(ctx, cache.RevokedSessionKey(p.TokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// SetCookie writes token as the session cookie.
func (m *Manager) SetCookie(c *fiber.Ctx, token string, p *Principal) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  p.ExpiresAt,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   m.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FromRequest parses the session cookie of c.
func (m *Manager) FromRequest(c *fiber.Ctx) (*Principal, error) {
	return m.Parse(c.UserContext(), c.Cookies(CookieName))
}
