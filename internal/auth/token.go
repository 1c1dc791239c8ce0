package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/solspore/gaming/internal/domain"
)

// sessionClaims is the signed payload carried inside a session token.
type sessionClaims struct {
	UserID    string      `json:"uid"`
	Role      domain.Role `json:"role"`
	ExpiresAt int64       `json:"exp"`
}

// TokenIssuer signs and verifies session tokens. Tokens have the shape
// base64url(claims).base64url(HMAC-SHA256(claims)).
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer signing with secret. Tokens expire
// after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed session token for the given identity.
func (ti *TokenIssuer) Issue(identity domain.Identity) (string, error) {
	claims := sessionClaims{
		UserID:    identity.UserID,
		Role:      identity.Role,
		ExpiresAt: time.Now().Add(ti.ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("auth: marshal claims: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + ti.sign(encoded), nil
}

// Verify checks the token's signature and expiry and returns the embedded
// identity. Any failure maps to domain.ErrUnauthorized.
func (ti *TokenIssuer) Verify(token string) (domain.Identity, error) {
	encoded, sig, found := strings.Cut(token, ".")
	if !found {
		return domain.Identity{}, fmt.Errorf("auth: malformed token: %w", domain.ErrUnauthorized)
	}

	if !hmac.Equal([]byte(ti.sign(encoded)), []byte(sig)) {
		return domain.Identity{}, fmt.Errorf("auth: bad signature: %w", domain.ErrUnauthorized)
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("auth: decode token: %w", domain.ErrUnauthorized)
	}

	var claims sessionClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return domain.Identity{}, fmt.Errorf("auth: unmarshal claims: %w", domain.ErrUnauthorized)
	}

	if time.Now().Unix() >= claims.ExpiresAt {
		return domain.Identity{}, fmt.Errorf("auth: token expired: %w", domain.ErrUnauthorized)
	}

	return domain.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

func (ti *TokenIssuer) sign(encoded string) string {
	mac := hmac.New(sha256.New, ti.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
