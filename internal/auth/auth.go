package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
)

// Claims carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// Authenticator validates bearer tokens and resolves them to identities.
// It also issues tokens for the login endpoint and for tests.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// CreateToken issues an HS256 access token for the given identity.
func (a *Authenticator) CreateToken(identity domain.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		Name: identity.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a bearer token and extracts the identity. Any
// failure (missing, malformed, expired, wrong signature) maps to
// domain.ErrUnauthorized; the caller must reject the connection attempt
// without creating any session state.
func (a *Authenticator) Authenticate(tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithLeeway(10*time.Second))
	if err != nil || !token.Valid {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return domain.Identity{UserID: claims.Subject, Name: name}, nil
}
