// Package invitetoken signs and verifies the links sent to invitees.
package invitetoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "stratagrc"

var (
	// ErrInvalid covers malformed, tampered and wrongly signed tokens.
	ErrInvalid = errors.New("invitation token is invalid")
	// ErrExpired means the token was well formed but is past its expiry.
	ErrExpired = errors.New("invitation token has expired")
)

// Claims carried by an invitation token.
type Claims struct {
	jwt.RegisteredClaims
	Invitation string `json:"inv"`
	Org        string `json:"org"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

// Issuer signs invitation tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New returns an Issuer. ttl is the token lifetime.
func New(secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("invite secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("invite ttl must be positive")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for the given invitation. The returned time is the
// token's expiry.
func (i *Issuer) Issue(invitationID, orgID, email, role string) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Invitation: invitationID,
		Org:        orgID,
		Email:      email,
		Role:       role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign invitation: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Invitation == "" || claims.Org == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalid)
	}
	return claims, nil
}
