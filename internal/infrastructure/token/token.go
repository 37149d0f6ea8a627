// Package token issues and verifies RS256 access tokens.
//
// The auth service owns an Issuer (private key); the gateway owns a Verifier
// (public key only). Both are pinned to RS256 and to the configured issuer
// and audience.
package token

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
)

const algorithm = "RS256"

// accessClaims is the wire shape of the token payload.
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs access tokens with the private key.
type Issuer struct {
	key      *rsa.PrivateKey
	kid      string
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewIssuer returns an Issuer. ttl is the lifetime of every token it mints.
func NewIssuer(key *rsa.PrivateKey, issuer, audience string, ttl time.Duration) (*Issuer, error) {
	if key == nil {
		return nil, errors.New("token: nil signing key")
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	kid, err := KeyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Issuer{
		key:      key,
		kid:      kid,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue signs claims. Subject, Email and a valid Role are required; the
// issued-at and expiry instants are set here and any values in claims are
// ignored.
func (i *Issuer) Issue(claims domain.Claims) (string, error) {
	if claims.Subject == "" || claims.Email == "" {
		return "", fmt.Errorf("token: subject and email are required")
	}
	if !claims.Role.Valid() {
		return "", fmt.Errorf("token: invalid role %q", claims.Role)
	}

	now := i.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, accessClaims{
		Email: claims.Email,
		Role:  string(claims.Role),
		Name:  claims.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})
	tok.Header["kid"] = i.kid

	signed, err := tok.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// JWK is one RSA public key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet is the body served at /.well-known/jwks.json.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// JWKS publishes the verification key.
func (i *Issuer) JWKS() JWKSet {
	pub := &i.key.PublicKey
	return JWKSet{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Alg: algorithm,
		Kid: i.kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
}

// KeyID derives a stable key id from the public key's DER encoding.
func KeyID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("token: marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:12]), nil
}

// Verifier validates tokens with the public key.
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

// NewVerifier returns a Verifier accepting only RS256 tokens for issuer and
// audience that carry an expiry.
func NewVerifier(key *rsa.PublicKey, issuer, audience string) (*Verifier, error) {
	return newVerifier(key, issuer, audience, time.Now)
}

func newVerifier(key *rsa.PublicKey, issuer, audience string, now func() time.Time) (*Verifier, error) {
	if key == nil {
		return nil, errors.New("token: nil verification key")
	}
	return &Verifier{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{algorithm}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry and returns
// the identity claims. Every failure is domain.ErrUnauthenticated; the cause
// is wrapped for logging.
func (v *Verifier) Verify(raw string) (*domain.Claims, error) {
	if raw == "" {
		return nil, domain.ErrUnauthenticated
	}

	var claims accessClaims
	tok, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !tok.Valid {
		return nil, domain.ErrUnauthenticated
	}

	role := domain.Role(claims.Role)
	if claims.Subject == "" || claims.Email == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: incomplete identity claims", domain.ErrUnauthenticated)
	}

	out := &domain.Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    role,
		Name:    claims.Name,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
