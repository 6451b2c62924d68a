package signer

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clearauth/token-service/application/port/outbound"
)

var (
	ErrMissingSigningKey = errors.New("signing key is required")
	ErrMissingIssuer     = errors.New("issuer is required")
	ErrMissingAudience   = errors.New("audience is required")
	ErrInvalidTTL        = errors.New("token TTL must be positive")
)

// Config is the immutable signing configuration. It is validated once at
// construction; a bad value is a startup fault, never a request-time one.
type Config struct {
	Key      string
	Issuer   string
	Audience string
	TokenTTL time.Duration
}

// JWTSigner mints HS256 access tokens carrying sub, jti, iat, exp, iss
// and aud claims.
type JWTSigner struct {
	key      []byte
	issuer   string
	audience string
	tokenTTL time.Duration
}

func NewJWTSigner(cfg Config) (*JWTSigner, error) {
	if cfg.Key == "" {
		return nil, ErrMissingSigningKey
	}
	if cfg.Issuer == "" {
		return nil, ErrMissingIssuer
	}
	if cfg.Audience == "" {
		return nil, ErrMissingAudience
	}
	if cfg.TokenTTL <= 0 {
		return nil, ErrInvalidTTL
	}

	return &JWTSigner{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		tokenTTL: cfg.TokenTTL,
	}, nil
}

func (s *JWTSigner) Mint(subjectID string, now time.Time) (outbound.SignedToken, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subjectID,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return outbound.SignedToken{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return outbound.SignedToken{
		Token:     signed,
		ExpiresIn: int(s.tokenTTL.Seconds()),
	}, nil
}

// GenerateRefreshValue returns a 256-bit random value encoded as a
// base64url string, unguessable and unique for practical purposes.
func (s *JWTSigner) GenerateRefreshValue() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
