package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenMissing           = errors.New("token is missing")
	ErrTokenMalformed         = errors.New("token is malformed")
	ErrTokenSignatureMismatch = errors.New("token signature mismatch")
	ErrTokenExpired           = errors.New("token is expired")
	ErrTokenInvalidClaims     = errors.New("token claims are invalid")
)

// TokenStatus is the tagged outcome of a verification.
type TokenStatus int

const (
	TokenValid TokenStatus = iota
	TokenMissing
	TokenMalformed
	TokenSignatureMismatch
	TokenExpired
	TokenInvalidClaims
)

func (s TokenStatus) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenMissing:
		return "missing"
	case TokenMalformed:
		return "malformed"
	case TokenSignatureMismatch:
		return "signature_mismatch"
	case TokenExpired:
		return "expired"
	case TokenInvalidClaims:
		return "invalid_claims"
	default:
		return "unknown"
	}
}

// StatusOf maps an error returned by Verify to its TokenStatus.
func StatusOf(err error) TokenStatus {
	switch {
	case err == nil:
		return TokenValid
	case errors.Is(err, ErrTokenMissing):
		return TokenMissing
	case errors.Is(err, ErrTokenSignatureMismatch):
		return TokenSignatureMismatch
	case errors.Is(err, ErrTokenExpired):
		return TokenExpired
	case errors.Is(err, ErrTokenInvalidClaims):
		return TokenInvalidClaims
	default:
		return TokenMalformed
	}
}

// Claims is the session payload: who signed in and when.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	// SignInTime is the issue time in Unix milliseconds.
	SignInTime int64 `json:"signInTime"`
}

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	Secret   string
	Issuer   string
	Audience string
	// TTL of zero leaves exp unset; such tokens never expire.
	TTL time.Duration
}

// Issuer mints and verifies HS256 session tokens.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	return &Issuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
}

// Issue returns a signed token for email.
func (i *Issuer) Issue(email string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   i.issuer,
			Audience: jwt.ClaimStrings{i.audience},
			IssuedAt: jwt.NewNumericDate(now),
		},
		Email:      email,
		SignInTime: now.UnixMilli(),
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature and registered claims of tokenString. The
// returned error wraps one of the ErrToken* sentinels; use StatusOf to tag it.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithTimeFunc(i.now),
	}
	if i.ttl > 0 {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.Email == "" {
		return nil, ErrTokenInvalidClaims
	}

	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignatureMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrTokenInvalidClaims, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
