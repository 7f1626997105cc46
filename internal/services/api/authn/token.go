// Package authn issues and verifies the API's JWT bearer tokens and guards
// HTTP routes with them.
package authn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tariffdesk/tariffdesk/internal/platform/config"
	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

// MinSecretLength is the shortest accepted HMAC secret in bytes.
const MinSecretLength = 32

// Config defines how tokens are signed.
type Config struct {
	Secret string        `env:"TARIFFDESK_JWT_SECRET"`
	Issuer string        `env:"TARIFFDESK_JWT_ISSUER" envDefault:"tariffdesk"`
	TTL    time.Duration `env:"TARIFFDESK_JWT_TTL" envDefault:"72h"`
}

// LoadConfigFromEnv reads and validates token configuration.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the secret length and TTL.
func (c Config) Validate() error {
	if len(c.Secret) < MinSecretLength {
		return fmt.Errorf("TARIFFDESK_JWT_SECRET must be at least %d bytes", MinSecretLength)
	}
	if strings.TrimSpace(c.Issuer) == "" {
		return errors.New("TARIFFDESK_JWT_ISSUER is required")
	}
	if c.TTL <= 0 {
		return errors.New("TARIFFDESK_JWT_TTL must be positive")
	}
	return nil
}

// Claims are the verified contents of a token.
type Claims struct {
	Email     string
	Role      user.Role
	ExpiresAt time.Time
}

// Token is a signed token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer validates cfg and returns an issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// TTL is how long issued tokens stay valid.
func (i *Issuer) TTL() time.Duration {
	return i.cfg.TTL
}

// Issue signs a token for u.
func (i *Issuer) Issue(u user.User) (Token, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.cfg.TTL)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(u.Role),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature, issuer and expiry of token.
func (i *Issuer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errMissingToken
	}
	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return []byte(i.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Claims{}, apperrors.New(apperrors.CodeTokenInvalid, "the JWT token has no subject")
	}
	return Claims{
		Email:     parsed.Subject,
		Role:      user.Role(parsed.Role),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}

var errMissingToken = apperrors.New(apperrors.CodeUnauthenticated, "authentication required")

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.New(apperrors.CodeTokenExpired, "the JWT token has expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.New(apperrors.CodeTokenInvalid, "the JWT signature is invalid")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.New(apperrors.CodeTokenInvalid, "the JWT token is malformed")
	default:
		return apperrors.New(apperrors.CodeTokenInvalid, "the JWT token is invalid")
	}
}
