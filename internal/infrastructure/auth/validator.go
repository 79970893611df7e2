package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid session token")

// sessionClaims are the claims carried by a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
}

// SessionValidator validates HS256 session tokens issued by the identity
// service. Tokens are validated only; this service never mints them.
type SessionValidator struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
	logger    zerolog.Logger
}

// NewSessionValidator builds a validator for session bearer tokens.
func NewSessionValidator(secret []byte, issuer, audience string, clockSkew time.Duration, logger zerolog.Logger) *SessionValidator {
	return &SessionValidator{
		secret:    secret,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		logger:    logger,
	}
}

// Validate checks signature, expiry, issuer and audience, and returns the
// caller identity the token asserts.
func (v *SessionValidator) Validate(ctx context.Context, token string) (domain.Principal, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.clockSkew),
	)
	if err != nil {
		v.logger.Debug().Err(err).Msg("session token rejected")
		return domain.Principal{}, errors.Join(ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.Principal{}, ErrInvalidToken
	}

	return domain.Principal{
		ID:      claims.Subject,
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
		Email:   claims.Email,
		Name:    claims.Name,
		Scopes:  claims.Scopes,
	}, nil
}

func (v *SessionValidator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return v.secret, nil
}
