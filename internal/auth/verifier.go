package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/velmart/backend-store/internal/common"
)

// VerifierConfig configures token verification.
type VerifierConfig struct {
	Secret    string
	Algorithm jwa.SignatureAlgorithm
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Verifier validates bearer tokens issued by the identity service and
// extracts the subject claim. This service never issues tokens itself.
type Verifier struct {
	secret    []byte
	algorithm jwa.SignatureAlgorithm
	validator TokenValidator
	now       func() time.Time
}

// NewVerifier constructs a Verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = jwa.HS256
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		secret:    []byte(secret),
		algorithm: algorithm,
		validator: TokenValidator{
			Issuer:    strings.TrimSpace(cfg.Issuer),
			Audience:  strings.TrimSpace(cfg.Audience),
			ClockSkew: cfg.ClockSkew,
			Algorithm: algorithm,
		},
		now: now,
	}, nil
}

// Subject validates the token and returns its subject (the user id).
func (v *Verifier) Subject(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != v.algorithm {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := v.validator.Validate(parsed, algorithm, v.now()); err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return parsed.Subject(), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if algorithm == "" {
			algorithm = alg
			continue
		}
		if algorithm != alg {
			return "", errors.New("auth: token has mixed signature algorithms")
		}
	}
	return algorithm, nil
}
