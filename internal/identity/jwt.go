package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/pkg/clock"
)

// DefaultTierClaim is the claim that carries the tier.
const DefaultTierClaim = "tier"

// Config configures JWT verification and signing.
type Config struct {
	Secret    []byte
	Issuer    string // optional; enforced when set
	TierClaim string
	Leeway    time.Duration
	Clock     clock.Clock
}

// Verifier validates bearer tokens.
type Verifier struct {
	cfg    Config
	parser *jwt.Parser
}

// NewVerifier creates a Verifier. The secret must not be empty.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("identity: jwt secret is required")
	}
	if cfg.TierClaim == "" {
		cfg.TierClaim = DefaultTierClaim
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(cfg.Clock.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses raw and returns the identity it asserts.
func (v *Verifier) Verify(raw string) (domain.Identity, error) {
	if raw == "" {
		return domain.Identity{}, domain.ErrAuthRequired
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.cfg.Secret, nil
	})
	if err != nil {
		return domain.Identity{}, domain.ErrAuthInvalid.WithCause(err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Identity{}, domain.ErrAuthInvalid.WithDetails("missing subject")
	}
	tier, _ := claims[v.cfg.TierClaim].(string)

	return domain.Identity{UserID: sub, Tier: domain.Tier(tier)}, nil
}

// Sign issues a token for id valid for ttl.
func Sign(cfg Config, id domain.Identity, ttl time.Duration) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errors.New("identity: jwt secret is required")
	}
	if cfg.TierClaim == "" {
		cfg.TierClaim = DefaultTierClaim
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	now := cfg.Clock.Now()

	claims := jwt.MapClaims{
		"sub": id.UserID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if cfg.Issuer != "" {
		claims["iss"] = cfg.Issuer
	}
	if id.Tier != "" {
		claims[cfg.TierClaim] = string(id.Tier)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
