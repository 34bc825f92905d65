package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-wishlist/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-wishlist/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// IssuedToken is a signed session token plus its lifetime in seconds.
type IssuedToken struct {
	Token     string
	ExpiresIn int
	ExpiresAt time.Time
}

// TokenService signs and verifies storefront session tokens. It holds no
// state beyond the signing secret and is safe for concurrent use.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService validates the signing material up front.
func NewTokenService(cfg config.SessionConfig) (*TokenService, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "session signing secret is required")
	}
	return &TokenService{secret: []byte(secret), issuer: cfg.Issuer}, nil
}

// Issue mints a token for shop and subjectID valid for TTLFor(subjectID).
func (s *TokenService) Issue(shop string, subjectID *string, now time.Time) (IssuedToken, error) {
	if strings.TrimSpace(shop) == "" {
		return IssuedToken{}, pkgerrors.New(pkgerrors.CodeValidation, "shop is required to issue a session")
	}

	ttl := TTLFor(subjectID)
	// exp/iat are whole seconds on the wire.
	now = now.Truncate(time.Second)
	expiresAt := now.Add(ttl)

	claims := SessionClaims{
		Shop:      shop,
		SubjectID: subjectID,
		Kind:      KindStorefront,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "signing session token")
	}
	return IssuedToken{
		Token:     signed,
		ExpiresIn: int(ttl / time.Second),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the signature and algorithm, then re-checks expiry against now.
func (s *TokenService) Verify(tokenString string, now time.Time) (*SessionClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token is required")
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token")
	}

	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token expired")
	}
	if claims.Kind != KindStorefront {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected session kind")
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected session issuer")
	}
	if strings.TrimSpace(claims.Shop) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token missing shop")
	}
	return claims, nil
}

// LooksLikeToken reports whether value has the three-segment JWT shape.
func LooksLikeToken(value string) bool {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
