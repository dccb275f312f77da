// Package tokens issues and verifies the portal's own HS256 access tokens.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/pkg/middleware"
)

const issuer = "staffportal"

// GenerateAccessToken creates a signed JWT access token for the user. The
// "uid" and "role" claims let requests resolve a principal without a lookup.
func GenerateAccessToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   issuer,
		"sub":   u.Sub,
		"uid":   u.ID,
		"role":  u.Role,
		"name":  u.DisplayName(),
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ExpiresAt reads the exp claim without checking the signature; callers must
// have verified the token already.
func ExpiresAt(raw string) (time.Time, error) {
	var claims jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("exp claim not present")
	}
	return exp.Time, nil
}

type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Verifier checks tokens issued by GenerateAccessToken.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
		),
	}
}

func (v *Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	var claims jwt.MapClaims
	if _, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}); err != nil {
		return nil, err
	}
	return &claimsToken{claims: claims}, nil
}
