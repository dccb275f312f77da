package oidc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/staffhub/portal/pkg/middleware"
)

type insecureToken struct {
	claims jwt.MapClaims
}

func (t *insecureToken) Claims(v interface{}) error {
	b, err := json.Marshal(t.claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// InsecureVerifier accepts any well-formed JWT without checking its signature.
// Only for local and integration runs with ALLOW_INSECURE_TOKEN=true.
type InsecureVerifier struct {
	parser *jwt.Parser
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{parser: jwt.NewParser()} }

func (v *InsecureVerifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	var claims jwt.MapClaims
	if _, _, err := v.parser.ParseUnverified(raw, &claims); err != nil {
		return nil, err
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, errors.New("token has no subject")
	}
	return &insecureToken{claims: claims}, nil
}
