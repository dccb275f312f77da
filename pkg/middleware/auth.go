package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/pkg/logger"
)

// Context keys set by the auth middlewares.
const (
	ClaimsKey    = "claims"
	TokenKey     = "token"
	PrincipalKey = "principal"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Revocations reports revoked access tokens.
type Revocations interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// PrincipalResolver turns verified claims into the calling principal; a nil
// principal means the account may not sign in.
type PrincipalResolver interface {
	Principal(ctx context.Context, claims map[string]interface{}) (*access.Principal, error)
}

type chain []Verifier

// Chain tries each verifier in order and returns the first success.
func Chain(vs ...Verifier) Verifier {
	out := chain{}
	for _, v := range vs {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (c chain) Verify(ctx context.Context, raw string) (Token, error) {
	if len(c) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	var errs []error
	for _, v := range c {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "code": code, "error": msg})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the
// provided verifier and refuses revoked tokens. revoked may be nil.
func AuthMiddleware(ver Verifier, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing Authorization header")
			return
		}
		token, ok := BearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid Authorization header")
			return
		}

		if revoked != nil {
			hit, err := revoked.Contains(c.Request.Context(), token)
			if err != nil {
				logger.Errorf("token blacklist check failed: %v", err)
				abort(c, http.StatusServiceUnavailable, "internal", "could not check token")
				return
			}
			if hit {
				abort(c, http.StatusUnauthorized, "unauthorized", "token has been revoked")
				return
			}
		}

		verified, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debugf("token verification failed: %v", err)
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "failed to parse claims")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// PrincipalMiddleware resolves the principal for verified claims and stores
// it on the gin and request contexts. It must run after AuthMiddleware.
func PrincipalMiddleware(res PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.Get(ClaimsKey)
		cm, ok := claims.(map[string]interface{})
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "you must be signed in")
			return
		}
		p, err := res.Principal(c.Request.Context(), cm)
		if err != nil {
			logger.Errorf("principal lookup failed: %v", err)
			abort(c, http.StatusInternalServerError, "internal", "something went wrong, please try again")
			return
		}
		if p == nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "account is not active")
			return
		}
		c.Set(PrincipalKey, p)
		c.Request = c.Request.WithContext(access.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// Principal returns the principal stored by PrincipalMiddleware, or nil.
func Principal(c *gin.Context) *access.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*access.Principal); ok {
			return p
		}
	}
	return access.FromContext(c.Request.Context())
}
