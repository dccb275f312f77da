package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/staffhub/portal/internal/config"
	"github.com/staffhub/portal/internal/models"
	"github.com/staffhub/portal/internal/oidc"
	"github.com/staffhub/portal/internal/sessions"
	"github.com/staffhub/portal/internal/tokens"
	"github.com/staffhub/portal/pkg/logger"
	"github.com/staffhub/portal/pkg/middleware"
)

// SessionRequest starts a portal session. Mode "id_token" exchanges a token the
// client already holds; "auth_code" and "password" obtain one from Keycloak first.
type SessionRequest struct {
	Mode        string `json:"mode"`
	IDToken     string `json:"id_token"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// UserStore is the part of the user service sign-in needs.
type UserStore interface {
	UpsertFromClaims(ctx context.Context, claims map[string]interface{}) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Exchanger obtains an ID token from the identity provider.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)
	PasswordGrant(ctx context.Context, username, password string) (string, error)
}

// AuthHandler holds dependencies
type AuthHandler struct {
	jwt       config.JWTConfig
	identity  middleware.Verifier
	exchanger Exchanger
	users     UserStore
	sessions  *sessions.Service
	blacklist *sessions.Blacklist
}

func NewAuthHandler(jwt config.JWTConfig, identity middleware.Verifier, ex Exchanger, u UserStore, s *sessions.Service, bl *sessions.Blacklist) *AuthHandler {
	return &AuthHandler{jwt: jwt, identity: identity, exchanger: ex, users: u, sessions: s, blacklist: bl}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/session", h.Session)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

func reply(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func refuse(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "code": code, "error": msg})
}

// Session verifies an identity-provider token, records the user and issues
// a portal access token plus refresh token.
func (h *AuthHandler) Session(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		refuse(c, http.StatusBadRequest, "validation", "invalid request body")
		return
	}
	if h.identity == nil {
		refuse(c, http.StatusServiceUnavailable, "internal", "identity provider not configured")
		return
	}
	ctx := c.Request.Context()

	raw := req.IDToken
	var err error
	switch req.Mode {
	case "", "id_token":
		if raw == "" {
			refuse(c, http.StatusBadRequest, "validation", "id_token is required")
			return
		}
	case "auth_code":
		if req.Code == "" || req.RedirectURI == "" {
			refuse(c, http.StatusBadRequest, "validation", "code and redirect_uri required for auth_code mode")
			return
		}
		logger.Debugf("session(auth_code): code length=%d redirect_uri=%s", len(req.Code), req.RedirectURI)
		raw, err = h.exchange(func(ex Exchanger) (string, error) { return ex.ExchangeCode(ctx, req.Code, req.RedirectURI) })
	case "password":
		if req.Username == "" || req.Password == "" {
			refuse(c, http.StatusBadRequest, "validation", "username and password required for password mode")
			return
		}
		raw, err = h.exchange(func(ex Exchanger) (string, error) { return ex.PasswordGrant(ctx, req.Username, req.Password) })
	default:
		refuse(c, http.StatusBadRequest, "validation", "unsupported mode")
		return
	}
	if err != nil {
		logger.Warnf("token exchange failed (mode=%s): %v", req.Mode, err)
		refuse(c, http.StatusUnauthorized, "unauthorized", "authentication failed")
		return
	}

	tok, err := h.identity.Verify(ctx, raw)
	if err != nil {
		logger.Debugf("id token rejected: %v", err)
		refuse(c, http.StatusUnauthorized, "unauthorized", "invalid id token")
		return
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		refuse(c, http.StatusUnauthorized, "unauthorized", "invalid id token")
		return
	}
	u, err := h.users.UpsertFromClaims(ctx, claims)
	if err != nil {
		logger.Errorf("user upsert error: %v", err)
		refuse(c, http.StatusInternalServerError, "internal", "user upsert failed")
		return
	}
	if u == nil {
		refuse(c, http.StatusUnauthorized, "unauthorized", "id token has no subject")
		return
	}
	if !u.IsActive {
		refuse(c, http.StatusForbidden, "forbidden", "this account has been deactivated")
		return
	}

	rft, err := h.sessions.CreateSession(ctx, u.ID, h.jwt.RefreshTokenTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		refuse(c, http.StatusInternalServerError, "internal", "failed to create session")
		return
	}
	access, err := tokens.GenerateAccessToken(h.jwt.Secret, u, h.jwt.AccessTokenTTL)
	if err != nil {
		logger.Errorf("failed to sign access token: %v", err)
		refuse(c, http.StatusInternalServerError, "internal", "failed to create access token")
		return
	}
	reply(c, http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"expiresIn":    int(h.jwt.AccessTokenTTL.Seconds()),
		"user":         u,
	})
}

func (h *AuthHandler) exchange(do func(Exchanger) (string, error)) (string, error) {
	if h.exchanger == nil {
		return "", errors.New("keycloak token endpoint not configured")
	}
	return do(h.exchanger)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh accepts a refresh token and returns a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		refuse(c, http.StatusBadRequest, "validation", "refresh_token is required")
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessions.ValidateRefresh(ctx, req.RefreshToken)
	if err != nil {
		logger.Errorf("refresh validation failed: %v", err)
		refuse(c, http.StatusInternalServerError, "internal", "validation failed")
		return
	}
	if sess == nil {
		refuse(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		return
	}
	u, err := h.users.GetByID(ctx, sess.UserID)
	if err != nil {
		refuse(c, http.StatusInternalServerError, "internal", "user lookup failed")
		return
	}
	if u == nil || !u.IsActive {
		_ = h.sessions.DeleteRefresh(ctx, req.RefreshToken)
		refuse(c, http.StatusUnauthorized, "unauthorized", "account is not active")
		return
	}
	access, err := tokens.GenerateAccessToken(h.jwt.Secret, u, h.jwt.AccessTokenTTL)
	if err != nil {
		refuse(c, http.StatusInternalServerError, "internal", "failed to create access token")
		return
	}
	reply(c, http.StatusOK, gin.H{"accessToken": access, "expiresIn": int(h.jwt.AccessTokenTTL.Seconds())})
}

// Logout invalidates the refresh token and blacklists the presented access token
// for the rest of its lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		refuse(c, http.StatusBadRequest, "validation", "refresh_token is required")
		return
	}
	ctx := c.Request.Context()
	if at, ok := middleware.BearerToken(c); ok {
		if exp, err := tokens.ExpiresAt(at); err == nil {
			if err := h.blacklist.Add(ctx, at, time.Until(exp)); err != nil {
				logger.Errorf("failed to blacklist access token: %v", err)
				refuse(c, http.StatusInternalServerError, "internal", "failed to blacklist access token")
				return
			}
		}
	}
	if err := h.sessions.DeleteRefresh(ctx, req.RefreshToken); err != nil {
		refuse(c, http.StatusInternalServerError, "internal", "failed to remove session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

// KeycloakExchanger talks to the realm's token endpoint through oauth2; the
// client authentication style is auto-detected.
type KeycloakExchanger struct {
	conf *oauth2.Config
}

func NewKeycloakExchanger(cfg config.KeycloakConfig) *KeycloakExchanger {
	base := oidc.Issuer(cfg) + "/protocol/openid-connect"
	return &KeycloakExchanger{conf: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/auth",
			TokenURL:  base + "/token",
			AuthStyle: oauth2.AuthStyleAutoDetect,
		},
		Scopes: []string{"openid", "profile", "email"},
	}}
}

func (k *KeycloakExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	tok, err := k.conf.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	if err != nil {
		return "", err
	}
	return idTokenOf(tok)
}

func (k *KeycloakExchanger) PasswordGrant(ctx context.Context, username, password string) (string, error) {
	tok, err := k.conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return "", err
	}
	return idTokenOf(tok)
}

func idTokenOf(tok *oauth2.Token) (string, error) {
	raw, _ := tok.Extra("id_token").(string)
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("token response has no id_token")
	}
	return raw, nil
}
