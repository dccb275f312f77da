package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub/portal/internal/config"
	"github.com/staffhub/portal/internal/sessions"
	"github.com/staffhub/portal/internal/store"
	"github.com/staffhub/portal/internal/tokens"
	"github.com/staffhub/portal/internal/users"
	"github.com/staffhub/portal/pkg/middleware"
)

type claimsToken map[string]interface{}

func (t claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(map[string]interface{}(t))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// fakeIdentity accepts "idtok-<sub>" tokens.
type fakeIdentity struct{}

func (fakeIdentity) Verify(_ context.Context, raw string) (middleware.Token, error) {
	var sub string
	if _, err := fmt.Sscanf(raw, "idtok-%s", &sub); err != nil {
		return nil, fmt.Errorf("bad token")
	}
	return claimsToken{"sub": sub, "name": "Alice " + sub, "email": sub + "@example.com"}, nil
}

type fakeExchanger struct{}

func (fakeExchanger) ExchangeCode(_ context.Context, code, _ string) (string, error) {
	if code != "good-code" {
		return "", fmt.Errorf("invalid_grant")
	}
	return "idtok-coder", nil
}

func (fakeExchanger) PasswordGrant(_ context.Context, user, pass string) (string, error) {
	if pass != "secret" {
		return "", fmt.Errorf("invalid_grant")
	}
	return "idtok-" + user, nil
}

var jwtCfg = config.JWTConfig{Secret: "auth-test-secret-32-bytes-xxxxxxxx", AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: time.Hour}

type authEnv struct {
	g     *gin.Engine
	users *users.Service
	bl    *sessions.Blacklist
	redis *mr.Miniredis
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	gw := store.NewMemoryStore()
	e := &authEnv{
		g:     gin.New(),
		users: users.NewService(users.NewStoreUserRepository(gw)),
		bl:    sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()})),
		redis: m,
	}
	h := NewAuthHandler(jwtCfg, fakeIdentity{}, fakeExchanger{}, e.users, sessions.NewService(sessions.NewStoreRepository(gw)), e.bl)
	h.Register(e.g.Group("/"))
	return e
}

func (e *authEnv) post(t *testing.T, path string, body interface{}, bearer string) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.g.ServeHTTP(w, req)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "no data in %v", body)
	return d
}

func TestSession_IDToken(t *testing.T) {
	e := newAuthEnv(t)
	code, body := e.post(t, "/auth/session", SessionRequest{IDToken: "idtok-alice"}, "")
	require.Equal(t, http.StatusOK, code, body)
	d := data(t, body)
	assert.NotEmpty(t, d["refreshToken"])
	assert.Equal(t, float64(900), d["expiresIn"])

	tok, err := tokens.NewVerifier(jwtCfg.Secret).Verify(context.Background(), d["accessToken"].(string))
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "Alice alice", claims["name"])
	assert.Equal(t, "staff", claims["role"])
	assert.NotEmpty(t, claims["uid"])
}

func TestSession_Modes(t *testing.T) {
	e := newAuthEnv(t)
	cases := []struct {
		req  SessionRequest
		want int
	}{
		{SessionRequest{Mode: "auth_code", Code: "good-code", RedirectURI: "http://cb"}, http.StatusOK},
		{SessionRequest{Mode: "auth_code", Code: "bad-code", RedirectURI: "http://cb"}, http.StatusUnauthorized},
		{SessionRequest{Mode: "auth_code", Code: "good-code"}, http.StatusBadRequest},
		{SessionRequest{Mode: "password", Username: "bob", Password: "secret"}, http.StatusOK},
		{SessionRequest{Mode: "password", Username: "bob", Password: "wrong"}, http.StatusUnauthorized},
		{SessionRequest{Mode: "password", Username: "bob"}, http.StatusBadRequest},
		{SessionRequest{Mode: "magic"}, http.StatusBadRequest},
		{SessionRequest{}, http.StatusBadRequest},
		{SessionRequest{IDToken: "forged"}, http.StatusUnauthorized},
	}
	for _, c := range cases {
		code, body := e.post(t, "/auth/session", c.req, "")
		assert.Equal(t, c.want, code, "%+v -> %v", c.req, body)
	}
}

func TestSession_DeactivatedUserRefused(t *testing.T) {
	e := newAuthEnv(t)
	code, body := e.post(t, "/auth/session", SessionRequest{IDToken: "idtok-carol"}, "")
	require.Equal(t, http.StatusOK, code)
	refresh := data(t, body)["refreshToken"].(string)

	u, err := e.users.GetBySub(context.Background(), "carol")
	require.NoError(t, err)
	require.NoError(t, e.users.Deactivate(context.Background(), u.ID))

	code, body = e.post(t, "/auth/session", SessionRequest{IDToken: "idtok-carol"}, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])

	code, _ = e.post(t, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRefresh(t *testing.T) {
	e := newAuthEnv(t)
	_, body := e.post(t, "/auth/session", SessionRequest{IDToken: "idtok-dave"}, "")
	refresh := data(t, body)["refreshToken"].(string)

	code, body := e.post(t, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, code, body)
	assert.NotEmpty(t, data(t, body)["accessToken"])

	code, _ = e.post(t, "/auth/refresh", map[string]string{"refresh_token": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = e.post(t, "/auth/refresh", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogout_BlacklistsAccessAndDeletesRefresh(t *testing.T) {
	e := newAuthEnv(t)
	_, body := e.post(t, "/auth/session", SessionRequest{IDToken: "idtok-erin"}, "")
	d := data(t, body)
	access, refresh := d["accessToken"].(string), d["refreshToken"].(string)

	code, body := e.post(t, "/auth/logout", map[string]string{"refresh_token": refresh}, access)
	require.Equal(t, http.StatusOK, code, body)

	revoked, err := e.bl.Contains(context.Background(), access)
	require.NoError(t, err)
	assert.True(t, revoked)

	code, _ = e.post(t, "/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	e.redis.FastForward(16 * time.Minute)
	revoked, err = e.bl.Contains(context.Background(), access)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestKeycloakExchanger(t *testing.T) {
	var gotGrant, gotRedirect string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/staff/protocol/openid-connect/token", r.URL.Path)
		_ = r.ParseForm()
		gotGrant, gotRedirect = r.Form.Get("grant_type"), r.Form.Get("redirect_uri")
		if r.Form.Get("code") == "bad" || (gotGrant == "password" && r.Form.Get("password") != "pw") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Code not valid"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "at", "token_type": "Bearer", "expires_in": 300, "id_token": "the-id-token"})
	}))
	defer srv.Close()

	ex := NewKeycloakExchanger(config.KeycloakConfig{URL: srv.URL, Realm: "staff", ClientID: "cid", ClientSecret: "csecret"})
	ctx := context.Background()

	raw, err := ex.ExchangeCode(ctx, "good", "http://cb")
	require.NoError(t, err)
	assert.Equal(t, "the-id-token", raw)
	assert.Equal(t, "authorization_code", gotGrant)
	assert.Equal(t, "http://cb", gotRedirect)

	_, err = ex.ExchangeCode(ctx, "bad", "http://cb")
	assert.Error(t, err)

	raw, err = ex.PasswordGrant(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "the-id-token", raw)
	assert.Equal(t, "password", gotGrant)

	_, err = ex.PasswordGrant(ctx, "alice", "wrong")
	assert.Error(t, err)
}
