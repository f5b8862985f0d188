package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"passgate.org/internal/auth"
	"passgate.org/internal/cache"
	"passgate.org/internal/config"
)

type apiHarness struct {
	t      *testing.T
	server *httptest.Server
	mr     *miniredis.Miniredis
}

func testConfig() *config.Config {
	return &config.Config{
		SigningKey:     "handlers-test-signing-key",
		Issuer:         "passgate",
		Audience:       "everyone",
		AccessTTL:      2 * time.Hour,
		RefreshTTL:     7 * 24 * time.Hour,
		RateLimitMax:   1000,
		RateLimitEvery: time.Second,
	}
}

func newAPIHarness(t *testing.T, cfg *config.Config) *apiHarness {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	codec, err := auth.NewCodec(cfg.SigningKey, cfg.Issuer, cfg.Audience)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := auth.NewService(auth.NewMemoryStore(), cache.NewRedis(client), codec, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	api := New(svc, codec, cfg, ReadyProbe{Redis: client}, "test")
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return &apiHarness{t: t, server: server, mr: mr}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *apiHarness) do(method, path, token string, payload any) (int, envelope) {
	h.t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			h.t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, h.server.URL+path, &body)
	if err != nil {
		h.t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		h.t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func (h *apiHarness) signUp(name, password string) auth.Snapshot {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/v1/passport/signup", "", map[string]string{
		"name": name, "password": password,
	})
	if status != http.StatusOK || env.Code != 0 {
		h.t.Fatalf("signup: status=%d env=%+v", status, env)
	}
	var snap auth.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		h.t.Fatalf("signup data: %v", err)
	}
	return snap
}

func (h *apiHarness) signIn(account, password string) tokenPairResponse {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/v1/passport/signin", "", map[string]string{
		"account": account, "password": password,
	})
	if status != http.StatusOK || env.Code != 0 {
		h.t.Fatalf("signin: status=%d env=%+v", status, env)
	}
	var pair tokenPairResponse
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		h.t.Fatalf("signin data: %v", err)
	}
	return pair
}

func TestSignUpSignInUserInfoFlow(t *testing.T) {
	h := newAPIHarness(t, nil)

	snap := h.signUp("alice", "s3cret")
	if len(snap.Account) != 10 {
		t.Fatalf("account handle should be ten digits, got %q", snap.Account)
	}

	pair := h.signIn(snap.Account, "s3cret")
	if pair.ExpiresIn != 7200 {
		t.Fatalf("expires_in = %d, want 7200", pair.ExpiresIn)
	}

	status, env := h.do(http.MethodGet, "/v1/passport/userinfo", pair.AccessToken, nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("userinfo: status=%d env=%+v", status, env)
	}
	var got userInfoResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("userinfo data: %v", err)
	}
	if got.Name != "alice" {
		t.Fatalf("userinfo name = %q", got.Name)
	}
	wantAccount := snap.Account[:3] + "****" + snap.Account[6:]
	if got.Account != wantAccount {
		t.Fatalf("userinfo account = %q, want masked %q", got.Account, wantAccount)
	}
}

func TestSignUpValidation(t *testing.T) {
	h := newAPIHarness(t, nil)

	status, env := h.do(http.MethodPost, "/v1/passport/signup", "", map[string]string{
		"name": "not valid!", "password": "s3cret",
	})
	if status != http.StatusBadRequest || env.Code != http.StatusBadRequest {
		t.Fatalf("status=%d env=%+v", status, env)
	}

	h.signUp("alice", "s3cret")
	status, env = h.do(http.MethodPost, "/v1/passport/signup", "", map[string]string{
		"name": "alice", "password": "other",
	})
	if status != http.StatusConflict || env.Code != http.StatusConflict {
		t.Fatalf("duplicate name: status=%d env=%+v", status, env)
	}
}

func TestSignInFailures(t *testing.T) {
	h := newAPIHarness(t, nil)
	snap := h.signUp("alice", "s3cret")

	status, env := h.do(http.MethodPost, "/v1/passport/signin", "", map[string]string{
		"account": "0000000000", "password": "s3cret",
	})
	if status != http.StatusNotFound || env.Code != http.StatusNotFound {
		t.Fatalf("unknown account: status=%d env=%+v", status, env)
	}

	status, env = h.do(http.MethodPost, "/v1/passport/signin", "", map[string]string{
		"account": snap.Account, "password": "wrong",
	})
	if status != http.StatusUnauthorized || env.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status=%d env=%+v", status, env)
	}
}

func TestUserInfoRequiresLiveSession(t *testing.T) {
	h := newAPIHarness(t, nil)

	status, env := h.do(http.MethodGet, "/v1/passport/userinfo", "", nil)
	if status != http.StatusUnauthorized || env.Message != "session expired" {
		t.Fatalf("no token: status=%d env=%+v", status, env)
	}

	status, _ = h.do(http.MethodGet, "/v1/passport/userinfo", "garbage", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("garbage token: status=%d", status)
	}

	snap := h.signUp("alice", "s3cret")
	pair := h.signIn(snap.Account, "s3cret")

	// Refresh tokens never pass the access gate.
	status, _ = h.do(http.MethodGet, "/v1/passport/userinfo", pair.RefreshToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh token at access gate: status=%d", status)
	}

	// A valid token whose cached session has expired is rejected too.
	h.mr.FastForward(3 * time.Hour)
	status, env = h.do(http.MethodGet, "/v1/passport/userinfo", pair.AccessToken, nil)
	if status != http.StatusUnauthorized || env.Message != "session expired" {
		t.Fatalf("expired session: status=%d env=%+v", status, env)
	}
}

func TestRenewalRotatesAndRetiresOldPair(t *testing.T) {
	h := newAPIHarness(t, nil)
	snap := h.signUp("alice", "s3cret")
	pair := h.signIn(snap.Account, "s3cret")

	status, env := h.do(http.MethodPost, "/v1/passport/renewal", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("renewal: status=%d env=%+v", status, env)
	}
	var renewed tokenPairResponse
	if err := json.Unmarshal(env.Data, &renewed); err != nil {
		t.Fatalf("renewal data: %v", err)
	}

	// Replay of the consumed refresh token fails.
	status, _ = h.do(http.MethodPost, "/v1/passport/renewal", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: status=%d", status)
	}

	// The old access token is dead, the new one works.
	status, _ = h.do(http.MethodGet, "/v1/passport/userinfo", pair.AccessToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("old access token: status=%d", status)
	}
	status, _ = h.do(http.MethodGet, "/v1/passport/userinfo", renewed.AccessToken, nil)
	if status != http.StatusOK {
		t.Fatalf("new access token: status=%d", status)
	}
}

func TestSignOutEndsSession(t *testing.T) {
	h := newAPIHarness(t, nil)
	snap := h.signUp("alice", "s3cret")
	pair := h.signIn(snap.Account, "s3cret")

	status, env := h.do(http.MethodGet, "/v1/passport/signout", pair.AccessToken, nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("signout: status=%d env=%+v", status, env)
	}

	status, _ = h.do(http.MethodGet, "/v1/passport/userinfo", pair.AccessToken, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("userinfo after signout: status=%d", status)
	}
	status, _ = h.do(http.MethodPost, "/v1/passport/renewal", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("renewal after signout: status=%d", status)
	}
}

func TestUnknownRouteGetsEnvelope(t *testing.T) {
	h := newAPIHarness(t, nil)

	status, env := h.do(http.MethodGet, "/v1/passport/unknown", "", nil)
	if status != http.StatusNotFound || env.Code != http.StatusNotFound {
		t.Fatalf("status=%d env=%+v", status, env)
	}

	status, env = h.do(http.MethodDelete, "/v1/passport/signin", "", nil)
	if status != http.StatusMethodNotAllowed || env.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method mismatch: status=%d env=%+v", status, env)
	}
}
