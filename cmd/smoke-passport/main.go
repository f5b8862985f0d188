// Command smoke-passport drives the full passport flow against a running
// instance: sign-up, sign-in, userinfo, renewal, replay rejection, sign-out.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func main() {
	base := os.Getenv("PASSGATE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 5 * time.Second}

	name := fmt.Sprintf("smoke%d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1_000_000))
	password := "smoke-pass"

	// Sign up.
	var signup struct {
		Account string `json:"account"`
	}
	call(client, base, "POST", "/v1/passport/signup", "",
		map[string]string{"name": name, "password": password}, http.StatusOK, &signup)
	if len(signup.Account) != 10 {
		log.Fatalf("unexpected account handle %q", signup.Account)
	}

	// Sign in.
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	call(client, base, "POST", "/v1/passport/signin", "",
		map[string]string{"account": signup.Account, "password": password}, http.StatusOK, &pair)
	if pair.ExpiresIn <= 0 {
		log.Fatalf("bad expires_in %d", pair.ExpiresIn)
	}

	// Profile with the access token.
	var info struct {
		Account string `json:"account"`
		Name    string `json:"name"`
	}
	call(client, base, "GET", "/v1/passport/userinfo", pair.AccessToken, nil, http.StatusOK, &info)
	if info.Name != name {
		log.Fatalf("userinfo name %q, want %q", info.Name, name)
	}

	// Renewal rotates the pair.
	var renewed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	call(client, base, "POST", "/v1/passport/renewal", "",
		map[string]string{"refresh_token": pair.RefreshToken}, http.StatusOK, &renewed)

	// Replaying the consumed refresh token must fail.
	call(client, base, "POST", "/v1/passport/renewal", "",
		map[string]string{"refresh_token": pair.RefreshToken}, http.StatusUnauthorized, nil)

	// The old access token is retired, the new one works.
	call(client, base, "GET", "/v1/passport/userinfo", pair.AccessToken, nil, http.StatusUnauthorized, nil)
	call(client, base, "GET", "/v1/passport/userinfo", renewed.AccessToken, nil, http.StatusOK, &info)

	// Sign out, then the session is gone.
	call(client, base, "GET", "/v1/passport/signout", renewed.AccessToken, nil, http.StatusOK, nil)
	call(client, base, "GET", "/v1/passport/userinfo", renewed.AccessToken, nil, http.StatusUnauthorized, nil)

	fmt.Printf("✅ passport smoke test passed: account=%s\n", signup.Account)
}

func call(client *http.Client, base, method, path, token string, payload any, wantStatus int, dest any) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			log.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, base+path, &body)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d (%s), want %d", method, path, resp.StatusCode, env.Message, wantStatus)
	}
	if dest != nil {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			log.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}
