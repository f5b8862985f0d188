package httpapi

import (
	"net/http"

	"passgate.org/internal/audit"
	"passgate.org/internal/auth"
	"passgate.org/internal/mask"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type signInRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type renewalRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// userInfoResponse is the public profile projection. The account handle is
// masked on the way out; the full handle never leaves the service once
// sign-up has returned it.
type userInfoResponse struct {
	Account string `json:"account"`
	Name    string `json:"name"`
}

func (a *API) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	snap, err := a.svc.SignUp(r.Context(), req.Name, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "passport.signup", map[string]any{
		"account": mask.Account(snap.Account),
		"name":    mask.Name(snap.Name),
	})
	respondData(w, snap)
}

func (a *API) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	pair, err := a.svc.SignIn(r.Context(), req.Account, req.Password)
	if err != nil {
		_ = audit.LogEvent(r.Context(), "passport.signin.denied", map[string]any{
			"account": mask.Account(req.Account),
		})
		respondServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "passport.signin", map[string]any{
		"account": mask.Account(req.Account),
	})
	respondData(w, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (a *API) Renewal(w http.ResponseWriter, r *http.Request) {
	var req renewalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, err)
		return
	}
	pair, err := a.svc.Renew(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "passport.renewal", nil)
	respondData(w, tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (a *API) SignOut(w http.ResponseWriter, r *http.Request) {
	acc, ok := auth.AccessorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := a.svc.SignOut(r.Context(), acc.SessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "passport.signout", nil)
	respondData(w, nil)
}

func (a *API) UserInfo(w http.ResponseWriter, r *http.Request) {
	acc, ok := auth.AccessorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	snap, err := a.svc.UserInfo(r.Context(), acc.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, userInfoResponse{
		Account: mask.Account(snap.Account),
		Name:    snap.Name,
	})
}
