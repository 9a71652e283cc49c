package handler

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// AuthHandler handles OAuth2 login flows and token refresh.
type AuthHandler struct {
	google   *auth.OAuthProvider
	jwtMgr   *auth.JWTManager
	userRepo repository.UserRepository
	devMode  bool
}

// NewAuthHandler creates an AuthHandler. devMode enables the password-less
// dev login endpoint.
func NewAuthHandler(google *auth.OAuthProvider, jwtMgr *auth.JWTManager, userRepo repository.UserRepository, devMode bool) *AuthHandler {
	return &AuthHandler{google: google, jwtMgr: jwtMgr, userRepo: userRepo, devMode: devMode}
}

// GoogleLogin redirects to Google's OAuth2 consent screen.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.Configured() {
		writeError(w, http.StatusNotFound, "google login not configured")
		return
	}
	state := randomState()
	// In production, store state in a short-lived cookie or cache for CSRF protection
	http.Redirect(w, r, h.google.LoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback handles the OAuth2 callback from Google. New accounts join
// the tribe named in the optional tribe query parameter.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.google.Configured() {
		writeError(w, http.StatusNotFound, "google login not configured")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code parameter")
		return
	}

	info, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "oauth exchange failed: "+err.Error())
		return
	}

	tribe, ok := pickTribe(r.URL.Query().Get("tribe"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tribe")
		return
	}
	user, err := h.userRepo.Upsert(r.Context(), "google", info.ID, info.Name, info.Picture, tribe)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upsert Google user")
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	tokens, err := h.jwtMgr.GenerateTokenPair(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims, err := h.jwtMgr.ValidateToken(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	tokens, err := h.jwtMgr.GenerateTokenPair(claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// DevLogin creates or upserts a test user and returns a JWT token pair.
// Only available in development.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name parameter")
		return
	}
	tribe, ok := pickTribe(r.URL.Query().Get("tribe"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid tribe")
		return
	}

	providerID := fmt.Sprintf("dev-%s", name)
	user, err := h.userRepo.Upsert(r.Context(), "dev", providerID, name, "", tribe)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("Failed to upsert dev user")
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	tokens, err := h.jwtMgr.GenerateTokenPair(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate tokens")
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// pickTribe validates a tribe choice, defaulting to phasuttha when absent.
func pickTribe(s string) (catalog.Tribe, bool) {
	if s == "" {
		return catalog.TribePhasuttha, true
	}
	switch tribe := catalog.Tribe(s); tribe {
	case catalog.TribePhasuttha, catalog.TribeNava, catalog.TribeKiri:
		return tribe, true
	}
	return "", false
}

func randomState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
