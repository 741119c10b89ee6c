package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"github.com/fleetgrid/backend/internal/db"
	"github.com/fleetgrid/backend/internal/httputil"
)

// OIDCConfig holds the configuration needed to set up OIDC SSO.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDCService handles the OIDC authorization code flow for dashboard SSO.
type OIDCService struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	db           *db.DB
	jwt          *JWTService

	mu     sync.Mutex
	states map[string]time.Time
}

// NewOIDCService creates an OIDCService. Returns nil, nil when OIDC is not
// configured.
func NewOIDCService(ctx context.Context, cfg OIDCConfig, database *db.DB, jwtService *JWTService) (*OIDCService, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCService{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		db:       database,
		jwt:      jwtService,
		states:   make(map[string]time.Time),
	}, nil
}

// Enabled reports whether OIDC SSO is configured.
func (s *OIDCService) Enabled() bool {
	return s != nil && s.verifier != nil
}

// RegisterRoutes registers OIDC endpoints (no auth middleware required).
func (s *OIDCService) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/auth/oidc/authorize", s.handleAuthorize).Methods("GET")
	r.HandleFunc("/api/auth/oidc/callback", s.handleCallback).Methods("GET")
}

func (s *OIDCService) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	state, err := s.generateState()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}
	http.Redirect(w, r, s.oauth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *OIDCService) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.consumeState(r.URL.Query().Get("state")) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid or expired state")
		return
	}

	token, err := s.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "code exchange failed")
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "no id_token in response")
		return
	}

	idToken, err := s.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "id_token verification failed")
		return
	}

	var profile struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&profile); err != nil || profile.Email == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "id_token has no email claim")
		return
	}

	userID, err := s.upsertUser(r.Context(), profile.Email, profile.Name)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to provision user")
		return
	}

	accessToken, err := s.jwt.GenerateToken(userID, profile.Email)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	refreshToken, err := s.jwt.GenerateRefreshToken(userID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (s *OIDCService) upsertUser(ctx context.Context, email, displayName string) (string, error) {
	var id string
	err := s.db.Pool.QueryRow(ctx,
		`INSERT INTO users (email, display_name, auth_provider)
		 VALUES ($1, $2, 'oidc')
		 ON CONFLICT (email) DO UPDATE SET display_name = $2, last_login = NOW()
		 RETURNING id`,
		email, displayName,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert oidc user: %w", err)
	}
	return id, nil
}

func (s *OIDCService) generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = time.Now().Add(10 * time.Minute)
	return state, nil
}

func (s *OIDCService) consumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.states[state]
	if ok {
		delete(s.states, state)
	}
	// Expired states are swept lazily here rather than by a timer.
	for st, exp := range s.states {
		if time.Now().After(exp) {
			delete(s.states, st)
		}
	}
	return ok && time.Now().Before(expiry)
}
