// Package session orchestrates login, registration, and logout across the
// backend client, the enrichment pipeline, and the state container.
package session

import (
	"context"

	"socio/internal/assets"
	"socio/internal/backend"
	"socio/internal/enrich"
	"socio/internal/store"
	"socio/internal/validation"

	"github.com/golang-jwt/jwt/v5"
)

// Manager drives the session lifecycle.
type Manager struct {
	client   *backend.Client
	pipeline *enrich.Pipeline
	cache    *assets.Cache
	state    *store.Store
}

// NewManager creates a session manager.
func NewManager(client *backend.Client, pipeline *enrich.Pipeline, cache *assets.Cache, state *store.Store) *Manager {
	return &Manager{client: client, pipeline: pipeline, cache: cache, state: state}
}

// Register validates the input locally, creates the account, and bootstraps
// the session from the issued credential. Validation failures never reach the
// network.
func (m *Manager) Register(ctx context.Context, in backend.RegisterInput) error {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := validation.ValidateDisplayName(in.DisplayName); err != nil {
		return err
	}
	if err := validation.ValidateUpload(in.ProfilePicture); err != nil {
		return err
	}

	if _, err := m.client.RegisterUser(ctx, in); err != nil {
		return err
	}
	return m.bootstrap(ctx)
}

// AdoptToken installs an existing credential and bootstraps the session.
func (m *Manager) AdoptToken(ctx context.Context, token string) error {
	m.client.SetToken(token)
	return m.bootstrap(ctx)
}

func (m *Manager) bootstrap(ctx context.Context) error {
	if _, err := m.client.WhoAmI(ctx); err != nil {
		return err
	}
	details, err := m.pipeline.CurrentUser(ctx)
	if err != nil {
		return err
	}
	m.state.SetUserDetails(details)
	m.state.SetLoggedIn(true)
	return nil
}

// Logout clears session-scoped state: the credential, the enriched profile
// and thread list, pending alerts, and every converted asset handle. UI
// preferences survive.
func (m *Manager) Logout() {
	m.client.SetToken("")
	m.cache.ReleaseAll()
	m.state.Logout()
}

// LocalIdentity decodes the username claim from a credential without
// verifying the signature. Used for display before the first round trip.
func LocalIdentity(token string) (string, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
