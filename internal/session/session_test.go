package session

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"socio/internal/assets"
	"socio/internal/backend"
	"socio/internal/backendtest"
	"socio/internal/enrich"
	"socio/internal/models"
	"socio/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func avatar(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 200, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestManager(t *testing.T) (*Manager, *assets.Cache, *store.Store, *backendtest.Server) {
	t.Helper()
	srv, err := backendtest.NewServer("test-secret")
	require.NoError(t, err)
	baseURL, shutdown, err := srv.Serve()
	require.NoError(t, err)
	t.Cleanup(shutdown)

	cache := assets.NewCache()
	client := backend.NewClient(baseURL, 5*time.Second)
	pipeline := enrich.NewPipeline(client, cache)
	state := store.NewStore(nil, time.Minute)
	return NewManager(client, pipeline, cache, state), cache, state, srv
}

func TestRegisterBootstrapsSession(t *testing.T) {
	m, cache, state, _ := newTestManager(t)

	err := m.Register(context.Background(), backend.RegisterInput{
		Username:       "alice",
		DisplayName:    "Alice",
		ProfilePicture: avatar(t),
		Password:       "password123",
	})
	require.NoError(t, err)

	assert.True(t, state.LoggedIn())
	details := state.UserDetails()
	require.NotNil(t, details)
	assert.Equal(t, "alice", details.Username)
	require.NotNil(t, details.ProfilePicture)
	assert.Equal(t, 1, cache.Len())
}

func TestRegisterValidationNeverReachesNetwork(t *testing.T) {
	m, _, state, srv := newTestManager(t)

	cases := []backend.RegisterInput{
		{Username: "Bad Name", DisplayName: "x", ProfilePicture: avatar(t), Password: "p"},
		{Username: "alice", DisplayName: "", ProfilePicture: avatar(t), Password: "p"},
		{Username: "alice", DisplayName: "Alice", Password: "p"},
	}
	for _, in := range cases {
		err := m.Register(context.Background(), in)
		require.Error(t, err)
		assert.True(t, models.IsValidation(err))
	}

	assert.False(t, state.LoggedIn())
	var count int64
	srv.DB().Model(&backendtest.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestAdoptToken(t *testing.T) {
	m, _, state, _ := newTestManager(t)

	require.NoError(t, m.Register(context.Background(), backend.RegisterInput{
		Username:       "alice",
		DisplayName:    "Alice",
		ProfilePicture: avatar(t),
		Password:       "password123",
	}))
	token := m.client.Token()
	require.NotEmpty(t, token)

	// Simulate a restart: drop the in-memory session, keep the credential.
	m.Logout()
	require.False(t, state.LoggedIn())

	require.NoError(t, m.AdoptToken(context.Background(), token))
	assert.True(t, state.LoggedIn())
	assert.Equal(t, "alice", state.UserDetails().Username)
}

func TestLogoutClearsSessionState(t *testing.T) {
	m, cache, state, _ := newTestManager(t)

	require.NoError(t, m.Register(context.Background(), backend.RegisterInput{
		Username:       "alice",
		DisplayName:    "Alice",
		ProfilePicture: avatar(t),
		Password:       "password123",
	}))
	require.True(t, state.LoggedIn())
	require.Equal(t, 1, cache.Len())

	m.Logout()

	assert.False(t, state.LoggedIn())
	assert.Nil(t, state.UserDetails())
	assert.Equal(t, 0, cache.Len())
	assert.Empty(t, m.client.Token())
}

func TestLocalIdentity(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	require.NoError(t, m.Register(context.Background(), backend.RegisterInput{
		Username:       "alice",
		DisplayName:    "Alice",
		ProfilePicture: avatar(t),
		Password:       "password123",
	}))

	username, ok := LocalIdentity(m.client.Token())
	require.True(t, ok)
	assert.Equal(t, "alice", username)

	_, ok = LocalIdentity("not-a-jwt")
	assert.False(t, ok)
}
