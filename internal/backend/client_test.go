package backend

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"socio/internal/backendtest"
	"socio/internal/identity"
	"socio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func avatar(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestBackend(t *testing.T) (*Client, *backendtest.Server) {
	t.Helper()
	srv, err := backendtest.NewServer("test-secret")
	require.NoError(t, err)
	baseURL, shutdown, err := srv.Serve()
	require.NoError(t, err)
	t.Cleanup(shutdown)
	return NewClient(baseURL, 5*time.Second), srv
}

func TestRegisterAndWhoAmI(t *testing.T) {
	client, _ := newTestBackend(t)
	ctx := context.Background()

	available, err := client.UsernameAvailability(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, available)

	token, err := client.RegisterUser(ctx, RegisterInput{
		Username:       "alice",
		DisplayName:    "Alice",
		Bio:            "hello",
		ProfilePicture: avatar(t),
		Password:       "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, token, client.Token())

	id, err := client.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)

	available, err = client.UsernameAvailability(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	client, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := client.RegisterUser(ctx, RegisterInput{Username: "alice", Password: "x"})
	require.NoError(t, err)

	_, err = client.RegisterUser(ctx, RegisterInput{Username: "alice", Password: "y"})
	require.Error(t, err)
	assert.True(t, models.IsRemoteCall(err))
	assert.Contains(t, err.Error(), "already taken")
}

func TestUnauthenticatedCallRejected(t *testing.T) {
	client, _ := newTestBackend(t)

	_, err := client.WhoAmI(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsRemoteCall(err))
}

func TestMessageRoundTrip(t *testing.T) {
	client, srv := newTestBackend(t)
	ctx := context.Background()

	alice := srv.SeedUser("alice")
	bob := srv.SeedUser("bob")
	key := identity.DeriveConversationKey(alice, bob)
	srv.SeedFriendship(alice, bob, string(key))

	_, err := client.RegisterUser(ctx, RegisterInput{Username: "carol", Password: "x"})
	require.NoError(t, err)

	groups, err := client.GetMessages(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, groups)

	// The backend credential binds the sender; posting as someone else fails.
	_, err = client.PostMessage(ctx, key, alice, "spoofed", nil, time.Now().UTC())
	require.Error(t, err)

	receipt, err := client.PostMessage(ctx, key, "carol", "hello", nil, time.Now().UTC())
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.ID)

	groups, err = client.GetMessages(ctx, key)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Messages, 1)
	assert.Equal(t, "hello", groups[0].Messages[0].Message)
	assert.Equal(t, "carol", groups[0].Messages[0].Sender)
}

func TestMessageGrouping(t *testing.T) {
	client, srv := newTestBackend(t)
	ctx := context.Background()

	alice := srv.SeedUser("alice")
	bob := srv.SeedUser("bob")
	key := identity.DeriveConversationKey(alice, bob)
	srv.SeedFriendship(alice, bob, string(key))
	srv.SeedMessages(string(key), alice, bob, 45)

	groups, err := client.GetMessages(ctx, key)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	// Newest group first, each group internally chronological, and the
	// flattened view is globally chronological.
	assert.Len(t, groups[0].Messages, 5)
	assert.Len(t, groups[1].Messages, 20)
	assert.Len(t, groups[2].Messages, 20)

	flat := models.FlattenMessages(groups)
	require.Len(t, flat, 45)
	for i := 1; i < len(flat); i++ {
		assert.False(t, flat[i].Date.Before(flat[i-1].Date))
	}
}

func TestProfileDetails(t *testing.T) {
	client, srv := newTestBackend(t)
	ctx := context.Background()

	alice := srv.SeedUser("alice")
	bob := srv.SeedUser("bob")
	key := identity.DeriveConversationKey(alice, bob)
	srv.SeedFriendship(alice, bob, string(key))
	address := srv.SeedPost(alice)

	profile, err := client.GetProfileDetails(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, profile.Username)
	assert.NotEmpty(t, profile.ProfilePicture)
	assert.Equal(t, []string{string(key)}, profile.ChatIDs)
	assert.Equal(t, []string{address}, profile.PostAddresses)
	assert.Equal(t, 1, profile.PostCount)
	assert.Equal(t, 1, profile.FollowerCount)
	assert.Equal(t, 1, profile.FollowingCount)

	_, err = client.GetProfileDetails(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, models.IsRemoteCall(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestPostLifecycle(t *testing.T) {
	client, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := client.RegisterUser(ctx, RegisterInput{Username: "alice", Password: "x"})
	require.NoError(t, err)

	ok, err := client.SetPost(ctx, "post-1", avatar(t), "first light", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, ok)

	post, err := client.GetPost(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", post.Owner)
	assert.Equal(t, "first light", post.Caption)
	assert.NotEmpty(t, post.Img)
}

func TestFriendRequestFlow(t *testing.T) {
	aliceClient, _ := newTestBackend(t)
	ctx := context.Background()

	_, err := aliceClient.RegisterUser(ctx, RegisterInput{Username: "alice", Password: "x"})
	require.NoError(t, err)

	// Each side of the friendship holds its own credential.
	bobClient := NewClient(aliceClient.baseURL, 5*time.Second)
	_, err = bobClient.RegisterUser(ctx, RegisterInput{Username: "bob", Password: "x"})
	require.NoError(t, err)

	key := identity.DeriveConversationKey("alice", "bob")
	msg, err := aliceClient.SendFriendRequest(ctx, "bob", time.Now().UTC(), key)
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	bobProfile, err := bobClient.GetUserDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, bobProfile.FriendRequestList)

	_, err = bobClient.AcceptFriendRequest(ctx, "alice", time.Now().UTC(), key)
	require.NoError(t, err)

	bobProfile, err = bobClient.GetUserDetails(ctx)
	require.NoError(t, err)
	assert.Empty(t, bobProfile.FriendRequestList)
	assert.Equal(t, []string{string(key)}, bobProfile.ChatIDs)

	_, err = aliceClient.UnFollow(ctx, "bob")
	require.NoError(t, err)
	aliceProfile, err := aliceClient.GetUserDetails(ctx)
	require.NoError(t, err)
	assert.Empty(t, aliceProfile.FollowingList)
}

func TestSearchUsers(t *testing.T) {
	client, srv := newTestBackend(t)
	ctx := context.Background()

	srv.SeedUser("bob")
	srv.SeedUser("bobby")
	srv.SeedUser("carol")

	hits, err := client.SearchUsers(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "bob", hits[0].Username)
	assert.Equal(t, "bobby", hits[1].Username)

	hits, err = client.SearchUsers(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestContextCancellation(t *testing.T) {
	client, _ := newTestBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetProfileDetails(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
}
