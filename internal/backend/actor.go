// Package backend defines the remote backend boundary consumed by the client
// layer and its HTTP implementation. The backend is the source of truth for
// all social data; this package only moves records across the wire.
package backend

import (
	"context"
	"time"

	"socio/internal/identity"
	"socio/internal/models"
)

// RegisterInput is the payload for creating a new account.
type RegisterInput struct {
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	Bio            string `json:"bio"`
	ProfilePicture []byte `json:"profilePicture,omitempty"`
	Password       string `json:"password"`
}

// Actor is the set of operations the remote backend exposes. Every call
// suspends until the response arrives and returns an explicit error; there is
// no push channel.
type Actor interface {
	GetProfileDetails(ctx context.Context, username string) (*models.ProfileRecord, error)
	GetUserDetails(ctx context.Context) (*models.ProfileRecord, error)
	UsernameAvailability(ctx context.Context, username string) (bool, error)
	RegisterUser(ctx context.Context, in RegisterInput) (string, error)
	GetPost(ctx context.Context, address string) (*models.PostRecord, error)
	SetPost(ctx context.Context, id string, media []byte, caption string, date time.Time) (bool, error)
	GetMessages(ctx context.Context, key identity.Key) ([]models.MessageGroup, error)
	PostMessage(ctx context.Context, key identity.Key, sender, text string, media []byte, date time.Time) (*models.MessageReceipt, error)
	SendFriendRequest(ctx context.Context, username string, date time.Time, key identity.Key) (string, error)
	AcceptFriendRequest(ctx context.Context, username string, date time.Time, key identity.Key) (string, error)
	UnFollow(ctx context.Context, username string) (string, error)
	SearchUsers(ctx context.Context, query string) ([]models.AccountSummary, error)
	WhoAmI(ctx context.Context) (*models.Identity, error)
}
