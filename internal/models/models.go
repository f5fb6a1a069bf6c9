// Package models defines the wire records exchanged with the backend and the
// enriched, render-ready views derived from them.
package models

import (
	"bytes"
	"sort"
	"time"
)

// PresenceStatus is the displayed availability of a chat counterpart.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "Online"
	StatusOffline PresenceStatus = "Offline"
	StatusTyping  PresenceStatus = "Typing"
)

// AssetHandle is a local, session-scoped reference standing in for a binary
// payload after conversion. Handles are never persisted and must be released
// through the owning cache when the record that holds them is replaced.
type AssetHandle struct {
	ID        string
	Digest    string
	MIME      string
	Width     int
	Height    int
	Bytes     []byte
	Thumbnail []byte
}

// URI returns the locally addressable form of the handle.
func (h *AssetHandle) URI() string {
	if h == nil {
		return ""
	}
	return "asset://" + h.ID
}

// RawMessage is a single chat message as stored by the backend.
// Immutable once created; ordering is by Date, ties broken by stored sequence.
type RawMessage struct {
	Sender  string    `json:"sender"`
	Message string    `json:"message"`
	Media   []byte    `json:"media,omitempty"`
	Date    time.Time `json:"date"`
}

// Equal reports structural equality between two messages.
func (m RawMessage) Equal(other RawMessage) bool {
	return m.Sender == other.Sender &&
		m.Message == other.Message &&
		bytes.Equal(m.Media, other.Media) &&
		m.Date.Equal(other.Date)
}

// MessageGroup is a backend-returned batch of messages. Groups arrive in
// reverse-chronological fetch order while each group's own messages stay
// chronological.
type MessageGroup struct {
	Messages []RawMessage `json:"messages"`
}

// GroupsEqual reports structural equality between two fetched message sets.
// A tick whose fetch compares equal performs no state mutation.
func GroupsEqual(a, b []MessageGroup) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Messages) != len(b[i].Messages) {
			return false
		}
		for j := range a[i].Messages {
			if !a[i].Messages[j].Equal(b[i].Messages[j]) {
				return false
			}
		}
	}
	return true
}

// FlattenMessages normalizes the dual group/message ordering into a single
// global chronological sequence. The stable sort keeps stored order for
// messages that share a timestamp.
func FlattenMessages(groups []MessageGroup) []RawMessage {
	total := 0
	for _, g := range groups {
		total += len(g.Messages)
	}
	out := make([]RawMessage, 0, total)
	for _, g := range groups {
		out = append(out, g.Messages...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// ChatThread is the render-ready state of one conversation. The
// synchronization engine publishes a fresh value when the message set changes
// rather than writing through an already published one; threads are discarded
// when the session ends.
type ChatThread struct {
	Name       string
	ProfilePic *AssetHandle
	Status     PresenceStatus
	Messages   []MessageGroup
}

// LastMessage returns the most recent message in the thread, if any.
func (t *ChatThread) LastMessage() (RawMessage, bool) {
	flat := FlattenMessages(t.Messages)
	if len(flat) == 0 {
		return RawMessage{}, false
	}
	return flat[len(flat)-1], true
}

// ProfileRecord is the backend's profile shape with its binary picture field.
type ProfileRecord struct {
	Username          string    `json:"username"`
	DisplayName       string    `json:"displayName"`
	Bio               string    `json:"bio"`
	ProfilePicture    []byte    `json:"profilePicture,omitempty"`
	FollowerCount     int       `json:"followerCount"`
	FollowingCount    int       `json:"followingCount"`
	PostCount         int       `json:"postCount"`
	FollowingList     []string  `json:"followingList"`
	FriendRequestList []string  `json:"friendRequestList"`
	ChatIDs           []string  `json:"chatIds"`
	PostAddresses     []string  `json:"postAddresses"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ProfileSummary is the enriched view of a profile with a converted picture.
type ProfileSummary struct {
	Username          string
	DisplayName       string
	Bio               string
	ProfilePicture    *AssetHandle
	FollowerCount     int
	FollowingCount    int
	PostCount         int
	FollowingList     []string
	FriendRequestList []string
	ChatIDs           []string
	PostAddresses     []string
}

// PostRecord is the backend's post shape with its binary media field.
type PostRecord struct {
	Address string    `json:"address"`
	Owner   string    `json:"owner"`
	Img     []byte    `json:"img,omitempty"`
	Caption string    `json:"caption"`
	Date    time.Time `json:"date"`
	Likes   []string  `json:"likes"`
}

// PostView is the enriched view of a post with converted media.
type PostView struct {
	Address string
	Owner   string
	Img     *AssetHandle
	Caption string
	Date    time.Time
	Likes   []string
}

// NotificationRecord is a raw backend notification.
type NotificationRecord struct {
	From             string    `json:"from"`
	Action           string    `json:"action"`
	NotificationType string    `json:"notificationType"`
	Addresses        []string  `json:"addresses"`
	Date             time.Time `json:"date"`
}

// NotificationItem is a notification joined with the sender's converted
// profile picture.
type NotificationItem struct {
	From             string
	Action           string
	NotificationType string
	Addresses        []string
	Date             time.Time
	ProfilePic       *AssetHandle
}

// AccountSummary is a raw search hit on username substring.
type AccountSummary struct {
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	ProfilePicture []byte `json:"profilePicture,omitempty"`
}

// AccountView is a search hit enriched with a converted picture.
type AccountView struct {
	Username       string
	DisplayName    string
	ProfilePicture *AssetHandle
}

// Identity is the caller identity reported by the backend.
type Identity struct {
	Username string `json:"username"`
}

// MessageReceipt acknowledges a persisted outgoing message.
type MessageReceipt struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

// Summary converts a raw profile record into its enriched view, leaving the
// picture to the asset cache.
func (p ProfileRecord) Summary(pic *AssetHandle) ProfileSummary {
	return ProfileSummary{
		Username:          p.Username,
		DisplayName:       p.DisplayName,
		Bio:               p.Bio,
		ProfilePicture:    pic,
		FollowerCount:     p.FollowerCount,
		FollowingCount:    p.FollowingCount,
		PostCount:         p.PostCount,
		FollowingList:     p.FollowingList,
		FriendRequestList: p.FriendRequestList,
		ChatIDs:           p.ChatIDs,
		PostAddresses:     p.PostAddresses,
	}
}
