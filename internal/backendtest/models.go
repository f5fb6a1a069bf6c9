package backendtest

import "time"

// User is a stored account.
type User struct {
	Username       string `gorm:"primaryKey"`
	DisplayName    string
	Bio            string
	PasswordHash   string
	ProfilePicture []byte
	CreatedAt      time.Time
}

// Post is a stored post addressed by an opaque string.
type Post struct {
	Address string `gorm:"primaryKey"`
	Owner   string `gorm:"index"`
	Img     []byte
	Caption string
	Date    time.Time
}

// Message is one stored chat message. The ID preserves arrival order for
// timestamp ties.
type Message struct {
	ID     uint   `gorm:"primaryKey"`
	ChatID string `gorm:"index"`
	Sender string
	Body   string
	Media  []byte
	Date   time.Time
}

// FriendRequest is a pending or accepted friendship.
type FriendRequest struct {
	ID       uint   `gorm:"primaryKey"`
	From     string `gorm:"index"`
	To       string `gorm:"index"`
	ChatID   string
	Date     time.Time
	Accepted bool
}

// Follow is a directed follow edge.
type Follow struct {
	ID       uint   `gorm:"primaryKey"`
	Follower string `gorm:"index"`
	Followee string `gorm:"index"`
}

// ChatMember maps a user to a conversation key they participate in.
type ChatMember struct {
	ID       uint   `gorm:"primaryKey"`
	Username string `gorm:"index"`
	ChatID   string
}
