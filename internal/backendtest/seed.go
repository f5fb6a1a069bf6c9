package backendtest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// TinyPNG renders a small solid-color image. Seeded accounts need real image
// bytes so asset conversion succeeds downstream.
func TinyPNG(c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// SeedUser inserts an account and returns its username.
func (s *Server) SeedUser(username string) string {
	if username == "" {
		username = strings.ToLower(gofakeit.Username())
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	s.db.Create(&User{
		Username:       username,
		DisplayName:    gofakeit.Name(),
		Bio:            gofakeit.Sentence(8),
		PasswordHash:   string(hash),
		ProfilePicture: TinyPNG(color.RGBA{R: uint8(gofakeit.Number(0, 255)), G: 80, B: 120, A: 255}),
		CreatedAt:      time.Now().UTC(),
	})
	return username
}

// SeedFriendship makes a and b friends sharing the given conversation.
func (s *Server) SeedFriendship(a, b, chatID string) {
	s.db.Create(&FriendRequest{From: a, To: b, ChatID: chatID, Date: time.Now().UTC(), Accepted: true})
	s.db.Create(&Follow{Follower: a, Followee: b})
	s.db.Create(&Follow{Follower: b, Followee: a})
	s.db.Create(&ChatMember{Username: a, ChatID: chatID})
	s.db.Create(&ChatMember{Username: b, ChatID: chatID})
}

// SeedMessages inserts n alternating messages into a conversation, spaced one
// minute apart ending now.
func (s *Server) SeedMessages(chatID, a, b string, n int) {
	start := time.Now().UTC().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		sender := a
		if i%2 == 1 {
			sender = b
		}
		s.db.Create(&Message{
			ChatID: chatID,
			Sender: sender,
			Body:   fmt.Sprintf("%s (%d)", gofakeit.HipsterSentence(4), i),
			Date:   start.Add(time.Duration(i) * time.Minute),
		})
	}
}

// SeedPost inserts a post for the owner and returns its address.
func (s *Server) SeedPost(owner string) string {
	address := gofakeit.UUID()
	s.db.Create(&Post{
		Address: address,
		Owner:   owner,
		Img:     TinyPNG(color.RGBA{R: 40, G: 160, B: 90, A: 255}),
		Caption: gofakeit.Sentence(6),
		Date:    time.Now().UTC(),
	})
	return address
}
