package backendtest

import (
	"errors"
	"fmt"
	"time"

	"socio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type registerRequest struct {
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	Bio            string `json:"bio"`
	ProfilePicture []byte `json:"profilePicture"`
	Password       string `json:"password"`
}

func respondError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return respondError(c, fiber.StatusBadRequest, "Username and password are required")
	}

	var count int64
	s.db.Model(&User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		return respondError(c, fiber.StatusConflict, "Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to hash password")
	}

	user := User{
		Username:       req.Username,
		DisplayName:    req.DisplayName,
		Bio:            req.Bio,
		PasswordHash:   string(hash),
		ProfilePicture: req.ProfilePicture,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to create user")
	}

	token, err := s.issueToken(req.Username)
	if err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to issue token")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token})
}

func (s *Server) usernameAvailability(c *fiber.Ctx) error {
	var count int64
	s.db.Model(&User{}).Where("username = ?", c.Params("username")).Count(&count)
	return c.JSON(fiber.Map{"available": count == 0})
}

func (s *Server) whoAmI(c *fiber.Ctx) error {
	return c.JSON(models.Identity{Username: c.Locals("username").(string)})
}

func (s *Server) getUserDetails(c *fiber.Ctx) error {
	return s.profileResponse(c, c.Locals("username").(string))
}

func (s *Server) getProfileDetails(c *fiber.Ctx) error {
	return s.profileResponse(c, c.Params("username"))
}

func (s *Server) profileResponse(c *fiber.Ctx, username string) error {
	var user User
	if err := s.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, fiber.StatusNotFound, fmt.Sprintf("User %s not found", username))
		}
		return respondError(c, fiber.StatusInternalServerError, "Unable to load profile")
	}

	var followerCount, followingCount, postCount int64
	s.db.Model(&Follow{}).Where("followee = ?", username).Count(&followerCount)
	s.db.Model(&Follow{}).Where("follower = ?", username).Count(&followingCount)
	s.db.Model(&Post{}).Where("owner = ?", username).Count(&postCount)

	var followingList []string
	s.db.Model(&Follow{}).Where("follower = ?", username).Pluck("followee", &followingList)

	var friendRequestList []string
	s.db.Model(&FriendRequest{}).Where("`to` = ? AND accepted = ?", username, false).Pluck("`from`", &friendRequestList)

	var chatIDs []string
	s.db.Model(&ChatMember{}).Where("username = ?", username).Pluck("chat_id", &chatIDs)

	var postAddresses []string
	s.db.Model(&Post{}).Where("owner = ?", username).Order("date ASC").Pluck("address", &postAddresses)

	return c.JSON(models.ProfileRecord{
		Username:          user.Username,
		DisplayName:       user.DisplayName,
		Bio:               user.Bio,
		ProfilePicture:    user.ProfilePicture,
		FollowerCount:     int(followerCount),
		FollowingCount:    int(followingCount),
		PostCount:         int(postCount),
		FollowingList:     followingList,
		FriendRequestList: friendRequestList,
		ChatIDs:           chatIDs,
		PostAddresses:     postAddresses,
		CreatedAt:         user.CreatedAt,
	})
}

func (s *Server) getPost(c *fiber.Ctx) error {
	var post Post
	if err := s.db.First(&post, "address = ?", c.Params("address")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, fiber.StatusNotFound, "Post not found")
		}
		return respondError(c, fiber.StatusInternalServerError, "Unable to load post")
	}

	var likes []string
	return c.JSON(models.PostRecord{
		Address: post.Address,
		Owner:   post.Owner,
		Img:     post.Img,
		Caption: post.Caption,
		Date:    post.Date,
		Likes:   likes,
	})
}

func (s *Server) setPost(c *fiber.Ctx) error {
	var req struct {
		ID      string    `json:"id"`
		Img     []byte    `json:"img"`
		Caption string    `json:"caption"`
		Date    time.Time `json:"date"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	post := Post{
		Address: req.ID,
		Owner:   c.Locals("username").(string),
		Img:     req.Img,
		Caption: req.Caption,
		Date:    req.Date,
	}
	if err := s.db.Create(&post).Error; err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to store post")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) getMessages(c *fiber.Ctx) error {
	var stored []Message
	if err := s.db.Where("chat_id = ?", c.Params("key")).
		Order("date ASC, id ASC").
		Find(&stored).Error; err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to load messages")
	}

	raw := make([]models.RawMessage, len(stored))
	for i, m := range stored {
		raw[i] = models.RawMessage{
			Sender:  m.Sender,
			Message: m.Body,
			Media:   m.Media,
			Date:    m.Date,
		}
	}

	// Batch chronologically, then return groups newest-first while each
	// group's own messages stay chronological.
	var groups []models.MessageGroup
	for start := 0; start < len(raw); start += messageGroupSize {
		end := start + messageGroupSize
		if end > len(raw) {
			end = len(raw)
		}
		groups = append(groups, models.MessageGroup{Messages: raw[start:end]})
	}
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	if groups == nil {
		groups = []models.MessageGroup{}
	}
	return c.JSON(groups)
}

func (s *Server) postMessage(c *fiber.Ctx) error {
	var req models.RawMessage
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Sender != c.Locals("username").(string) {
		return respondError(c, fiber.StatusForbidden, "Sender does not match credential")
	}

	msg := Message{
		ChatID: c.Params("key"),
		Sender: req.Sender,
		Body:   req.Message,
		Media:  req.Media,
		Date:   req.Date,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to store message")
	}
	return c.JSON(models.MessageReceipt{
		ID:   fmt.Sprintf("%d", msg.ID),
		Date: msg.Date,
	})
}

type friendRequestBody struct {
	Username string    `json:"username"`
	Date     time.Time `json:"date"`
	ChatID   string    `json:"chatId"`
}

func (s *Server) sendFriendRequest(c *fiber.Ctx) error {
	var req friendRequestBody
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	from := c.Locals("username").(string)
	fr := FriendRequest{
		From:   from,
		To:     req.Username,
		ChatID: req.ChatID,
		Date:   req.Date,
	}
	if err := s.db.Create(&fr).Error; err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to store friend request")
	}
	s.db.Create(&Follow{Follower: from, Followee: req.Username})
	return c.JSON(fiber.Map{"message": "Friend request sent"})
}

func (s *Server) acceptFriendRequest(c *fiber.Ctx) error {
	var req friendRequestBody
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	to := c.Locals("username").(string)
	var fr FriendRequest
	if err := s.db.First(&fr, "`from` = ? AND `to` = ? AND accepted = ?", req.Username, to, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, fiber.StatusNotFound, "No pending friend request")
		}
		return respondError(c, fiber.StatusInternalServerError, "Unable to load friend request")
	}

	fr.Accepted = true
	if err := s.db.Save(&fr).Error; err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to accept friend request")
	}
	s.db.Create(&ChatMember{Username: fr.From, ChatID: fr.ChatID})
	s.db.Create(&ChatMember{Username: fr.To, ChatID: fr.ChatID})
	s.db.Create(&Follow{Follower: to, Followee: req.Username})
	return c.JSON(fiber.Map{"message": "Friend request accepted"})
}

func (s *Server) unFollow(c *fiber.Ctx) error {
	follower := c.Locals("username").(string)
	if err := s.db.Where("follower = ? AND followee = ?", follower, c.Params("username")).
		Delete(&Follow{}).Error; err != nil {
		return respondError(c, fiber.StatusInternalServerError, "Unable to unfollow")
	}
	return c.JSON(fiber.Map{"message": "Unfollowed"})
}

func (s *Server) searchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	var users []User
	if query != "" {
		s.db.Where("username LIKE ?", "%"+query+"%").Order("username ASC").Find(&users)
	}

	out := make([]models.AccountSummary, len(users))
	for i, u := range users {
		out[i] = models.AccountSummary{
			Username:       u.Username,
			DisplayName:    u.DisplayName,
			ProfilePicture: u.ProfilePicture,
		}
	}
	return c.JSON(out)
}
