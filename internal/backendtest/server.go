// Package backendtest provides an in-process implementation of the backend
// API the client consumes. It backs integration tests and the mockbackend
// command; it is not the production backend.
package backendtest

import (
	"net"
	"strings"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const tokenTTL = 24 * time.Hour

// messageGroupSize is how many messages the backend batches per group.
const messageGroupSize = 20

// Server is the in-memory backend.
type Server struct {
	db        *gorm.DB
	app       *fiber.App
	jwtSecret []byte
}

// Option configures the server.
type Option func(*options)

type options struct {
	metrics bool
}

// WithMetrics exposes prometheus metrics at /metrics. Enable only once per
// process; the collectors register globally.
func WithMetrics() Option {
	return func(o *options) { o.metrics = true }
}

// NewServer creates a backend with a fresh in-memory database.
func NewServer(jwtSecret string, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Named shared-cache memory DB: the connection pool must see one store,
	// but separate servers in one process must not share state.
	dsn := "file:backendtest-" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&User{}, &Post{}, &Message{}, &FriendRequest{}, &Follow{}, &ChatMember{}); err != nil {
		return nil, err
	}

	s := &Server{
		db:        db,
		app:       fiber.New(fiber.Config{DisableStartupMessage: true}),
		jwtSecret: []byte(jwtSecret),
	}

	if o.metrics {
		prom := fiberprometheus.New("socio-mockbackend")
		prom.RegisterAt(s.app, "/metrics")
		s.app.Use(prom.Middleware)
	}

	s.setupRoutes()
	return s, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// DB returns the underlying database, for seeding.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Serve binds the app to an ephemeral local port and returns its base URL and
// a shutdown function.
func (s *Server) Serve() (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	go func() {
		_ = s.app.Listener(ln)
	}()
	baseURL := "http://" + ln.Addr().String()
	shutdown := func() {
		_ = s.app.Shutdown()
	}
	return baseURL, shutdown, nil
}

// Listen serves the app on the given address, blocking.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")

	api.Post("/register", s.register)
	api.Get("/usernames/:username/availability", s.usernameAvailability)
	api.Get("/search", s.searchUsers)
	api.Get("/profiles/:username", s.getProfileDetails)
	api.Get("/posts/:address", s.getPost)
	api.Get("/chats/:key/messages", s.getMessages)

	authed := api.Group("", s.authRequired)
	authed.Get("/whoami", s.whoAmI)
	authed.Get("/me", s.getUserDetails)
	authed.Post("/posts", s.setPost)
	authed.Post("/chats/:key/messages", s.postMessage)
	authed.Post("/friends/requests", s.sendFriendRequest)
	authed.Post("/friends/accept", s.acceptFriendRequest)
	authed.Delete("/friends/:username", s.unFollow)
}

// authRequired enforces the bearer credential and stores the caller username.
func (s *Server) authRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token claims",
		})
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid token subject",
		})
	}

	c.Locals("username", sub)
	return c.Next()
}

func (s *Server) issueToken(username string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
