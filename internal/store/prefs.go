package store

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// darkModeKey is the single durable preference key the client persists.
const darkModeKey = "socio:prefs:darkMode"

// Preferences persists UI preferences across sessions.
type Preferences interface {
	DarkMode(ctx context.Context) (bool, error)
	SetDarkMode(ctx context.Context, enabled bool) error
}

// RedisPreferences stores preferences in Redis. A nil client degrades every
// operation to a no-op so the application keeps working without persistence.
type RedisPreferences struct {
	client *redis.Client
}

// NewRedisPreferences connects to Redis at the given address or URL.
func NewRedisPreferences(addr string) *RedisPreferences {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("preferences warning: invalid REDIS_URL %q: %v (continuing without persistence)", addr, err)
			return &RedisPreferences{}
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("preferences warning: %v (continuing without persistence)", err)
		return &RedisPreferences{}
	}
	return &RedisPreferences{client: client}
}

// NewRedisPreferencesFromClient wraps an existing client. Used by tests.
func NewRedisPreferencesFromClient(client *redis.Client) *RedisPreferences {
	return &RedisPreferences{client: client}
}

// DarkMode reads the stored preference, defaulting to false when unset.
func (p *RedisPreferences) DarkMode(ctx context.Context) (bool, error) {
	if p.client == nil {
		return false, nil
	}
	val, err := p.client.Get(ctx, darkModeKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	enabled, err := strconv.ParseBool(val)
	if err != nil {
		return false, nil
	}
	return enabled, nil
}

// SetDarkMode persists the preference as "true"/"false".
func (p *RedisPreferences) SetDarkMode(ctx context.Context, enabled bool) error {
	if p.client == nil {
		return nil
	}
	return p.client.Set(ctx, darkModeKey, strconv.FormatBool(enabled), 0).Err()
}
