// Package testutil contains helpers shared by tests
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bitwise74/recipe-api/config"
	"bitwise74/recipe-api/db"
	"bitwise74/recipe-api/internal/service"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter atomic.Int64

// NewDB opens a fresh in-memory sqlite database with all tables migrated
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d_%d?mode=memory&cache=shared&_foreign_keys=1", time.Now().UnixNano(), dbCounter.Add(1))

	g, err := db.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := g.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return g
}

// Config returns a valid config suitable for tests
func Config() *config.Config {
	return &config.Config{
		App:  config.AppConfig{LogLevel: "debug"},
		Host: config.HostConfig{Port: 8080, Domain: "localhost", CORS: []string{"http://localhost:5173"}},
		DB:   config.DBConfig{Type: "sqlite", Path: ":memory:"},
		JWT: config.JWTConfig{
			Secret:     "test-secret",
			AccessTTL:  5 * time.Minute,
			RefreshTTL: 90 * 24 * time.Hour,
		},
		Verification: config.VerificationConfig{
			URL:            "http://localhost:5173/verify-email",
			TTL:            72 * time.Hour,
			ResendCooldown: 5 * time.Minute,
		},
		Queue:    config.QueueConfig{Type: "local", Workers: 1, Size: 10},
		Redis:    config.RedisConfig{Addr: "127.0.0.1:6379"},
		Storage:  config.StorageConfig{Type: "local", LocalPath: "media"},
		Upload:   config.UploadConfig{MaxSize: 5 << 20},
		AI:       config.AIConfig{BaseURL: "http://localhost", Model: "test", Timeout: time.Second},
		Cache:    config.CacheConfig{Store: "memory"},
		Security: config.SecurityConfig{RateLimit: 100},
		Admin:    config.AdminConfig{Username: "admin", Email: "admin@example.com", Password: "adminpass123"},
	}
}

// MailQueue records every mail handed to it
type MailQueue struct {
	mu    sync.Mutex
	Mails []service.VerificationMail
	Err   error
}

func (q *MailQueue) Enqueue(_ context.Context, m service.VerificationMail) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.Err != nil {
		return q.Err
	}

	q.Mails = append(q.Mails, m)
	return nil
}

func (q *MailQueue) Sent() []service.VerificationMail {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]service.VerificationMail(nil), q.Mails...)
}
