// Package mongodb provides MongoDB connection utilities.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/user-registry/internal/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// DefaultDatabase is used when neither the config nor the URI names a database.
const DefaultDatabase = "users"

// Config contains MongoDB connection configuration.
type Config struct {
	URL             string
	MaxPoolSize     uint64
	MinPoolSize     uint64
	ConnectAttempts int
}

// Connect creates a client and pings the primary, retrying with backoff.
// The returned client is safe for concurrent use and owned by the caller.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetPoolMonitor(metrics.NewPoolMonitor()).
		SetMonitor(metrics.NewCommandMonitor())
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := mongo.Connect(ctx, opts)
		if err == nil {
			err = client.Ping(ctx, readpref.Primary())
			if err != nil {
				_ = client.Disconnect(context.Background())
			}
		}
		if err == nil {
			slog.Info("connected to database", "attempts", attempt)
			return client, nil
		}

		lastErr = err
		if attempt < attempts {
			backoff := calcBackoff(attempt)
			slog.Warn("failed to connect to database, retrying",
				"attempt", attempt,
				"max_attempts", attempts,
				"backoff", backoff,
				"error", err,
			)
			if !sleep(ctx, backoff) {
				return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, lastErr)
}

// DatabaseName returns name if set, otherwise the database named in the URI,
// otherwise DefaultDatabase.
func DatabaseName(uri, name string) string {
	if name != "" {
		return name
	}
	if cs, err := connstring.Parse(uri); err == nil && cs.Database != "" {
		return cs.Database
	}
	return DefaultDatabase
}

// calcBackoff returns exponential backoff duration capped at 16 seconds.
func calcBackoff(attempt int) time.Duration {
	backoff := time.Duration(1<<(attempt-1)) * time.Second
	if backoff > 16*time.Second {
		backoff = 16 * time.Second
	}
	return backoff
}

// sleep waits for duration or context cancellation. Returns false if cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
