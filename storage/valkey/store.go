// Package valkey provides a Valkey-backed implementation of
// storage.ExpiringStore for deployments where login state, PKCE verifiers,
// and refresh tokens must be shared across instances. Any Redis-protocol
// server works; TTLs are enforced server-side.
package valkey

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/yeotaeho/oauth-core/storage"
)

const (
	// connectionVerifyTimeout is the timeout for initial connection verification
	connectionVerifyTimeout = 5 * time.Second
)

// Config holds configuration for the Valkey storage backend.
type Config struct {
	// Address is the Valkey server address (required), e.g. "localhost:6379"
	Address string

	// Password is the optional password for authentication
	Password string

	// DB is the optional database number (default 0)
	DB int

	// KeyPrefix is an optional prefix applied to every key, useful when
	// several applications share one server
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections
	TLS *tls.Config

	// DisableCache disables valkey-go's client-side caching. Required when
	// the server does not support CLIENT TRACKING (e.g. miniredis in tests).
	DisableCache bool

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Store is a Valkey-backed implementation of storage.ExpiringStore.
type Store struct {
	client valkeygo.Client
	prefix string
	logger *slog.Logger
}

// Compile-time interface check
var _ storage.ExpiringStore = (*Store)(nil)

// New creates a new Valkey-backed store.
// Returns an error if the connection cannot be established.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := valkeygo.ClientOption{
		InitAddress:  []string{cfg.Address},
		SelectDB:     cfg.DB,
		DisableCache: cfg.DisableCache,
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	if cfg.TLS != nil {
		opts.TLSConfig = cfg.TLS
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	logger.Info("Connected to Valkey storage",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", cfg.KeyPrefix)

	return &Store{
		client: client,
		prefix: cfg.KeyPrefix,
		logger: logger,
	}, nil
}

// Close closes the Valkey client connection.
func (s *Store) Close() {
	s.client.Close()
	s.logger.Info("Valkey storage connection closed")
}

// key applies the configured prefix.
func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get returns the value for key, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(key)).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return val, nil
}

// GetDel atomically returns and deletes the value for key using GETDEL,
// so only one concurrent caller can observe a given value.
func (s *Store) GetDel(ctx context.Context, key string) (string, error) {
	val, err := s.client.Do(ctx, s.client.B().Getdel().Key(s.key(key)).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to get-delete key: %w", err)
	}
	return val, nil
}

// Set writes key=value with the given TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Do(ctx, s.client.B().Set().Key(s.key(key)).Value(value).Ex(ttl).Build()).Error(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.key(key)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// SetAdd adds member to the set at key.
func (s *Store) SetAdd(ctx context.Context, key, member string) error {
	if err := s.client.Do(ctx, s.client.B().Sadd().Key(s.key(key)).Member(member).Build()).Error(); err != nil {
		return fmt.Errorf("failed to add set member: %w", err)
	}
	return nil
}

// SetMembers returns all members of the set at key.
func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.Do(ctx, s.client.B().Smembers().Key(s.key(key)).Build()).AsStrSlice()
	if err != nil {
		if isNilError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read set members: %w", err)
	}
	return members, nil
}

// SetRemove removes member from the set at key.
func (s *Store) SetRemove(ctx context.Context, key, member string) error {
	if err := s.client.Do(ctx, s.client.B().Srem().Key(s.key(key)).Member(member).Build()).Error(); err != nil {
		return fmt.Errorf("failed to remove set member: %w", err)
	}
	return nil
}

// Expire resets the TTL of key.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Do(ctx, s.client.B().Expire().Key(s.key(key)).Seconds(int64(ttl.Seconds())).Build()).Error(); err != nil {
		return fmt.Errorf("failed to expire key: %w", err)
	}
	return nil
}

// isNilError reports whether err is the Valkey nil-reply error.
func isNilError(err error) bool {
	return valkeygo.IsValkeyNil(err)
}
