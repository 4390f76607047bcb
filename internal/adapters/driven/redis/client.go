package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arclight-labs/session-core/internal/core/domain"
)

// Connection handshake retry policy. Only the initial dial retries;
// individual operations surface failures to the caller.
const (
	defaultDialAttempts   = 10
	defaultDialBackoff    = 100 * time.Millisecond
	defaultDialBackoffCap = 2 * time.Second
	dialPingTimeout       = 5 * time.Second
)

// Config holds connection settings for the backing store. URL takes
// precedence; more than one address implies cluster mode.
type Config struct {
	URL      string
	Addrs    []string
	Password string
	DB       int

	DialAttempts   int
	DialBackoff    time.Duration
	DialBackoffCap time.Duration

	Logger *slog.Logger
}

// Client manages a lazily-established connection to the clustered store
// and presents a uniform get/set/del/expire surface over it. It is
// process-wide shared state: construct one and inject it everywhere.
type Client struct {
	opts   *redis.UniversalOptions
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	conn    redis.UniversalClient
	pending chan struct{} // closed when the in-flight dial settles
	dialErr error
}

// NewClient validates the configuration and returns an unconnected
// client. The actual dial happens on first use.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DialAttempts <= 0 {
		cfg.DialAttempts = defaultDialAttempts
	}
	if cfg.DialBackoff <= 0 {
		cfg.DialBackoff = defaultDialBackoff
	}
	if cfg.DialBackoffCap <= 0 {
		cfg.DialBackoffCap = defaultDialBackoffCap
	}

	opts := &redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = &redis.UniversalOptions{
			Addrs:    []string{parsed.Addr},
			Password: parsed.Password,
			DB:       parsed.DB,
		}
	}
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("redis: no addresses configured")
	}

	return &Client{opts: opts, cfg: cfg, logger: cfg.Logger}, nil
}

// Handle returns the connected store handle, dialing lazily. Callers
// that arrive while a dial is in flight wait for that same dial instead
// of opening parallel connections.
func (c *Client) Handle(ctx context.Context) (redis.UniversalClient, error) {
	c.mu.Lock()
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	if c.pending == nil {
		c.pending = make(chan struct{})
		go c.dial(c.pending)
	}
	pending := c.pending
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pending:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	return nil, c.dialErr
}

// dial opens the connection and pings until the store confirms
// readiness, backing off exponentially up to a fixed ceiling.
func (c *Client) dial(pending chan struct{}) {
	conn := redis.NewUniversalClient(c.opts)
	backoff := c.cfg.DialBackoff

	var err error
	for attempt := 1; attempt <= c.cfg.DialAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(context.Background(), dialPingTimeout)
		err = conn.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			break
		}
		c.logger.Warn("redis not ready", "attempt", attempt, "error", err)
		if attempt < c.cfg.DialAttempts {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > c.cfg.DialBackoffCap {
				backoff = c.cfg.DialBackoffCap
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		_ = conn.Close()
		c.dialErr = fmt.Errorf("%w: connect: %v", domain.ErrStoreUnavailable, err)
		c.logger.Error("redis connection failed", "error", err)
	} else {
		c.conn = conn
		c.dialErr = nil
	}
	close(pending)
	c.pending = nil
}

// Set writes a value under key. Non-string values are serialized before
// writing. A positive ttl expires the entry at the store level.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	conn, err := c.Handle(ctx)
	if err != nil {
		return err
	}
	payload, err := EncodeValue(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := conn.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.Error("redis set failed", "key", key, "error", err)
		return fmt.Errorf("%w: set %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Get reads a value, attempting structured deserialization. Malformed
// payloads degrade to a raw or corrupt StoredValue, never an error. The
// boolean reports whether the key existed.
func (c *Client) Get(ctx context.Context, key string) (domain.StoredValue, bool, error) {
	conn, err := c.Handle(ctx)
	if err != nil {
		return domain.StoredValue{}, false, err
	}
	raw, err := conn.Get(ctx, key).Result()
	if err == redis.Nil {
		return domain.StoredValue{}, false, nil
	}
	if err != nil {
		c.logger.Error("redis get failed", "key", key, "error", err)
		return domain.StoredValue{}, false, fmt.Errorf("%w: get %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return DecodeValue(raw), true, nil
}

// Del removes the given keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	conn, err := c.Handle(ctx)
	if err != nil {
		return err
	}
	if err := conn.Del(ctx, keys...).Err(); err != nil {
		c.logger.Error("redis del failed", "keys", keys, "error", err)
		return fmt.Errorf("%w: del: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Expire reapplies a TTL to an existing key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	conn, err := c.Handle(ctx)
	if err != nil {
		return err
	}
	if err := conn.Expire(ctx, key, ttl).Err(); err != nil {
		c.logger.Error("redis expire failed", "key", key, "error", err)
		return fmt.Errorf("%w: expire %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Ping checks store health, dialing if necessary.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.Handle(ctx)
	if err != nil {
		return err
	}
	if err := conn.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Quit releases the connection. A dial still in flight is waited out
// first so the connection it installs cannot outlive the release.
// Subsequent operations reconnect.
func (c *Client) Quit() error {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if pending != nil {
		<-pending
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.dialErr = nil
	return err
}
