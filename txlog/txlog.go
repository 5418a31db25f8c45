// Package txlog persists serialized transactions in Redis and replays them.
//
// Each stream is a Redis list of encoded transactions in append order. A
// host uses it to keep previously stored data available across restarts: on
// startup it replays a stream through a Decoder built from the same
// registry that was used when the data was written.
package txlog

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zero-day-ai/fuse/codec"
	"github.com/zero-day-ai/fuse/core"
	"github.com/zero-day-ai/fuse/fuseerr"
)

// DefaultKeyPrefix prefixes the Redis key of every stream.
const DefaultKeyPrefix = "fuse:txlog"

// Option configures a Log.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	keyPrefix      string
	codecOpts      []codec.Option
	tlsConfig      *tls.Config
	connectTimeout time.Duration
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithKeyPrefix sets the prefix of stream keys. The default is
// DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithCodecOptions passes options to the log's Encoder and Decoder.
func WithCodecOptions(opts ...codec.Option) Option {
	return func(c *config) {
		c.codecOpts = append(c.codecOpts, opts...)
	}
}

// WithTLS enables TLS for connections made by Open.
func WithTLS(cfg *tls.Config) Option {
	return func(c *config) {
		c.tlsConfig = cfg
	}
}

// WithConnectTimeout bounds connection establishment in Open. The default
// is 5 seconds.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger:         slog.Default(),
		keyPrefix:      DefaultKeyPrefix,
		connectTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = c.logger.With("component", "txlog")
	return c
}

// Log is a Redis-backed transaction log. It is safe for concurrent use.
type Log struct {
	client  redis.UniversalClient
	owned   bool
	cfg     config
	encoder *codec.Encoder
	decoder *codec.Decoder
}

// Open connects to the Redis server at url (for example
// "redis://localhost:6379/0") and returns a Log that decodes with registry.
func Open(ctx context.Context, url string, registry *core.Registry, opts ...Option) (*Log, error) {
	cfg := newConfig(opts)
	if url == "" {
		url = "redis://localhost:6379"
	}
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.tlsConfig != nil {
		redisOpts.TLSConfig = cfg.tlsConfig
	}
	redisOpts.DialTimeout = cfg.connectTimeout

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	l := newLog(client, registry, cfg)
	l.owned = true
	return l, nil
}

// New returns a Log over an existing client. Close does not close client.
func New(client redis.UniversalClient, registry *core.Registry, opts ...Option) *Log {
	return newLog(client, registry, newConfig(opts))
}

func newLog(client redis.UniversalClient, registry *core.Registry, cfg config) *Log {
	codecOpts := append([]codec.Option{codec.WithLogger(cfg.logger)}, cfg.codecOpts...)
	return &Log{
		client:  client,
		cfg:     cfg,
		encoder: codec.NewEncoder(codecOpts...),
		decoder: codec.NewDecoder(registry, codecOpts...),
	}
}

// Key returns the Redis key of stream.
func (l *Log) Key(stream string) string {
	return l.cfg.keyPrefix + ":" + stream
}

// Append encodes tx and appends it to stream. It returns the new length of
// the stream.
func (l *Log) Append(ctx context.Context, stream string, tx *core.Transaction) (int64, error) {
	if stream == "" {
		return 0, fuseerr.InvalidArgument("Log.Append", "empty stream name")
	}
	data, err := l.encoder.Encode(ctx, tx)
	if err != nil {
		return 0, err
	}
	n, err := l.client.RPush(ctx, l.Key(stream), data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to append to stream %s: %w", stream, err)
	}
	l.cfg.logger.DebugContext(ctx, "transaction appended", "stream", stream, "operations", tx.Len(), "length", n)
	return n, nil
}

// Range decodes every transaction in stream, oldest first. A stream that
// does not exist is empty. If any entry fails to decode, Range returns the
// error and no transactions.
func (l *Log) Range(ctx context.Context, stream string) ([]*core.Transaction, error) {
	entries, err := l.client.LRange(ctx, l.Key(stream), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read stream %s: %w", stream, err)
	}
	out := make([]*core.Transaction, 0, len(entries))
	for i, entry := range entries {
		tx, err := l.decoder.Decode(ctx, []byte(entry))
		if err != nil {
			return nil, fmt.Errorf("stream %s entry %d: %w", stream, i, err)
		}
		out = append(out, tx)
	}
	l.cfg.logger.DebugContext(ctx, "stream replayed", "stream", stream, "transactions", len(out))
	return out, nil
}

// Replay is Range merged into one transaction: operations in append order,
// the latest creation stamp and the union of involved stamps. It returns
// nil when the stream is empty.
func (l *Log) Replay(ctx context.Context, stream string) (*core.Transaction, error) {
	txs, err := l.Range(ctx, stream)
	if err != nil || len(txs) == 0 {
		return nil, err
	}
	merged := txs[0]
	for _, tx := range txs[1:] {
		merged.Merge(tx)
	}
	return merged, nil
}

// Len returns the number of transactions stored in stream.
func (l *Log) Len(ctx context.Context, stream string) (int64, error) {
	n, err := l.client.LLen(ctx, l.Key(stream)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get length of stream %s: %w", stream, err)
	}
	return n, nil
}

// Delete removes stream.
func (l *Log) Delete(ctx context.Context, stream string) error {
	if err := l.client.Del(ctx, l.Key(stream)).Err(); err != nil {
		return fmt.Errorf("failed to delete stream %s: %w", stream, err)
	}
	return nil
}

// Close closes the Redis connection if the Log opened it.
func (l *Log) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}
