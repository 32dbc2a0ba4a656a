// Package cache stores raw provider response bodies keyed by the composed
// query fingerprint. The cache is an optimization only: every backend failure
// is treated as a miss, never surfaced to the caller.
package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/log"
)

// DefaultTTL bounds staleness of cached provider responses. There is no
// explicit invalidation path.
const DefaultTTL = 6 * time.Hour

// ErrMiss is returned by backends when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Backend is a key-value store with per-write TTL. Implementations must be
// safe for concurrent use; last-writer-wins is acceptable since values are
// idempotent re-derivations of the same query.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key builds the deterministic cache fingerprint for one provider call. Any
// change to these inputs changes the key.
func Key(query, sources string, offset, perPage int, highlight bool, filter core.FilterLevel) string {
	return strings.Join([]string{
		query,
		sources,
		strconv.Itoa(offset),
		strconv.Itoa(perPage),
		strconv.FormatBool(highlight),
		string(filter),
	}, ":")
}

// ResponseCache wraps a Backend with zstd body compression and failure
// absorption. Values are stored in the pre-parsed wire form, not the
// normalized domain model.
type ResponseCache struct {
	backend Backend
	ttl     time.Duration
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	logger  *log.Logger
}

// New builds a ResponseCache over backend. A non-positive ttl falls back to
// DefaultTTL.
func New(backend Backend, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	return &ResponseCache{
		backend: backend,
		ttl:     ttl,
		enc:     enc,
		dec:     dec,
		logger:  log.ForService("cache"),
	}
}

// Get returns the cached body for key, or false on miss, expiry, backend
// failure or a corrupt stored value.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.backend == nil {
		return nil, false
	}
	compressed, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Debugf("read failed for %s: %v", key, err)
		}
		return nil, false
	}
	body, err := c.dec.DecodeAll(compressed, nil)
	if err != nil {
		c.logger.Debugf("decompress failed for %s: %v", key, err)
		return nil, false
	}
	return body, true
}

// Set stores body under key for the cache TTL. Write failures are logged and
// ignored.
func (c *ResponseCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil || c.backend == nil {
		return
	}
	compressed := c.enc.EncodeAll(body, nil)
	if err := c.backend.Set(ctx, key, compressed, c.ttl); err != nil {
		c.logger.Debugf("write failed for %s: %v", key, err)
	}
}

// TTL returns the configured expiry window.
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

// Close releases the backend and codec resources.
func (c *ResponseCache) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		return err
	}
	return c.backend.Close()
}
