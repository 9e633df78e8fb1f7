// Package coordination wraps the shared key-value coordination store
// (Redis) behind a small client used by the limiter, credential health
// tracker, and result cache. It owns a process-local connection pool whose
// lifecycle matches the process, plus go-redis's own script-digest cache
// (lazy-loaded on first Run, reloaded automatically on a NOSCRIPT miss)
// without any hand-rolled bookkeeping on top.
package coordination

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store is the coordination-store client. It is safe for concurrent use by
// many goroutines across many worker processes, exactly like the
// *redis.Client it wraps.
type Store struct {
	rdb *redis.Client
}

// New connects to the coordination store at addr with the given
// connection-pool size, mirroring the teacher's plain redis.NewClient
// construction in cmd/worker/main.go and cmd/scheduler/main.go.
func New(addr string, poolSize int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: poolSize,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("coordination store: failed to connect to %s: %w", addr, err)
	}
	return &Store{rdb: rdb}, nil
}

// Client exposes the underlying go-redis client for packages (limiter,
// credential, cache) that need direct access to run their own scripts and
// primitives against the same connection pool.
func (s *Store) Client() *redis.Client {
	return s.rdb
}

// Close releases the connection pool. Called once at process shutdown.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies connectivity, used by the HTTP API's /health handler.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
