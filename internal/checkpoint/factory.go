package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// HealthReport is the result of Factory.Health.
type HealthReport struct {
	Healthy bool   `json:"healthy"`
	Kind    Kind   `json:"kind"`
	Error   string `json:"error,omitempty"`
}

// build is an in-flight construction that concurrent Get callers wait on.
type build struct {
	done chan struct{}
	cp   Checkpointer
	err  error
}

// Factory selects, constructs and owns the process-wide Checkpointer.
//
// The backend is chosen from the environment on every call; the instance it
// produces is built once and shared until Reset or Shutdown. A second Get that
// arrives while the first is still constructing waits for that construction
// instead of starting another one.
type Factory struct {
	getenv func(string) string

	mu       sync.Mutex
	instance Checkpointer
	pool     *redis.Client // owned; shared by the durable instance and health probes
	poolURL  string        // connection string pool was opened with
	building *build
	fallback *MemoryStore // handed out by GetSync while durable is not built
	gen      uint64       // bumped by Reset so stale constructions are discarded
}

// NewFactory creates a factory reading configuration through getenv.
// Pass nil to read the process environment.
func NewFactory(getenv func(string) string) *Factory {
	return &Factory{getenv: getenv}
}

// Config returns the backend configuration the next construction would use.
func (f *Factory) Config() (BackendConfig, error) {
	return LoadBackendConfig(f.getenv)
}

// Get returns the shared Checkpointer, constructing it on first use.
// Construction failures are returned to the caller and leave the factory
// uninitialised, so the next call retries from scratch.
//
// Construction runs detached from the caller that started it, bounded by
// SetupTimeout. Every caller stops waiting when its own ctx is done; the
// construction keeps going for the others. If Reset runs before construction
// finishes, all waiting callers get ErrFactoryReset.
func (f *Factory) Get(ctx context.Context) (Checkpointer, error) {
	cfg, err := f.Config()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if f.instance != nil {
		inst := f.instance
		f.mu.Unlock()
		return inst, nil
	}

	b := f.building
	if b == nil {
		b = &build{done: make(chan struct{})}
		f.building = b
		go f.runBuild(context.WithoutCancel(ctx), b, f.gen, cfg)
	}
	f.mu.Unlock()

	select {
	case <-b.done:
		return b.cp, b.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runBuild constructs the backend for b and publishes the outcome.
func (f *Factory) runBuild(ctx context.Context, b *build, gen uint64, cfg BackendConfig) {
	ctx, cancel := context.WithTimeout(ctx, SetupTimeout)
	defer cancel()

	cp, err := f.construct(ctx, cfg)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.building == b {
		f.building = nil
	}

	switch {
	case f.gen != gen:
		// Reset overtook us; whatever was built belongs to a discarded generation
		if cp != nil {
			cp.Close()
		}
		cp, err = nil, ErrFactoryReset
	case err != nil:
		log.Printf("[Checkpoint] %s setup failed: %v", cfg.Kind, err)
	default:
		f.instance = cp
		log.Printf("[Checkpoint] Initialized %s checkpointer", cp.Kind())
	}

	b.cp, b.err = cp, err
	close(b.done)
}

// construct builds the backend for cfg. For durable it claims the factory pool,
// then runs schema setup; on failure the pool is released.
func (f *Factory) construct(ctx context.Context, cfg BackendConfig) (Checkpointer, error) {
	switch cfg.Kind {
	case KindMemory:
		return NewMemoryStore(), nil

	case KindDurable:
		pool, err := f.ensurePool(cfg)
		if err != nil {
			return nil, err
		}

		store := NewRedisStore(pool, false)
		if err := store.Setup(ctx); err != nil {
			f.releasePool(pool)
			return nil, &InitError{Stage: "setup", Err: err}
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %q", cfg.Kind)
	}
}

// ensurePool returns the factory pool for cfg. A pool opened with a different
// connection string is closed and replaced.
func (f *Factory) ensurePool(cfg BackendConfig) (*redis.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pool != nil {
		if f.poolURL == cfg.ConnectionString {
			return f.pool, nil
		}
		log.Printf("[Checkpoint] Connection string changed; reopening pool")
		f.pool.Close()
		f.pool, f.poolURL = nil, ""
	}

	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}
	f.pool, f.poolURL = pool, cfg.ConnectionString
	return pool, nil
}

// probePool returns a pool for a health probe against cfg and whether the
// caller must close it. The shared pool is used when it matches cfg or when
// nothing is built yet; a built instance keeps its pool and the probe gets a
// temporary one.
func (f *Factory) probePool(cfg BackendConfig) (*redis.Client, bool, error) {
	f.mu.Lock()
	inUse := f.instance != nil || f.building != nil
	matches := f.pool != nil && f.poolURL == cfg.ConnectionString
	f.mu.Unlock()

	if matches || !inUse {
		pool, err := f.ensurePool(cfg)
		return pool, false, err
	}

	pool, err := NewPool(cfg)
	return pool, true, err
}

// releasePool closes pool and forgets it if it is still the factory pool.
func (f *Factory) releasePool(pool *redis.Client) {
	f.mu.Lock()
	if f.pool == pool {
		f.pool, f.poolURL = nil, ""
	}
	f.mu.Unlock()
	pool.Close()
}

// GetSync returns a Checkpointer without blocking on I/O.
//
// When the durable backend is configured but not yet built, it returns an
// in-memory fallback and fallback=true. Data written to the fallback is NOT
// durable; callers that need persistence must use Get.
func (f *Factory) GetSync() (cp Checkpointer, fallback bool) {
	cfg, err := f.Config()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.instance != nil {
		return f.instance, false
	}

	if err == nil && cfg.Kind == KindMemory && f.building == nil {
		f.instance = NewMemoryStore()
		return f.instance, false
	}

	log.Printf("[Checkpoint] WARNING: durable checkpointer not initialized; returning in-memory fallback (state will not survive restarts)")
	if f.fallback == nil {
		f.fallback = NewMemoryStore()
	}
	return f.fallback, true
}

// Create builds a new, unshared Checkpointer from the environment config with
// override applied. The caller owns the result and must Close it.
func (f *Factory) Create(ctx context.Context, override BackendConfig) (Checkpointer, error) {
	base, err := f.Config()
	if err != nil && !errors.Is(err, ErrMissingConnectionString) {
		base = BackendConfig{Kind: KindMemory, PoolSize: DefaultPoolSize}
	}

	cfg := base.merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Kind == KindMemory {
		return NewMemoryStore(), nil
	}

	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}

	store := NewRedisStore(pool, true)
	if err := store.Setup(ctx); err != nil {
		pool.Close()
		return nil, &InitError{Stage: "setup", Err: err}
	}
	return store, nil
}

// Health reports whether the configured backend is usable. It never returns an
// error; failures are described in the report.
func (f *Factory) Health(ctx context.Context) HealthReport {
	cfg, err := f.Config()
	if err != nil {
		return HealthReport{Healthy: false, Kind: cfg.Kind, Error: err.Error()}
	}

	if cfg.Kind == KindMemory {
		return HealthReport{Healthy: true, Kind: KindMemory}
	}

	pool, temporary, err := f.probePool(cfg)
	if err != nil {
		return HealthReport{Healthy: false, Kind: KindDurable, Error: err.Error()}
	}
	if temporary {
		defer pool.Close()
	}

	probeCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	if err := pool.Ping(probeCtx).Err(); err != nil {
		return HealthReport{Healthy: false, Kind: KindDurable, Error: err.Error()}
	}

	return HealthReport{Healthy: true, Kind: KindDurable}
}

// Reset releases the pool and clears the shared instance. The next Get builds a
// fresh instance. Safe to call repeatedly.
func (f *Factory) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.instance = nil
	f.building = nil
	f.fallback = nil

	if f.pool == nil {
		return nil
	}
	pool := f.pool
	f.pool, f.poolURL = nil, ""
	if err := pool.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint pool: %w", err)
	}
	return nil
}

// Shutdown is Reset plus a lifecycle log line. Safe to call when already shut down.
func (f *Factory) Shutdown() error {
	if err := f.Reset(); err != nil {
		return err
	}
	log.Printf("[Checkpoint] Checkpointer shut down")
	return nil
}
