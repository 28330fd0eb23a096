package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/common"
)

// Store reads and writes job records.
type Store interface {
	// Get returns common.ErrNotFound for a missing job and common.ErrCorrupted for an
	// unreadable record.
	Get(ctx context.Context, id string) (Job, error)
	// Set overwrites the whole record for job.ID.
	Set(ctx context.Context, job Job) error
	Exists(ctx context.Context, id string) (bool, error)
	// Available is false when the store could not be configured or reached at startup.
	Available() bool
	Close() error
}

// KV is the raw key-value backend behind a KVStore. Get returns an error wrapping
// common.ErrNotFound for missing or expired keys. A zero ttl means no expiry.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// KVStore implements Store on top of any KV backend. Keys are prefix+id and values are the
// JSON document of the job.
type KVStore struct {
	kv     KV
	name   string
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

type Option func(*KVStore)

func WithKeyPrefix(p string) Option {
	return func(s *KVStore) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithTTL expires records d after their last write.
func WithTTL(d time.Duration) Option {
	return func(s *KVStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *KVStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithName labels the backend in logs.
func WithName(n string) Option {
	return func(s *KVStore) { s.name = n }
}

func NewKVStore(kv KV, opts ...Option) *KVStore {
	s := &KVStore{
		kv:     kv,
		name:   "kv",
		prefix: constants.JobKeyPrefix,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key returns the storage key for a job id.
func (s *KVStore) Key(id string) string { return s.prefix + id }

func (s *KVStore) Get(ctx context.Context, id string) (Job, error) {
	if strings.TrimSpace(id) == "" {
		return Job{}, common.ErrNotFound
	}
	raw, err := s.kv.Get(ctx, s.Key(id))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Job{}, common.ErrNotFound
		}
		s.log.Error("jobs.get.failed", "backend", s.name, "job_id", id, "error", err)
		return Job{}, unavailable(err)
	}
	job, err := DecodeJob(raw)
	if err != nil {
		s.log.Error("jobs.get.corrupted", "backend", s.name, "job_id", id, "bytes", len(raw), "error", err)
		return Job{}, err
	}
	if job.ID == "" {
		job.ID = id
	}
	return job, nil
}

func (s *KVStore) Set(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return fmt.Errorf("%w: job id is required", common.ErrInvalidInput)
	}
	b, err := json.Marshal(job)
	if err != nil {
		return common.WrapError(err, "encode job "+job.ID)
	}
	if err := s.kv.Set(ctx, s.Key(job.ID), b, s.ttl); err != nil {
		s.log.Error("jobs.set.failed", "backend", s.name, "job_id", job.ID, "error", err)
		return unavailable(err)
	}
	s.log.Debug("jobs.set", "backend", s.name, "job_id", job.ID, "status", job.Status, "progress", job.Progress)
	return nil
}

func (s *KVStore) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := s.kv.Exists(ctx, s.Key(id))
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

func (s *KVStore) Available() bool { return true }

func (s *KVStore) Close() error { return s.kv.Close() }

// Unavailable is a Store whose every call fails with common.ErrUnavailable. It stands in
// for a backend that could not be configured so the process keeps serving other routes.
type Unavailable struct {
	Reason error
}

func (u Unavailable) err() error {
	if u.Reason == nil {
		return common.ErrUnavailable
	}
	return fmt.Errorf("%w: %w", common.ErrUnavailable, u.Reason)
}

func (u Unavailable) Get(context.Context, string) (Job, error)     { return Job{}, u.err() }
func (u Unavailable) Set(context.Context, Job) error               { return u.err() }
func (u Unavailable) Exists(context.Context, string) (bool, error) { return false, u.err() }
func (u Unavailable) Available() bool                              { return false }
func (u Unavailable) Close() error                                 { return nil }

// Open builds the backend selected by cfg.Backend and checks connectivity. Configuration or
// connection problems are logged and yield an Unavailable store; Open never fails.
func Open(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("backend", cfg.Backend)

	if err := cfg.Validate(); err != nil {
		log.Error("jobs.store.config_error", "error", err)
		return Unavailable{Reason: err}
	}

	start := time.Now()
	kv, err := openKV(ctx, cfg)
	if err != nil {
		log.Error("jobs.store.connect_failed", "error", err)
		return Unavailable{Reason: err}
	}
	log.Info("jobs.store.ready", "prefix", cfg.KeyPrefix, "ttl", cfg.TTL.String(),
		"elapsed_ms", time.Since(start).Milliseconds())

	return NewKVStore(kv,
		WithName(cfg.Backend),
		WithKeyPrefix(cfg.KeyPrefix),
		WithTTL(cfg.TTL),
		WithLogger(logger),
	)
}

func openKV(ctx context.Context, cfg common.StoreConfig) (KV, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout(cfg.DialTimeout))
	defer cancel()

	switch cfg.Backend {
	case "redis":
		return NewRedisKV(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "sqlite":
		return NewSQLiteKV(ctx, cfg.SQLitePath)
	case "postgres":
		return NewPostgresKV(ctx, cfg.PostgresDSN)
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, common.ConfigurationError(fmt.Sprintf("unknown JOB_STORE %q", cfg.Backend), nil)
	}
}

func dialTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// unavailable marks a backend failure after startup (dropped connection, timeout) as
// common.ErrUnavailable.
func unavailable(err error) error {
	if errors.Is(err, common.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", common.ErrNotFound, key)
}
