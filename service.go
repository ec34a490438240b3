package gatekit

import (
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Service answers permission queries and performs administrative mutations.
// It is the only legitimate writer of the RBAC tables: every mutation goes
// through the Store and then invalidates the decision cache for the affected
// users before returning.
//
// Error Handling:
// Denial is never an error. Queries return (false, nil) for a denied or
// unregistered permission and (false, ErrStorageUnavailable) when the decision
// could not be determined. Mutations return ErrNotFound, ErrAlreadyExists,
// ErrInvalidName, ErrInvalidPermission or ErrStorageUnavailable.
//
// Example error handling:
//
//	ok, err := service.UserHasPermission(ctx, userID, "notes.edit")
//	if err != nil {
//	    // could not determine; ok is false
//	    if gatekit.IsStorageUnavailable(err) {
//	        return "try again later"
//	    }
//	}
//	if !ok {
//	    return "not permitted"
//	}
type Service struct {
	store   Store
	db      *dbkit.DBKit
	cache   DecisionCache
	catalog *expirable.LRU[string, *Permission]
	logger  logrus.FieldLogger
	metrics *Metrics

	superAdmins  map[int64]struct{}
	queryTimeout time.Duration
	decisionTTL  time.Duration
	requireActor bool
	retry        RetryConfig

	flight  singleflight.Group
	monitor *mutationMonitor
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache sets the decision cache. Defaults to a MemoryCache of 10000 entries.
func WithCache(cache DecisionCache) Option {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithSuperAdmins sets the external ids that are granted every permission.
func WithSuperAdmins(ids ...int64) Option {
	return func(s *Service) {
		s.superAdmins = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			s.superAdmins[id] = struct{}{}
		}
	}
}

// WithQueryTimeout bounds each storage call made by a query.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithDecisionTTL sets how long a decision may be served from cache.
// Zero disables caching of decisions.
func WithDecisionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.decisionTTL = d
		}
	}
}

// WithCatalogCache sizes the permission-name lookup cache.
func WithCatalogCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size > 0 {
			s.catalog = expirable.NewLRU[string, *Permission](size, nil, ttl)
		}
	}
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDatabase attaches the dbkit handle used for health reporting.
func WithDatabase(db *dbkit.DBKit) Option {
	return func(s *Service) {
		s.db = db
	}
}

// WithRequireActor makes mutations fail with ErrNoActorID when the context
// carries no actor id.
func WithRequireActor(require bool) Option {
	return func(s *Service) {
		s.requireActor = require
	}
}

// WithRetry sets how transient storage failures of mutations are retried.
func WithRetry(cfg RetryConfig) Option {
	return func(s *Service) {
		if cfg.MaxAttempts > 0 {
			s.retry = cfg
		}
	}
}

// NewService creates a new gatekit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := gatekit.NewService(gatekit.NewStore(db.Bun()),
//	    gatekit.WithSuperAdmins(1001),
//	    gatekit.WithDatabase(db),
//	)
func NewService(store Store, opts ...Option) *Service {
	defaults := DefaultConfig()
	s := &Service{
		store:        store,
		cache:        NewMemoryCache(defaults.Cache.Size, defaults.Cache.TTL),
		catalog:      expirable.NewLRU[string, *Permission](1024, nil, defaults.Cache.CatalogTTL),
		logger:       logrus.StandardLogger(),
		superAdmins:  map[int64]struct{}{},
		queryTimeout: defaults.QueryTimeout,
		decisionTTL:  defaults.Cache.TTL,
		retry:        defaults.Retry,
		monitor:      newMutationMonitor(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Store returns the underlying store. Writing through it directly skips
// cache invalidation.
func (s *Service) Store() Store {
	return s.store
}

// Cache returns the decision cache.
func (s *Service) Cache() DecisionCache {
	return s.cache
}

// IsSuperAdmin reports whether userID is configured as a super-admin.
func (s *Service) IsSuperAdmin(userID int64) bool {
	_, ok := s.superAdmins[userID]
	return ok
}

// SuperAdmins returns the configured super-admin ids.
func (s *Service) SuperAdmins() []int64 {
	ids := make([]int64, 0, len(s.superAdmins))
	for id := range s.superAdmins {
		ids = append(ids, id)
	}
	return ids
}
