// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/claimsorted/internal/adapters/repository"
	"github.com/okian/claimsorted/internal/domain/calculator"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
	"github.com/okian/claimsorted/pkg/metrics"
)

const (
	defaultStoreTimeout = 5 * time.Second
)

// Optional store capabilities, checked at runtime.
type (
	migrator interface {
		Migrate(ctx context.Context) error
	}
	pinger interface {
		Ping(ctx context.Context) error
	}
	driverNamer interface {
		Driver() string
	}
)

// Service validates claims, computes payouts and persists them.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	calculator *calculator.Calculator
	metrics    *metrics.Manager

	// Configuration
	storeTimeout time.Duration
	listLimit    int
	migrate      bool

	// State
	started   bool
	startedAt time.Time
	saved     atomic.Int64
	rejected  atomic.Int64
	saveFails atomic.Int64
	listFails atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithCalculator replaces the default calculator.
func WithCalculator(c *calculator.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithMetrics sets the metrics manager, metrics.Default() otherwise.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithListLimit caps ListRecent.
func WithListLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.listLimit = limit
		}
	}
}

// WithMigrate makes Start create the schema when the store supports it.
func WithMigrate(enabled bool) Option {
	return func(s *Service) {
		s.migrate = enabled
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		calculator:   calculator.New(),
		metrics:      metrics.Default(),
		storeTimeout: defaultStoreTimeout,
		listLimit:    repository.DefaultListLimit,
		logger:       nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start prepares the store. Calling it again is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		return ErrNoStore
	}

	s.logger.Info(ctx, "starting payout service...")

	if m, ok := s.store.(migrator); ok && s.migrate {
		mctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		err := m.Migrate(mctx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
		s.logger.Info(ctx, "store schema ready")
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "payout service started",
		logger.String("driver", s.driverName()),
		logger.Int("listLimit", s.listLimit),
		logger.String("storeTimeout", s.storeTimeout.String()),
	)
	return nil
}

// Stop closes the store. Calling it again is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping payout service...")

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "payout service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Submit validates req, computes its payout and saves it. It returns the
// stored id, a *claim.ValidationError, or a *repository.PersistenceError.
func (s *Service) Submit(ctx context.Context, req claim.Request) (int64, error) {
	if !s.isStarted() {
		return 0, ErrNotStarted
	}
	if err := s.validate(ctx, req); err != nil {
		return 0, err
	}

	items, breakdown := s.calculator.Calculate(req)

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	id, err := s.store.Save(sctx, req, items, breakdown)
	_ = s.metrics.RecordStoreLatency(metrics.OpSave, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		s.saveFails.Add(1)
		_ = s.metrics.RecordStoreError(metrics.OpSave)
		s.logger.Error(ctx, "failed to save calculation",
			logger.Int("items", len(items)),
			logger.Error(err),
		)
		return 0, err
	}

	s.saved.Add(1)
	s.metrics.RecordCalculationSaved(len(items), breakdown.FinalPayout.InexactFloat64())
	s.logger.Info(ctx, "calculation saved",
		logger.Int64("id", id),
		logger.Int("items", len(items)),
		logger.Decimal("finalPayout", breakdown.FinalPayout),
	)
	return id, nil
}

// Quote validates req and returns its payout without saving it.
func (s *Service) Quote(ctx context.Context, req claim.Request) ([]claim.AdjustedItem, claim.Breakdown, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, claim.Breakdown{}, err
	}
	items, breakdown := s.calculator.Calculate(req)
	s.metrics.RecordCalculationQuoted()
	return items, breakdown, nil
}

func (s *Service) validate(ctx context.Context, req claim.Request) error {
	err := claim.Validate(req)
	if err == nil {
		return nil
	}
	s.rejected.Add(1)
	s.metrics.RecordRejectedRequest(claim.RejectReason(err))
	if s.logger != nil {
		s.logger.Debug(ctx, "claim rejected", logger.Error(err))
	}
	return err
}

// ListRecent returns the most recent calculations, newest first, capped at
// the configured list limit.
func (s *Service) ListRecent(ctx context.Context) ([]claim.Calculation, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}

	lctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	calcs, err := s.store.ListRecent(lctx, s.listLimit)
	_ = s.metrics.RecordStoreLatency(metrics.OpList, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		s.listFails.Add(1)
		_ = s.metrics.RecordStoreError(metrics.OpList)
		s.logger.Error(ctx, "failed to list calculations", logger.Error(err))
		return nil, err
	}

	s.logger.Debug(ctx, "listed calculations", logger.Int("count", len(calcs)))
	return calcs, nil
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	p, ok := s.store.(pinger)
	if !ok {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return p.Ping(pctx)
}

// Limits returns the category inner limits in use.
func (s *Service) Limits() map[claim.Category]string {
	limits := s.calculator.Limits()
	out := make(map[claim.Category]string, len(limits))
	for category, limit := range limits {
		out[category] = limit.String()
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"driver":            s.driverName(),
		"listLimit":         s.listLimit,
		"storeTimeoutMs":    s.storeTimeout.Milliseconds(),
		"calculationsSaved": s.saved.Load(),
		"rejectedRequests":  s.rejected.Load(),
		"saveErrors":        s.saveFails.Load(),
		"listErrors":        s.listFails.Load(),
		"innerLimits":       s.Limits(),
	}
	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		s.metrics.UpdateSystemMetrics()
	}
	return stats
}

func (s *Service) driverName() string {
	if d, ok := s.store.(driverNamer); ok {
		return d.Driver()
	}
	return "unknown"
}
