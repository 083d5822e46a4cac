package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/brgy-records-api/internal/models"
	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
)

type beneficiaryStatsSource interface {
	Stats(ctx context.Context) (*models.RecordStats, error)
}

type scholarStatsSource interface {
	Stats(ctx context.Context, owner *string) (*models.RecordStats, error)
}

type pendingLeaveCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// DashboardService composes the landing page overview and caches it. Record
// writes drop the cached copy.
type DashboardService struct {
	beneficiaries beneficiaryStatsSource
	scholars      scholarStatsSource
	leaves        pendingLeaveCounter
	cache         *CacheService
	ttl           time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(beneficiaries beneficiaryStatsSource, scholars scholarStatsSource, leaves pendingLeaveCounter, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		beneficiaries: beneficiaries,
		scholars:      scholars,
		leaves:        leaves,
		cache:         cache,
		ttl:           ttl,
		logger:        logger,
		now:           time.Now,
	}
}

// Overview returns the aggregate figures and whether they came from cache.
// Students are not shown the barangay-wide overview.
func (s *DashboardService) Overview(ctx context.Context, caller models.Caller) (*models.DashboardOverview, bool, error) {
	if err := requireCaller(caller); err != nil {
		return nil, false, err
	}
	if caller.IsStudent() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "role may not view the dashboard")
	}

	return readThrough(ctx, s.cache, cacheKeyDashboard, s.ttl, s.compute)
}

func (s *DashboardService) compute(ctx context.Context) (*models.DashboardOverview, error) {
	beneficiaries, err := s.beneficiaries.Stats(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load beneficiary statistics")
	}
	scholars, err := s.scholars.Stats(ctx, nil)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load scholar statistics")
	}
	pending, err := s.leaves.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to count pending leave requests")
	}
	s.logger.Debug("dashboard overview recomputed",
		zap.Int("beneficiaries", beneficiaries.Total), zap.Int("scholars", scholars.Total), zap.Int("pending_leaves", pending))
	return &models.DashboardOverview{
		Beneficiaries: *beneficiaries,
		Scholars:      *scholars,
		PendingLeaves: pending,
		GeneratedAt:   s.now().UTC().Format(time.RFC3339),
	}, nil
}
