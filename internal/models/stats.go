package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordStats summarises a record family.
type RecordStats struct {
	Total            int             `json:"total"`
	ByStatus         map[string]int  `json:"by_status"`
	ActiveGrantTotal decimal.Decimal `json:"active_grant_total"`
	MissingDetail    int             `json:"missing_detail"`
}

// StatusCount is one row of a GROUP BY status query.
type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// DashboardOverview aggregates the landing page figures.
type DashboardOverview struct {
	Beneficiaries RecordStats `json:"beneficiaries"`
	Scholars      RecordStats `json:"scholars"`
	PendingLeaves int         `json:"pending_leaves"`
	GeneratedAt   string      `json:"generated_at"`
}

// SystemMetrics is a lightweight snapshot of process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	RecordWrites             uint64    `json:"record_writes"`
	NotificationsFailed      uint64    `json:"notifications_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
