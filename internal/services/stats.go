package services

import (
	"sync"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/metrics"
	"github.com/shopspring/decimal"
)

// RuntimeStats are the in-memory counters exposed on / and /api/stats.
// Prometheus gets the same signals through the metrics package.
type RuntimeStats struct {
	mu            sync.Mutex
	totalDeposits int64
	approved      int64
	rejected      int64
	errors        int64
	totalAmount   decimal.Decimal
	startTime     time.Time
}

func NewRuntimeStats() *RuntimeStats {
	return &RuntimeStats{startTime: time.Now()}
}

func (s *RuntimeStats) DepositSeen(amount decimal.Decimal) {
	s.mu.Lock()
	s.totalDeposits++
	s.totalAmount = s.totalAmount.Add(amount)
	s.mu.Unlock()
	metrics.DepositsSeen.Inc()
}

func (s *RuntimeStats) Approved() {
	s.mu.Lock()
	s.approved++
	s.mu.Unlock()
	metrics.DecisionsTotal.WithLabelValues("approved").Inc()
}

func (s *RuntimeStats) Rejected() {
	s.mu.Lock()
	s.rejected++
	s.mu.Unlock()
	metrics.DecisionsTotal.WithLabelValues("rejected").Inc()
}

func (s *RuntimeStats) Error() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
	metrics.RelayErrors.Inc()
}

type StatsSnapshot struct {
	TotalDeposits    int64  `json:"total_deposits"`
	ApprovedDeposits int64  `json:"approved_deposits"`
	RejectedDeposits int64  `json:"rejected_deposits"`
	TotalAmount      string `json:"total_amount"`
	Errors           int64  `json:"errors"`
	StartTime        string `json:"start_time"`
}

func (s *RuntimeStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		TotalDeposits:    s.totalDeposits,
		ApprovedDeposits: s.approved,
		RejectedDeposits: s.rejected,
		TotalAmount:      s.totalAmount.StringFixed(2),
		Errors:           s.errors,
		StartTime:        s.startTime.Format(time.RFC3339),
	}
}

func (s *RuntimeStats) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.startTime)
}

func (s *RuntimeStats) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

func (s *RuntimeStats) ErrorCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}
