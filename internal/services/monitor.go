package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/baharkarakas/deposit-relay/internal/models"
	repo "github.com/baharkarakas/deposit-relay/internal/repository"
)

const backfillLimit = 100

// Monitor subscribes to the store's insert feed and pushes pending deposits
// into the Notifier. Start is restartable: an active subscription is torn
// down before a new one is installed, and the new one lives until Stop or
// the next Start regardless of the caller's context lifetime.
type Monitor struct {
	feed     Feed
	txns     repo.Transactions
	notifier *Notifier
	stats    *RuntimeStats

	mu        sync.Mutex
	cancel    context.CancelFunc
	gen       uint64
	connected atomic.Bool
}

func NewMonitor(feed Feed, txns repo.Transactions, notifier *Notifier, stats *RuntimeStats) *Monitor {
	return &Monitor{feed: feed, txns: txns, notifier: notifier, stats: stats}
}

func (m *Monitor) Connected() bool { return m.connected.Load() }

// Start backfills pending deposits and installs the live subscription.
// A failure to establish the subscription is returned to the caller and does
// not crash the process; the operator retries with /restart.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		slog.Info("tore down existing deposit subscription")
	}
	// /restart and /set-webhook arrive on request-scoped contexts; the
	// subscription must survive the request, so it is detached here and ends
	// only through Stop or the next Start.
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if err := m.Backfill(ctx); err != nil {
		slog.Error("backfill failed", "err", err)
		m.stats.Error()
	}

	conn, err := m.feed.Listen(subCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to deposit feed: %w", err)
	}

	m.connected.Store(true)
	slog.Info("deposit monitoring started")
	go m.listen(subCtx, conn, gen)
	return nil
}

func (m *Monitor) listen(ctx context.Context, conn FeedConn, gen uint64) {
	defer func() {
		// a replaced subscription must not clobber its successor's state
		m.mu.Lock()
		if gen == m.gen {
			m.connected.Store(false)
		}
		m.mu.Unlock()
		conn.Release()
	}()
	for {
		payload, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("deposit subscription lost", "err", err)
			m.stats.Error()
			return
		}

		var t models.Transaction
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			slog.Error("bad feed payload", "err", err)
			m.stats.Error()
			continue
		}
		if !t.IsPendingDeposit() {
			continue
		}
		slog.Info("new deposit detected", "tx", t.ID, "amount", t.Amount.StringFixed(2))
		m.stats.DepositSeen(t.Amount)
		m.notifier.Enqueue(t)
	}
}

// Backfill re-surfaces pending deposits the feed may have missed, newest
// first. Already-decided rows are never re-enqueued; duplicates across runs
// cost one redundant card at worst, since the decision path is idempotent.
func (m *Monitor) Backfill(ctx context.Context) error {
	deposits, err := m.txns.ListPendingDeposits(ctx, backfillLimit)
	if err != nil {
		return err
	}
	slog.Info("backfilling pending deposits", "count", len(deposits))
	for _, t := range deposits {
		m.notifier.Enqueue(t)
	}
	return nil
}

// Stop tears down the live subscription.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
