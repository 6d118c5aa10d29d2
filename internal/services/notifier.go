package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/metrics"
	"github.com/baharkarakas/deposit-relay/internal/models"
	repo "github.com/baharkarakas/deposit-relay/internal/repository"
)

const (
	notifyMaxRetries = 3
	notifyQueueSize  = 256
)

// NotificationTask wraps a pending deposit waiting for dispatch to the
// operator channel.
type NotificationTask struct {
	Txn     models.Transaction
	Retries int
}

// Notifier owns the in-memory notification queue. Tasks are dispatched
// strictly FIFO by a single drain goroutine; a failed dispatch re-enters at
// the tail with its retry counter bumped, and is dropped once the counter
// reaches notifyMaxRetries. A fixed delay between dispatches keeps the
// outbound channel under its rate limit.
type Notifier struct {
	tasks     chan NotificationTask
	channel   Channel
	users     repo.Users
	stats     *RuntimeStats
	adminChat int64
	loc       *time.Location
	delay     time.Duration
	started   atomic.Bool
}

func NewNotifier(channel Channel, users repo.Users, stats *RuntimeStats, adminChat int64, loc *time.Location) *Notifier {
	return &Notifier{
		tasks:     make(chan NotificationTask, notifyQueueSize),
		channel:   channel,
		users:     users,
		stats:     stats,
		adminChat: adminChat,
		loc:       loc,
		delay:     500 * time.Millisecond,
	}
}

// Enqueue adds a pending deposit to the queue. A full queue drops the task
// rather than blocking the feed callback.
func (n *Notifier) Enqueue(t models.Transaction) {
	n.enqueue(NotificationTask{Txn: t})
}

func (n *Notifier) enqueue(task NotificationTask) {
	select {
	case n.tasks <- task:
		metrics.NotifyQueueDepth.Set(float64(len(n.tasks)))
	default:
		slog.Error("notification queue full, dropping task", "tx", task.Txn.ID)
		metrics.NotifyDropped.Inc()
		n.stats.Error()
	}
}

func (n *Notifier) QueueDepth() int { return len(n.tasks) }

// Start launches the drain loop. Subsequent calls are no-ops; there is never
// more than one consumer.
func (n *Notifier) Start(ctx context.Context) {
	if !n.started.CompareAndSwap(false, true) {
		return
	}
	go n.drain(ctx)
}

func (n *Notifier) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-n.tasks:
			metrics.NotifyQueueDepth.Set(float64(len(n.tasks)))
			if err := n.dispatch(ctx, task.Txn); err != nil {
				slog.Error("notification dispatch failed", "tx", task.Txn.ID, "attempt", task.Retries+1, "err", err)
				n.stats.Error()
				if task.Retries < notifyMaxRetries {
					task.Retries++
					metrics.NotifyRetries.Inc()
					n.enqueue(task)
				} else {
					slog.Error("max retries reached, dropping notification", "tx", task.Txn.ID)
					metrics.NotifyDropped.Inc()
				}
			} else {
				slog.Info("notification sent", "tx", task.Txn.ID)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(n.delay):
			}
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, t models.Transaction) error {
	var user *models.User
	if u, err := n.users.GetByPhone(ctx, t.PlayerPhone); err == nil {
		user = &u
	} else {
		slog.Warn("could not fetch user info", "phone", t.PlayerPhone, "err", err)
	}
	text, keyboard := DepositCard(t, user, n.loc)
	_, err := n.channel.SendMessage(ctx, n.adminChat, text, keyboard)
	return err
}
