package services

import (
	"context"
	"log/slog"
	"time"
)

// Reporter posts periodic summaries to the operator channel: a system report
// every six hours and a daily summary at 09:00 display time.
type Reporter struct {
	query     *Query
	notifier  *Notifier
	monitor   *Monitor
	stats     *RuntimeStats
	channel   Channel
	adminChat int64
	loc       *time.Location
}

func NewReporter(query *Query, notifier *Notifier, monitor *Monitor, stats *RuntimeStats, channel Channel, adminChat int64, loc *time.Location) *Reporter {
	return &Reporter{query: query, notifier: notifier, monitor: monitor, stats: stats, channel: channel, adminChat: adminChat, loc: loc}
}

func (r *Reporter) Run(ctx context.Context) {
	go r.systemReports(ctx)
	go r.dailySummaries(ctx)
}

func (r *Reporter) systemReports(ctx context.Context) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt := RuntimeInfo{
				Uptime:     r.stats.Uptime(),
				QueueDepth: r.notifier.QueueDepth(),
				Errors:     r.stats.ErrorCount(),
				Connected:  r.monitor.Connected(),
			}
			text, err := r.query.Dashboard(ctx, rt)
			if err != nil {
				slog.Error("scheduled report failed", "err", err)
				r.stats.Error()
				continue
			}
			if _, err := r.channel.SendMessage(ctx, r.adminChat, "🔄 *SCHEDULED SYSTEM REPORT*\n\n"+text, nil); err != nil {
				slog.Error("scheduled report send failed", "err", err)
				r.stats.Error()
			}
		}
	}
}

func (r *Reporter) dailySummaries(ctx context.Context) {
	for {
		next := r.nextNineAM(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			text, err := r.query.DailySummary(ctx, r.stats.ErrorCount())
			if err != nil {
				slog.Error("daily summary failed", "err", err)
				r.stats.Error()
				continue
			}
			if _, err := r.channel.SendMessage(ctx, r.adminChat, text+"\n\nHave a great day! 🌅", nil); err != nil {
				slog.Error("daily summary send failed", "err", err)
				r.stats.Error()
			}
		}
	}
}

func (r *Reporter) nextNineAM(now time.Time) time.Time {
	now = now.In(r.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, r.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
