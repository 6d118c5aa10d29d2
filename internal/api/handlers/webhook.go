package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/api/httpx"
	"github.com/baharkarakas/deposit-relay/internal/config"
	"github.com/baharkarakas/deposit-relay/internal/services"
	"github.com/baharkarakas/deposit-relay/internal/telegram"
	"github.com/baharkarakas/deposit-relay/internal/worker"
)

const updateTimeout = 60 * time.Second

// Webhook is the inbound surface: Telegram updates come in here, get
// authorized against the operator chat id, and are processed off the request
// goroutine. The caller always receives a plain "OK" — failures are reported
// back into the operator channel, never to Telegram.
type Webhook struct {
	cfg      config.Config
	decision *services.Decision
	commands *services.Commands
	monitor  *services.Monitor
	notifier *services.Notifier
	stats    *services.RuntimeStats
	client   *telegram.Client
	wp       *worker.Pool
}

func NewWebhook(cfg config.Config, decision *services.Decision, commands *services.Commands, monitor *services.Monitor, notifier *services.Notifier, stats *services.RuntimeStats, client *telegram.Client, wp *worker.Pool) *Webhook {
	return &Webhook{
		cfg:      cfg,
		decision: decision,
		commands: commands,
		monitor:  monitor,
		notifier: notifier,
		stats:    stats,
		client:   client,
		wp:       wp,
	}
}

func (h *Webhook) Receive(w http.ResponseWriter, r *http.Request) {
	// acknowledge no matter what; Telegram does not consume error bodies
	defer func() { _, _ = w.Write([]byte("OK")) }()

	if h.cfg.WebhookSecret != "" &&
		r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != h.cfg.WebhookSecret {
		slog.Warn("webhook call with bad secret token")
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("undecodable webhook payload", "err", err)
		return
	}

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From.ID != h.cfg.AdminChatID {
			slog.Warn("unauthorized callback", "from", cb.From.ID)
			return
		}
		h.wp.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
			defer cancel()
			h.decision.HandleCallback(ctx, cb)
		})
	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		if msg.Chat.ID != h.cfg.AdminChatID {
			slog.Warn("unauthorized access attempt", "chat", msg.Chat.ID)
			return
		}
		text := msg.Text
		h.wp.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
			defer cancel()
			h.commands.Handle(ctx, text)
		})
	}
}

// SetWebhook registers the webhook with Telegram and starts monitoring.
func (h *Webhook) SetWebhook(w http.ResponseWriter, r *http.Request) {
	webhookURL := h.cfg.WebhookURL + "/webhook"
	slog.Info("setting webhook", "url", webhookURL)

	if err := h.client.SetWebhook(r.Context(), webhookURL, h.cfg.WebhookSecret); err != nil {
		h.stats.Error()
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if err := h.monitor.Start(r.Context()); err != nil {
		h.stats.Error()
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"monitoring_status": "Active",
		"webhook_url":       webhookURL,
		"admin_chat_id":     h.cfg.AdminChatID,
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}

// Health is the root snapshot used by uptime monitors.
func (h *Webhook) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot()
	db := "disconnected"
	if h.monitor.Connected() {
		db = "connected"
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    int(h.stats.Uptime().Seconds()),
		"stats": map[string]any{
			"total_deposits":    snap.TotalDeposits,
			"approved_deposits": snap.ApprovedDeposits,
			"rejected_deposits": snap.RejectedDeposits,
			"total_amount":      snap.TotalAmount,
			"errors":            snap.Errors,
			"queue_size":        h.notifier.QueueDepth(),
		},
		"services": map[string]string{
			"bot":      "online",
			"database": db,
			"webhook":  "active",
		},
	})
}

// Stats exposes the in-memory counters for external monitoring.
func (h *Webhook) Stats(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"data":              h.stats.Snapshot(),
		"uptime":            h.stats.Uptime().Milliseconds(),
		"queue_size":        h.notifier.QueueDepth(),
		"monitoring_active": h.monitor.Connected(),
	})
}

// CheckPending manually triggers the backfill reconciler.
func (h *Webhook) CheckPending(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.Backfill(r.Context()); err != nil {
		h.stats.Error()
		httpx.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Pending deposits check triggered",
		"queue_size": h.notifier.QueueDepth(),
	})
}
