package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/api"
	"github.com/baharkarakas/deposit-relay/internal/api/handlers"
	"github.com/baharkarakas/deposit-relay/internal/config"
	"github.com/baharkarakas/deposit-relay/internal/db"
	"github.com/baharkarakas/deposit-relay/internal/logger"
	"github.com/baharkarakas/deposit-relay/internal/metrics"
	"github.com/baharkarakas/deposit-relay/internal/repository/postgres"
	"github.com/baharkarakas/deposit-relay/internal/services"
	"github.com/baharkarakas/deposit-relay/internal/telegram"
	"github.com/baharkarakas/deposit-relay/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		log.Warn("bad display timezone, falling back to UTC", "tz", cfg.DisplayTimezone)
		loc = time.UTC
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(4)
	defer wp.Stop()

	client := telegram.NewClient(cfg.TelegramAPIURL, cfg.BotToken)
	stats := services.NewRuntimeStats()
	notifier := services.NewNotifier(client, repos.Users, stats, cfg.AdminChatID, loc)
	monitor := services.NewMonitor(services.NewDepositFeed(pool), repos.Transactions, notifier, stats)
	query := services.NewQuery(repos.Transactions, repos.Users, loc)
	decision := services.NewDecision(repos.Transactions, repos.Users, query, client, stats, cfg.AdminChatID, loc)
	commands := services.NewCommands(cfg, query, monitor, notifier, stats, client, loc)
	reporter := services.NewReporter(query, notifier, monitor, stats, client, cfg.AdminChatID, loc)

	notifier.Start(ctx)
	reporter.Run(ctx)

	wh := handlers.NewWebhook(cfg, decision, commands, monitor, notifier, stats, client, wp)
	r := api.NewRouter(cfg, wh)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	notifyAdmin(ctx, client, cfg, fmt.Sprintf("🚀 *BOT STARTED SUCCESSFULLY* 🚀\n\n"+
		"✅ Server is running on port %s\n"+
		"🕐 Started at: %s\n\n"+
		"🔄 Initializing deposit monitoring...\n"+
		"Type /help for available commands.",
		cfg.HTTPPort, time.Now().In(loc).Format("1/2/2006, 3:04:05 PM")))

	if cfg.Env == "prod" {
		if err := monitor.Start(ctx); err != nil {
			log.Error("failed to start monitoring", "err", err)
		}
	}

	<-ctx.Done()
	log.Info("shutting down...")

	monitor.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	notifyAdmin(shutdownCtx, client, cfg, fmt.Sprintf("⚠️ *BOT SHUTTING DOWN*\n\n"+
		"🕐 Shutdown time: %s", time.Now().In(loc).Format("1/2/2006, 3:04:05 PM")))
	_ = srv.Shutdown(shutdownCtx)
}

// notifyAdmin is best effort; startup/shutdown notices are not worth failing over.
func notifyAdmin(ctx context.Context, client *telegram.Client, cfg config.Config, text string) {
	if cfg.AdminChatID == 0 {
		return
	}
	if _, err := client.SendMessage(ctx, cfg.AdminChatID, text, nil); err != nil {
		slog.Warn("could not notify admin", "err", err)
	}
}
