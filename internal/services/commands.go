package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/config"
)

// Commands handles the operator's slash commands from the webhook.
type Commands struct {
	cfg      config.Config
	query    *Query
	monitor  *Monitor
	notifier *Notifier
	stats    *RuntimeStats
	channel  Channel
	loc      *time.Location
}

func NewCommands(cfg config.Config, query *Query, monitor *Monitor, notifier *Notifier, stats *RuntimeStats, channel Channel, loc *time.Location) *Commands {
	return &Commands{cfg: cfg, query: query, monitor: monitor, notifier: notifier, stats: stats, channel: channel, loc: loc}
}

func (c *Commands) send(ctx context.Context, text string) {
	if _, err := c.channel.SendMessage(ctx, c.cfg.AdminChatID, text, nil); err != nil {
		slog.Error("command reply failed", "err", err)
		c.stats.Error()
	}
}

func (c *Commands) runtimeInfo() RuntimeInfo {
	return RuntimeInfo{
		Uptime:     c.stats.Uptime(),
		QueueDepth: c.notifier.QueueDepth(),
		Errors:     c.stats.ErrorCount(),
		Connected:  c.monitor.Connected(),
	}
}

// Handle dispatches one operator text command. Unknown commands are ignored.
func (c *Commands) Handle(ctx context.Context, text string) {
	text = strings.ToLower(strings.TrimSpace(text))
	slog.Info("admin command received", "text", text)

	switch {
	case text == "/start":
		c.start(ctx)
	case text == "/help":
		c.help(ctx)
	case text == "/stats" || text == "/statistics":
		c.dashboard(ctx)
	case text == "/restart":
		c.restart(ctx)
	case text == "/pending":
		c.pending(ctx)
	case text == "/health":
		c.health(ctx)
	case text == "/recent":
		c.recent(ctx)
	case text == "/config":
		c.config(ctx)
	case strings.HasPrefix(text, "/user "):
		c.user(ctx, strings.TrimSpace(strings.TrimPrefix(text, "/user ")))
	case strings.HasPrefix(text, "/tx "):
		c.tx(ctx, strings.TrimSpace(strings.TrimPrefix(text, "/tx ")))
	}
}

func (c *Commands) start(ctx context.Context) {
	conn := "Disconnected"
	if c.monitor.Connected() {
		conn = "Connected"
	}
	c.send(ctx, fmt.Sprintf("🤖 *ADMIN BOT ACTIVATED* 🤖\n\n"+
		"Welcome to the Deposit Management System!\n\n"+
		"🔧 *Available Commands:*\n"+
		"• /help - Show all commands\n"+
		"• /stats - System statistics\n"+
		"• /pending - Show pending deposits\n"+
		"• /restart - Restart monitoring\n"+
		"• /health - System health check\n\n"+
		"✅ *Bot Status:* Active and monitoring\n"+
		"📡 *Connection:* %s\n"+
		"⏰ *Started:* %s",
		conn, c.stats.StartedAt().In(c.loc).Format("1/2/2006, 3:04:05 PM")))
}

func (c *Commands) help(ctx context.Context) {
	c.send(ctx, "🤖 *ADMIN BOT HELP CENTER* 🤖\n\n"+
		"📊 *SYSTEM COMMANDS:*\n"+
		"• `/stats` - View system statistics\n"+
		"• `/health` - System health check\n"+
		"• `/restart` - Restart monitoring\n"+
		"• `/pending` - Show pending deposits\n"+
		"• `/recent` - Recent transactions\n\n"+
		"🔍 *SEARCH COMMANDS:*\n"+
		"• `/user [phone]` - User information\n"+
		"• `/tx [id]` - Transaction details\n\n"+
		"⚙️ *ADMIN COMMANDS:*\n"+
		"• `/config` - Bot configuration\n\n"+
		"🔄 *AUTOMATIC FEATURES:*\n"+
		"• Real-time deposit notifications\n"+
		"• Image proof viewing\n"+
		"• User statistics and history\n"+
		"• One-click approve/reject\n"+
		"• Transaction inspection\n"+
		"• Risk scoring\n\n"+
		"💡 *TIP:* Use inline buttons for faster processing!")
}

func (c *Commands) dashboard(ctx context.Context) {
	text, err := c.query.Dashboard(ctx, c.runtimeInfo())
	if err != nil {
		slog.Error("dashboard failed", "err", err)
		c.stats.Error()
		c.send(ctx, "❌ Error loading system statistics: "+err.Error())
		return
	}
	c.send(ctx, text)
}

func (c *Commands) restart(ctx context.Context) {
	if err := c.monitor.Start(ctx); err != nil {
		slog.Error("monitor restart failed", "err", err)
		c.stats.Error()
		c.send(ctx, "❌ Error restarting monitoring: "+err.Error())
		return
	}
	c.send(ctx, "🔄 *SYSTEM RESTARTED*\n\n✅ Monitoring restarted successfully!\n📡 All systems operational.")
}

func (c *Commands) pending(ctx context.Context) {
	if err := c.monitor.Backfill(ctx); err != nil {
		slog.Error("pending check failed", "err", err)
		c.stats.Error()
		c.send(ctx, "❌ Error fetching pending deposits: "+err.Error())
		return
	}
	depth := c.notifier.QueueDepth()
	if depth == 0 {
		c.send(ctx, "✅ *NO PENDING DEPOSITS*\n\nAll deposits have been processed!")
		return
	}
	c.send(ctx, fmt.Sprintf("📋 *FOUND %d PENDING DEPOSITS*\n\nSending notifications...", depth))
}

func (c *Commands) health(ctx context.Context) {
	db := "❌ Disconnected"
	if c.monitor.Connected() {
		db = "✅ Connected"
	}
	errs := c.stats.ErrorCount()
	verdict := "💚 All systems healthy!"
	if errs > 0 {
		verdict = "⚠️ Some issues detected"
	}
	c.send(ctx, fmt.Sprintf("🏥 *SYSTEM HEALTH CHECK* 🏥\n\n"+
		"🤖 *Bot Status:* ✅ Online\n"+
		"🗄️ *Database:* %s\n"+
		"📡 *Webhook:* ✅ Active\n"+
		"📊 *Queue Size:* %d\n"+
		"⏰ *Uptime:* %d hours\n"+
		"❌ *Total Errors:* %d\n"+
		"🕐 *Last Check:* %s\n\n%s",
		db, c.notifier.QueueDepth(), int(c.stats.Uptime().Hours()), errs,
		time.Now().In(c.loc).Format("1/2/2006, 3:04:05 PM"), verdict))
}

func (c *Commands) recent(ctx context.Context) {
	text, err := c.query.RecentDeposits(ctx)
	if err != nil {
		slog.Error("recent failed", "err", err)
		c.stats.Error()
		return
	}
	c.send(ctx, text)
}

func (c *Commands) user(ctx context.Context, phone string) {
	text, err := c.query.UserStats(ctx, phone)
	if err != nil {
		slog.Error("user lookup failed", "phone", phone, "err", err)
		c.stats.Error()
		c.send(ctx, "❌ User not found or error: "+err.Error())
		return
	}
	c.send(ctx, text)
}

func (c *Commands) tx(ctx context.Context, id string) {
	text, err := c.query.Inspect(ctx, id)
	if err != nil {
		slog.Error("tx lookup failed", "tx", id, "err", err)
		c.stats.Error()
		c.send(ctx, "❌ Transaction not found or error: "+err.Error())
		return
	}
	c.send(ctx, text)
}

func (c *Commands) config(ctx context.Context) {
	token := c.cfg.BotToken
	if len(token) > 10 {
		token = token[:10] + "..."
	}
	monitoring := "Inactive"
	if c.monitor.Connected() {
		monitoring = "Active"
	}
	c.send(ctx, fmt.Sprintf("⚙️ *BOT CONFIGURATION* ⚙️\n\n"+
		"🤖 *Bot Token:* %s\n"+
		"👤 *Admin Chat ID:* %d\n"+
		"🌐 *Webhook URL:* %s/webhook\n"+
		"🚀 *Port:* %s\n"+
		"📊 *Monitoring:* %s\n\n"+
		"⚡ *Performance Settings:*\n"+
		"• Queue Processing: Enabled\n"+
		"• Retry Attempts: 3\n"+
		"• Notification Delay: 500ms\n"+
		"• Auto Backfill: Enabled",
		token, c.cfg.AdminChatID, c.cfg.WebhookURL, c.cfg.HTTPPort, monitoring))
}
