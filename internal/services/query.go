package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/models"
	repo "github.com/baharkarakas/deposit-relay/internal/repository"
	"github.com/shopspring/decimal"
)

// Query renders the read-only operator views. No method here mutates the
// store; errors propagate to the caller, which turns them into error replies.
type Query struct {
	txns  repo.Transactions
	users repo.Users
	loc   *time.Location
}

func NewQuery(txns repo.Transactions, users repo.Users, loc *time.Location) *Query {
	return &Query{txns: txns, users: users, loc: loc}
}

func pct(part, total int) string {
	if total == 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", float64(part)/float64(total)*100)
}

// UserStats builds the user profile and risk-assessment view for a phone.
func (q *Query) UserStats(ctx context.Context, phone string) (string, error) {
	user, err := q.users.GetByPhone(ctx, phone)
	if err != nil {
		return "", err
	}
	txns, err := q.txns.ListByPhone(ctx, phone, 500, 0)
	if err != nil {
		return "", err
	}

	var deposits, withdrawals, approved, pending, rejected []models.Transaction
	for _, t := range txns {
		switch t.Type {
		case models.TxnDeposit:
			deposits = append(deposits, t)
			switch t.Status {
			case models.TxnApproved:
				approved = append(approved, t)
			case models.TxnPending:
				pending = append(pending, t)
			case models.TxnRejected:
				rejected = append(rejected, t)
			}
		case models.TxnWithdrawal:
			withdrawals = append(withdrawals, t)
		}
	}

	totalDeposited := decimal.Zero
	for _, t := range approved {
		totalDeposited = totalDeposited.Add(t.Amount)
	}
	totalWithdrawn := decimal.Zero
	for _, t := range withdrawals {
		if t.Status == models.TxnApproved {
			totalWithdrawn = totalWithdrawn.Add(t.Amount.Abs())
		}
	}
	avgDeposit := decimal.Zero
	if len(approved) > 0 {
		avgDeposit = totalDeposited.Div(decimal.NewFromInt(int64(len(approved))))
	}
	recentCount := 0
	cutoff := time.Now().AddDate(0, 0, -30)
	for _, t := range txns {
		if t.CreatedAt.After(cutoff) {
			recentCount++
		}
	}

	var b strings.Builder
	b.WriteString("📊 *USER PROFILE & STATISTICS* 📊\n\n")
	username := user.Username
	if username == "" {
		username = "N/A"
	}
	fmt.Fprintf(&b, "👤 *Username:* %s\n", username)
	fmt.Fprintf(&b, "📱 *Phone:* %s\n", phone)
	fmt.Fprintf(&b, "💰 *Current Balance:* %s ETB\n", user.Balance.StringFixed(2))
	fmt.Fprintf(&b, "📅 *Member Since:* %s\n", user.CreatedAt.In(q.loc).Format("1/2/2006"))
	fmt.Fprintf(&b, "🏃 *Activity Score:* %d/month\n\n", recentCount)
	b.WriteString("💸 *TRANSACTION SUMMARY:*\n")
	fmt.Fprintf(&b, "• Total Transactions: %d\n", len(txns))
	fmt.Fprintf(&b, "• Deposits: %d (✅%d ⏳%d ❌%d)\n", len(deposits), len(approved), len(pending), len(rejected))
	fmt.Fprintf(&b, "• Withdrawals: %d\n", len(withdrawals))
	fmt.Fprintf(&b, "• Total Deposited: %s ETB\n", totalDeposited.StringFixed(2))
	fmt.Fprintf(&b, "• Total Withdrawn: %s ETB\n", totalWithdrawn.StringFixed(2))
	fmt.Fprintf(&b, "• Average Deposit: %s ETB\n", avgDeposit.StringFixed(2))
	fmt.Fprintf(&b, "• Net Position: %s ETB\n\n", totalDeposited.Sub(totalWithdrawn).StringFixed(2))
	b.WriteString("📈 *RISK ASSESSMENT:*\n")
	fmt.Fprintf(&b, "• Rejection Rate: %s%%\n", pct(len(rejected), len(deposits)))
	fmt.Fprintf(&b, "• Success Rate: %s%%", pct(len(approved), len(deposits)))
	return b.String(), nil
}

// History renders the last 15 transactions for a phone.
func (q *Query) History(ctx context.Context, phone string) (string, error) {
	txns, err := q.txns.ListByPhone(ctx, phone, 15, 0)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📝 *TRANSACTION HISTORY* 📝\n\n")
	fmt.Fprintf(&b, "📱 *Phone:* %s\n", phone)
	fmt.Fprintf(&b, "🔢 *Showing:* Last %d transactions\n\n", len(txns))

	if len(txns) == 0 {
		b.WriteString("❌ No transactions found for this user.")
		return b.String(), nil
	}

	approved, pending, rejected := 0, 0, 0
	for i, t := range txns {
		typeEmoji := "💰"
		amount := "+" + t.Amount.StringFixed(2)
		if t.Type == models.TxnWithdrawal {
			typeEmoji = "💸"
			amount = t.Amount.StringFixed(2)
		}
		switch t.Status {
		case models.TxnApproved:
			approved++
		case models.TxnPending:
			pending++
		case models.TxnRejected:
			rejected++
		}
		fmt.Fprintf(&b, "%s *%s* %s\n", typeEmoji, strings.ToUpper(string(t.Type)), statusEmoji(t.Status))
		fmt.Fprintf(&b, "💵 %s ETB\n", amount)
		fmt.Fprintf(&b, "📅 %s\n", t.CreatedAt.In(q.loc).Format("1/2/2006, 3:04:05 PM"))
		fmt.Fprintf(&b, "🆔 ID: `%s`\n", t.ID)
		if t.Description != "" {
			desc := t.Description
			if len(desc) > 40 {
				desc = desc[:40] + "..."
			}
			fmt.Fprintf(&b, "📝 %s\n", desc)
		}
		if i < len(txns)-1 {
			b.WriteString("➖➖➖➖➖➖➖➖➖➖\n")
		}
	}
	fmt.Fprintf(&b, "\n📊 *Quick Stats:* %d approved, %d pending, %d rejected", approved, pending, rejected)
	return b.String(), nil
}

// RuntimeInfo carries the process-local state the dashboard reports next to
// the 24h store aggregates.
type RuntimeInfo struct {
	Uptime     time.Duration
	QueueDepth int
	Errors     int64
	Connected  bool
}

// Dashboard renders the 24-hour system view.
func (q *Query) Dashboard(ctx context.Context, rt RuntimeInfo) (string, error) {
	txns, err := q.txns.ListSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return "", err
	}

	var deposits, withdrawals, pending, approved, rejected []models.Transaction
	for _, t := range txns {
		switch t.Type {
		case models.TxnDeposit:
			deposits = append(deposits, t)
			switch t.Status {
			case models.TxnPending:
				pending = append(pending, t)
			case models.TxnApproved:
				approved = append(approved, t)
			case models.TxnRejected:
				rejected = append(rejected, t)
			}
		case models.TxnWithdrawal:
			withdrawals = append(withdrawals, t)
		}
	}
	depositAmount := decimal.Zero
	for _, t := range approved {
		depositAmount = depositAmount.Add(t.Amount)
	}
	withdrawalAmount := decimal.Zero
	for _, t := range withdrawals {
		if t.Status == models.TxnApproved {
			withdrawalAmount = withdrawalAmount.Add(t.Amount.Abs())
		}
	}

	connState := "Disconnected"
	if rt.Connected {
		connState = "Connected"
	}

	var b strings.Builder
	b.WriteString("📊 *SYSTEM DASHBOARD (24H)* 📊\n\n")
	fmt.Fprintf(&b, "⏰ *Uptime:* %dh %dm\n", int(rt.Uptime.Hours()), int(rt.Uptime.Minutes())%60)
	fmt.Fprintf(&b, "🔄 *Queue:* %d pending\n", rt.QueueDepth)
	fmt.Fprintf(&b, "❌ *Errors:* %d\n", rt.Errors)
	fmt.Fprintf(&b, "📡 *Status:* %s\n\n", connState)
	b.WriteString("💰 *DEPOSITS (24H):*\n")
	fmt.Fprintf(&b, "• Total Requests: %d\n", len(deposits))
	fmt.Fprintf(&b, "• ⏳ Pending: %d\n", len(pending))
	fmt.Fprintf(&b, "• ✅ Approved: %d (%s ETB)\n", len(approved), depositAmount.StringFixed(2))
	fmt.Fprintf(&b, "• ❌ Rejected: %d\n", len(rejected))
	fmt.Fprintf(&b, "• 📈 Success Rate: %s%%\n\n", pct(len(approved), len(deposits)))
	b.WriteString("💸 *WITHDRAWALS (24H):*\n")
	fmt.Fprintf(&b, "• Total: %d\n", len(withdrawals))
	fmt.Fprintf(&b, "• Amount: %s ETB\n\n", withdrawalAmount.StringFixed(2))
	fmt.Fprintf(&b, "📈 *NET FLOW:* %s ETB", depositAmount.Sub(withdrawalAmount).StringFixed(2))
	return b.String(), nil
}

// Inspect renders a single transaction with the owner's recent activity.
func (q *Query) Inspect(ctx context.Context, id string) (string, error) {
	t, err := q.txns.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	related, err := q.txns.ListByPhone(ctx, t.PlayerPhone, 5, 0)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("🔍 *TRANSACTION INSPECTION* 🔍\n\n")
	fmt.Fprintf(&b, "🆔 *ID:* `%s`\n", t.ID)
	fmt.Fprintf(&b, "📱 *Phone:* %s\n", t.PlayerPhone)
	fmt.Fprintf(&b, "💵 *Amount:* %s ETB\n", t.Amount.StringFixed(2))
	fmt.Fprintf(&b, "📅 *Created:* %s\n", t.CreatedAt.In(q.loc).Format("1/2/2006, 3:04:05 PM"))
	fmt.Fprintf(&b, "⏱️ *Status:* %s\n", strings.ToUpper(string(t.Status)))
	desc := t.Description
	if desc == "" {
		desc = "None"
	}
	fmt.Fprintf(&b, "📝 *Description:* %s\n\n", desc)
	b.WriteString("📊 *RECENT ACTIVITY:*\n")
	for i, r := range related {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "%d. %s %s ETB (%s)\n", i+1, r.Type, r.Amount.StringFixed(2), r.Status)
	}
	return b.String(), nil
}

// RiskScore is a heuristic fraud-likelihood estimate for a pending deposit:
// the user's historical rejection rate, how the requested amount compares to
// their average approved deposit, and account age all feed a 0-100 score.
func (q *Query) RiskScore(ctx context.Context, id string) (string, error) {
	t, err := q.txns.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	history, err := q.txns.ListByPhone(ctx, t.PlayerPhone, 500, 0)
	if err != nil {
		return "", err
	}

	var deposits, approved, rejected int
	totalApproved := decimal.Zero
	for _, h := range history {
		if h.Type != models.TxnDeposit {
			continue
		}
		deposits++
		switch h.Status {
		case models.TxnApproved:
			approved++
			totalApproved = totalApproved.Add(h.Amount)
		case models.TxnRejected:
			rejected++
		}
	}

	score := 0.0
	var factors []string
	if deposits > 0 {
		rejectionRate := float64(rejected) / float64(deposits)
		score += rejectionRate * 50
		if rejected > 0 {
			factors = append(factors, fmt.Sprintf("• %d of %d deposits previously rejected", rejected, deposits))
		}
	}
	if approved > 0 {
		avg := totalApproved.Div(decimal.NewFromInt(int64(approved)))
		if t.Amount.GreaterThan(avg.Mul(decimal.NewFromInt(3))) {
			score += 25
			factors = append(factors, fmt.Sprintf("• Amount is over 3x the average approved deposit (%s ETB)", avg.StringFixed(2)))
		}
	}
	if len(history) < 5 {
		score += 15
		factors = append(factors, "• New account with little history")
	}
	if score > 100 {
		score = 100
	}

	level := "🟢 LOW"
	switch {
	case score >= 60:
		level = "🔴 HIGH"
	case score >= 30:
		level = "🟡 MEDIUM"
	}
	if len(factors) == 0 {
		factors = append(factors, "• No risk factors detected")
	}

	var b strings.Builder
	b.WriteString("📈 *RISK ASSESSMENT* 📈\n\n")
	fmt.Fprintf(&b, "🆔 *Transaction:* `%s`\n", t.ID)
	fmt.Fprintf(&b, "💵 *Amount:* %s ETB\n", t.Amount.StringFixed(2))
	fmt.Fprintf(&b, "🎯 *Score:* %.0f/100 (%s)\n\n", score, level)
	b.WriteString("*Factors:*\n")
	b.WriteString(strings.Join(factors, "\n"))
	return b.String(), nil
}

// RecentDeposits renders the last few deposit requests across all users.
func (q *Query) RecentDeposits(ctx context.Context) (string, error) {
	txns, err := q.txns.ListRecentDeposits(ctx, 5)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("🕐 *RECENT TRANSACTIONS* 🕐\n\n")
	if len(txns) == 0 {
		b.WriteString("No recent transactions found.")
		return b.String(), nil
	}
	for i, t := range txns {
		fmt.Fprintf(&b, "%d. %s %s ETB\n   📱 %s | %s\n\n",
			i+1, statusEmoji(t.Status), t.Amount.StringFixed(2),
			t.PlayerPhone, t.CreatedAt.In(q.loc).Format("1/2/2006, 3:04:05 PM"))
	}
	return b.String(), nil
}

// DailySummary renders the daily report over the last 24h of deposits.
func (q *Query) DailySummary(ctx context.Context, errorCount int64) (string, error) {
	txns, err := q.txns.ListSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return "", err
	}
	var deposits, approved, rejected, pending int
	totalAmount := decimal.Zero
	for _, t := range txns {
		if t.Type != models.TxnDeposit {
			continue
		}
		deposits++
		switch t.Status {
		case models.TxnApproved:
			approved++
			totalAmount = totalAmount.Add(t.Amount)
		case models.TxnRejected:
			rejected++
		case models.TxnPending:
			pending++
		}
	}
	avg := decimal.Zero
	if approved > 0 {
		avg = totalAmount.Div(decimal.NewFromInt(int64(approved)))
	}

	var b strings.Builder
	b.WriteString("📅 *DAILY SUMMARY REPORT* 📅\n\n")
	b.WriteString("📊 *Yesterday's Activity:*\n")
	fmt.Fprintf(&b, "• Total Deposits: %d\n", deposits)
	fmt.Fprintf(&b, "• ✅ Approved: %d (%s ETB)\n", approved, totalAmount.StringFixed(2))
	fmt.Fprintf(&b, "• ❌ Rejected: %d\n", rejected)
	fmt.Fprintf(&b, "• ⏳ Still Pending: %d\n\n", pending)
	b.WriteString("📈 *Performance:*\n")
	fmt.Fprintf(&b, "• Success Rate: %s%%\n", pct(approved, deposits))
	fmt.Fprintf(&b, "• Average Amount: %s ETB\n", avg.StringFixed(2))
	fmt.Fprintf(&b, "• System Errors: %d", errorCount)
	return b.String(), nil
}
