package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/baharkarakas/deposit-relay/internal/action"
	"github.com/baharkarakas/deposit-relay/internal/models"
	repo "github.com/baharkarakas/deposit-relay/internal/repository"
	"github.com/baharkarakas/deposit-relay/internal/telegram"
	"github.com/shopspring/decimal"
)

const processedBy = "Admin Bot"

var quickReasonLabels = map[string]string{
	"invalid_proof": "Invalid payment proof",
	"wrong_amount":  "Amount does not match proof",
}

// Decision applies operator button presses. The in-flight set guarantees at
// most one concurrent decision per transaction id within this process; the
// pending guard in the repository makes a duplicate press a no-op rather than
// a double credit.
type Decision struct {
	txns      repo.Transactions
	users     repo.Users
	query     *Query
	channel   Channel
	stats     *RuntimeStats
	adminChat int64
	loc       *time.Location

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewDecision(txns repo.Transactions, users repo.Users, query *Query, channel Channel, stats *RuntimeStats, adminChat int64, loc *time.Location) *Decision {
	return &Decision{
		txns:      txns,
		users:     users,
		query:     query,
		channel:   channel,
		stats:     stats,
		adminChat: adminChat,
		loc:       loc,
		inFlight:  make(map[string]struct{}),
	}
}

func (d *Decision) tryAcquire(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[id]; busy {
		return false
	}
	d.inFlight[id] = struct{}{}
	return true
}

func (d *Decision) release(id string) {
	d.mu.Lock()
	delete(d.inFlight, id)
	d.mu.Unlock()
}

// HandleCallback routes a decoded button press. Decision verbs mutate the
// store; everything else is read-only or advisory.
func (d *Decision) HandleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	act, err := action.Parse(cb.Data)
	if err != nil {
		slog.Warn("unparseable callback", "data", cb.Data, "err", err)
		d.answer(ctx, cb.ID, "❌ Unknown action", true)
		return
	}

	switch act.Verb {
	case action.Approve:
		d.decide(ctx, cb, act.Target, models.TxnApproved, "")
	case action.Reject:
		d.decide(ctx, cb, act.Target, models.TxnRejected, "")
	case action.RejectReason:
		reason := quickReasonLabels[act.Reason]
		if reason == "" {
			reason = act.Reason
		}
		d.decide(ctx, cb, act.Target, models.TxnRejected, reason)
	case action.History:
		d.answer(ctx, cb.ID, "📝 Loading transaction history...", false)
		d.reply(ctx, cb, func() (string, error) { return d.query.History(ctx, act.Target) }, "❌ Error loading history!")
	case action.Stats:
		d.answer(ctx, cb.ID, "📊 Loading user statistics...", false)
		d.reply(ctx, cb, func() (string, error) { return d.query.UserStats(ctx, act.Target) }, "❌ Error loading user stats!")
	case action.Image:
		if err := d.sendImageProof(ctx, act.Target); err != nil {
			slog.Error("image proof send failed", "file", act.Target, "err", err)
			d.stats.Error()
			d.answer(ctx, cb.ID, "❌ Error loading image proof!", true)
			return
		}
		d.answer(ctx, cb.ID, "📸 Image proof sent!", false)
	case action.Inspect:
		d.answer(ctx, cb.ID, "🔍 Transaction inspection loaded", false)
		d.reply(ctx, cb, func() (string, error) { return d.query.Inspect(ctx, act.Target) }, "❌ Error loading inspection!")
	case action.Risk:
		d.answer(ctx, cb.ID, "📈 Computing risk score...", false)
		d.reply(ctx, cb, func() (string, error) { return d.query.RiskScore(ctx, act.Target) }, "❌ Error computing risk score!")
	case action.Flag:
		d.flag(ctx, cb, act.Target)
	case action.ProofOK:
		d.answer(ctx, cb.ID, "✅ Image proof verified as legitimate", false)
	case action.ProofBad:
		d.answer(ctx, cb.ID, "⚠️ Image proof marked as suspicious", false)
	}
}

// decide runs the full approve/reject procedure for one button press.
func (d *Decision) decide(ctx context.Context, cb *telegram.CallbackQuery, txID string, target models.TransactionStatus, reason string) {
	if !d.tryAcquire(txID) {
		slog.Info("transaction already being processed", "tx", txID)
		d.answer(ctx, cb.ID, "⚠️ Transaction is already being processed!", true)
		return
	}
	defer d.release(txID)

	var (
		t          models.Transaction
		newBalance decimal.Decimal
		err        error
	)
	if target == models.TxnApproved {
		t, newBalance, err = d.txns.Approve(ctx, txID, processedBy)
	} else {
		if reason == "" {
			reason = "Not specified"
		}
		t, err = d.txns.Reject(ctx, txID, processedBy, reason)
	}

	var notPending *repo.NotPendingError
	switch {
	case errors.As(err, &notPending):
		// stale button, not an error
		d.answer(ctx, cb.ID, fmt.Sprintf("⚠️ Transaction already %s!", notPending.Status), true)
		return
	case errors.Is(err, repo.ErrTransactionNotFound):
		d.answer(ctx, cb.ID, "❌ Transaction not found", true)
		return
	case err != nil:
		slog.Error("decision failed", "tx", txID, "err", err)
		d.stats.Error()
		d.reportDecisionError(ctx, txID, err)
		d.answer(ctx, cb.ID, truncate("❌ Error: "+err.Error(), 180), true)
		return
	}

	if target == models.TxnApproved {
		d.stats.Approved()
		slog.Info("deposit approved", "tx", txID, "new_balance", newBalance.StringFixed(2))
	} else {
		d.stats.Rejected()
		slog.Info("deposit rejected", "tx", txID, "reason", reason)
	}

	d.editCard(ctx, cb, t, newBalance, reason)
	d.answer(ctx, cb.ID, fmt.Sprintf("%s Transaction %s successfully!", statusEmoji(t.Status), t.Status), false)
	d.notifyPlayer(ctx, t, newBalance, reason)
}

// editCard rewrites the original notification in place: final status block
// appended, action controls stripped.
func (d *Decision) editCard(ctx context.Context, cb *telegram.CallbackQuery, t models.Transaction, newBalance decimal.Decimal, reason string) {
	if cb.Message == nil {
		return
	}
	var b strings.Builder
	b.WriteString(cb.Message.Text)
	fmt.Fprintf(&b, "\n\n%s *FINAL STATUS:* %s\n", statusEmoji(t.Status), strings.ToUpper(string(t.Status)))
	fmt.Fprintf(&b, "⏱️ *Processed:* %s\n", time.Now().In(d.loc).Format("1/2/2006, 3:04:05 PM"))
	fmt.Fprintf(&b, "🤖 *By:* %s\n", processedBy)
	if t.Status == models.TxnApproved {
		fmt.Fprintf(&b, "💰 *New Balance:* %s ETB", newBalance.StringFixed(2))
	} else {
		fmt.Fprintf(&b, "📝 *Reason:* %s", reason)
	}
	if err := d.channel.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID, b.String(), nil); err != nil {
		slog.Error("card edit failed", "tx", t.ID, "err", err)
		d.stats.Error()
	}
}

// notifyPlayer tells the account holder about the outcome when a chat link
// exists. Best effort: failures are logged, never surfaced to the operator.
func (d *Decision) notifyPlayer(ctx context.Context, t models.Transaction, newBalance decimal.Decimal, reason string) {
	user, err := d.users.GetByPhone(ctx, t.PlayerPhone)
	if err != nil || user.ChatID == nil {
		return
	}
	var text string
	if t.Status == models.TxnApproved {
		text = fmt.Sprintf("✅ Your deposit of %s ETB has been approved!\n💰 New balance: %s ETB",
			t.Amount.StringFixed(2), newBalance.StringFixed(2))
	} else {
		text = fmt.Sprintf("❌ Your deposit of %s ETB was rejected.\n📝 Reason: %s",
			t.Amount.StringFixed(2), reason)
	}
	if _, err := d.channel.SendMessage(ctx, *user.ChatID, text, nil); err != nil {
		slog.Warn("player notification failed", "phone", t.PlayerPhone, "err", err)
	}
}

func (d *Decision) reportDecisionError(ctx context.Context, txID string, cause error) {
	text := fmt.Sprintf("❌ *ERROR PROCESSING TRANSACTION*\n\n"+
		"🆔 *ID:* `%s`\n"+
		"⚠️ *Error:* %s\n"+
		"🕐 *Time:* %s\n\n"+
		"Please check the transaction manually.",
		txID, cause.Error(), time.Now().In(d.loc).Format("1/2/2006, 3:04:05 PM"))
	if _, err := d.channel.SendMessage(ctx, d.adminChat, text, nil); err != nil {
		slog.Error("error report send failed", "tx", txID, "err", err)
	}
}

// flag posts an advisory card. Deliberately no persisted flag state.
func (d *Decision) flag(ctx context.Context, cb *telegram.CallbackQuery, txID string) {
	text := fmt.Sprintf("🚩 *TRANSACTION FLAGGED* 🚩\n\n"+
		"🆔 *ID:* `%s`\n"+
		"⚠️ *Status:* Flagged for manual review\n"+
		"👤 *Flagged by:* Admin\n"+
		"🕐 *Time:* %s\n\n"+
		"This transaction requires additional verification.",
		txID, time.Now().In(d.loc).Format("1/2/2006, 3:04:05 PM"))
	if _, err := d.channel.SendMessage(ctx, d.adminChat, text, nil); err != nil {
		slog.Error("flag message failed", "tx", txID, "err", err)
		d.stats.Error()
		return
	}
	d.answer(ctx, cb.ID, "🚩 Transaction flagged for review", false)
}

func (d *Decision) sendImageProof(ctx context.Context, fileID string) error {
	caption := "📸 *DEPOSIT IMAGE PROOF*\n\n" +
		"👆 This image was submitted as proof for the deposit request.\n" +
		"🔍 Please verify the transaction details match the request."
	keyboard := telegram.Keyboard(telegram.Row(
		telegram.Button("✅ Looks Good", action.Action{Verb: action.ProofOK, Target: fileID}.Encode()),
		telegram.Button("❌ Suspicious", action.Action{Verb: action.ProofBad, Target: fileID}.Encode()),
	))
	if err := d.channel.SendPhoto(ctx, d.adminChat, fileID, caption, keyboard); err != nil {
		text := fmt.Sprintf("❌ *Error Loading Image Proof*\n\n"+
			"File ID: `%s`\nError: %s\n\n"+
			"The image may have expired or the file ID is invalid.", fileID, err.Error())
		_, _ = d.channel.SendMessage(ctx, d.adminChat, text, nil)
		return err
	}
	return nil
}

// reply runs a read-only query and posts the result to the operator channel;
// a failure becomes an alert on the pressed button.
func (d *Decision) reply(ctx context.Context, cb *telegram.CallbackQuery, load func() (string, error), errText string) {
	text, err := load()
	if err != nil {
		slog.Error("query failed", "data", cb.Data, "err", err)
		d.stats.Error()
		d.answer(ctx, cb.ID, errText, true)
		return
	}
	if _, err := d.channel.SendMessage(ctx, d.adminChat, text, nil); err != nil {
		slog.Error("query reply send failed", "data", cb.Data, "err", err)
		d.stats.Error()
	}
}

func (d *Decision) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := d.channel.AnswerCallbackQuery(ctx, callbackID, text, alert); err != nil {
		slog.Warn("callback answer failed", "err", err)
	}
}

// truncate counts runes so a cut never splits a multi-byte character.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
