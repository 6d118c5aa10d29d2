package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/action"
	"github.com/baharkarakas/deposit-relay/internal/models"
	"github.com/baharkarakas/deposit-relay/internal/telegram"
)

// Ordered label patterns for image proofs embedded in the description.
// First match wins; a dedicated image_proof column wins over all of them.
var imageProofPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)File ID:\s*([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)file_id:\s*([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)image:\s*([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)photo:\s*([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)proof:\s*([a-zA-Z0-9_-]+)`),
}

func ExtractImageProof(t models.Transaction) (string, bool) {
	if t.ImageProof != nil && *t.ImageProof != "" {
		return *t.ImageProof, true
	}
	for _, p := range imageProofPatterns {
		if m := p.FindStringSubmatch(t.Description); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var quickRejectReasons = []struct {
	Code  string
	Label string
}{
	{"invalid_proof", "🚫 Invalid proof"},
	{"wrong_amount", "🚫 Wrong amount"},
}

// DepositCard renders the operator notification for a pending deposit,
// including the action keyboard. user may be nil when the lookup failed.
func DepositCard(t models.Transaction, user *models.User, loc *time.Location) (string, *telegram.InlineKeyboardMarkup) {
	var b strings.Builder
	b.WriteString("🔔 *NEW DEPOSIT REQUEST* 🔔\n\n")
	fmt.Fprintf(&b, "🆔 *Transaction ID:* `%s`\n", t.ID)
	fmt.Fprintf(&b, "📱 *Phone:* %s\n", t.PlayerPhone)
	if user != nil {
		fmt.Fprintf(&b, "👤 *Username:* %s\n", user.Username)
		fmt.Fprintf(&b, "💰 *Current Balance:* %s ETB\n", user.Balance.StringFixed(2))
	}
	fmt.Fprintf(&b, "💵 *Amount:* %s ETB\n", t.Amount.StringFixed(2))
	fmt.Fprintf(&b, "📅 *Date:* %s\n", t.CreatedAt.In(loc).Format("1/2/2006, 3:04:05 PM"))
	desc := t.Description
	if desc == "" {
		desc = "None provided"
	}
	fmt.Fprintf(&b, "📝 *Description:* %s\n", desc)

	proof, hasProof := ExtractImageProof(t)
	if hasProof {
		b.WriteString("📸 *Image Proof:* ✅ Available\n")
	} else {
		b.WriteString("📸 *Image Proof:* ❌ None\n")
	}
	b.WriteString("⏱️ *Status:* PENDING REVIEW\n\n")
	b.WriteString("_Please review and approve/reject this deposit request_")

	rows := [][]telegram.InlineKeyboardButton{
		telegram.Row(
			telegram.Button("✅ APPROVE", action.Action{Verb: action.Approve, Target: t.ID}.Encode()),
			telegram.Button("❌ REJECT", action.Action{Verb: action.Reject, Target: t.ID}.Encode()),
		),
		telegram.Row(
			telegram.Button("📝 History", action.Action{Verb: action.History, Target: t.PlayerPhone}.Encode()),
			telegram.Button("📊 Stats", action.Action{Verb: action.Stats, Target: t.PlayerPhone}.Encode()),
		),
	}
	if hasProof {
		rows = append(rows, telegram.Row(
			telegram.Button("📸 View Image Proof", action.Action{Verb: action.Image, Target: proof}.Encode()),
		))
	}
	rows = append(rows, telegram.Row(
		telegram.Button("🔍 Inspect", action.Action{Verb: action.Inspect, Target: t.ID}.Encode()),
		telegram.Button("⚠️ Flag", action.Action{Verb: action.Flag, Target: t.ID}.Encode()),
		telegram.Button("📈 Risk", action.Action{Verb: action.Risk, Target: t.ID}.Encode()),
	))
	var quick []telegram.InlineKeyboardButton
	for _, r := range quickRejectReasons {
		quick = append(quick, telegram.Button(r.Label,
			action.Action{Verb: action.RejectReason, Target: t.ID, Reason: r.Code}.Encode()))
	}
	rows = append(rows, quick)

	return b.String(), telegram.Keyboard(rows...)
}

func statusEmoji(s models.TransactionStatus) string {
	switch s {
	case models.TxnApproved:
		return "✅"
	case models.TxnRejected:
		return "❌"
	default:
		return "⏳"
	}
}
