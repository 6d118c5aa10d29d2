package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTxn(store *fakeStore, id, phone, amount string, typ models.TransactionType, status models.TransactionStatus, age time.Duration) {
	t := models.Transaction{
		ID:          id,
		PlayerPhone: phone,
		Amount:      dec(amount),
		Type:        typ,
		Status:      status,
		CreatedAt:   time.Now().Add(-age),
	}
	store.putTxn(t)
}

func TestUserStats(t *testing.T) {
	store := newFakeStore()
	store.putUser(models.User{Phone: "0911000000", Username: "abebe", Balance: dec("420.00"), CreatedAt: time.Now().AddDate(0, -3, 0)})
	seedTxn(store, "T1", "0911000000", "100.00", models.TxnDeposit, models.TxnApproved, time.Hour)
	seedTxn(store, "T2", "0911000000", "200.00", models.TxnDeposit, models.TxnApproved, 2*time.Hour)
	seedTxn(store, "T3", "0911000000", "50.00", models.TxnDeposit, models.TxnRejected, 3*time.Hour)
	seedTxn(store, "T4", "0911000000", "30.00", models.TxnDeposit, models.TxnPending, 4*time.Hour)
	seedTxn(store, "T5", "0911000000", "-80.00", models.TxnWithdrawal, models.TxnApproved, 5*time.Hour)

	q := NewQuery(store, store, time.UTC)
	out, err := q.UserStats(context.Background(), "0911000000")
	require.NoError(t, err)

	assert.Contains(t, out, "abebe")
	assert.Contains(t, out, "420.00 ETB")
	assert.Contains(t, out, "Total Transactions: 5")
	assert.Contains(t, out, "Deposits: 4 (✅2 ⏳1 ❌1)")
	assert.Contains(t, out, "Total Deposited: 300.00 ETB")
	assert.Contains(t, out, "Total Withdrawn: 80.00 ETB")
	assert.Contains(t, out, "Average Deposit: 150.00 ETB")
	assert.Contains(t, out, "Net Position: 220.00 ETB")
	assert.Contains(t, out, "Rejection Rate: 25.0%")
	assert.Contains(t, out, "Success Rate: 50.0%")
}

func TestUserStatsUnknownPhone(t *testing.T) {
	q := NewQuery(newFakeStore(), newFakeStore(), time.UTC)
	_, err := q.UserStats(context.Background(), "0900000000")
	assert.Error(t, err)
}

func TestHistoryEmpty(t *testing.T) {
	q := NewQuery(newFakeStore(), newFakeStore(), time.UTC)
	out, err := q.History(context.Background(), "0911000000")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions found")
}

func TestHistoryOrderingAndQuickStats(t *testing.T) {
	store := newFakeStore()
	seedTxn(store, "OLD", "0911000000", "10.00", models.TxnDeposit, models.TxnApproved, 48*time.Hour)
	seedTxn(store, "NEW", "0911000000", "20.00", models.TxnDeposit, models.TxnPending, time.Minute)

	q := NewQuery(store, store, time.UTC)
	out, err := q.History(context.Background(), "0911000000")
	require.NoError(t, err)

	// newest first
	assert.Less(t, strings.Index(out, "NEW"), strings.Index(out, "OLD"))
	assert.Contains(t, out, "1 approved, 1 pending, 0 rejected")
}

func TestDashboardAggregatesLastDay(t *testing.T) {
	store := newFakeStore()
	seedTxn(store, "T1", "0911000000", "100.00", models.TxnDeposit, models.TxnApproved, time.Hour)
	seedTxn(store, "T2", "0911000000", "50.00", models.TxnDeposit, models.TxnRejected, 2*time.Hour)
	seedTxn(store, "T3", "0911000000", "25.00", models.TxnDeposit, models.TxnPending, 3*time.Hour)
	seedTxn(store, "T4", "0911000000", "-40.00", models.TxnWithdrawal, models.TxnApproved, 4*time.Hour)
	// outside the window, must not count
	seedTxn(store, "T5", "0911000000", "999.00", models.TxnDeposit, models.TxnApproved, 48*time.Hour)

	q := NewQuery(store, store, time.UTC)
	out, err := q.Dashboard(context.Background(), RuntimeInfo{Uptime: 90 * time.Minute, QueueDepth: 2, Errors: 1, Connected: true})
	require.NoError(t, err)

	assert.Contains(t, out, "Uptime:* 1h 30m")
	assert.Contains(t, out, "Queue:* 2 pending")
	assert.Contains(t, out, "Status:* Connected")
	assert.Contains(t, out, "Total Requests: 3")
	assert.Contains(t, out, "Approved: 1 (100.00 ETB)")
	assert.Contains(t, out, "Success Rate: 33.3%")
	assert.Contains(t, out, "NET FLOW:* 60.00 ETB")
	assert.NotContains(t, out, "999.00")
}

func TestRiskScoreLevels(t *testing.T) {
	t.Run("clean history is low", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 9; i++ {
			seedTxn(store, string(rune('A'+i)), "0911000000", "100.00", models.TxnDeposit, models.TxnApproved, time.Duration(i+1)*time.Hour)
		}
		seedTxn(store, "TX", "0911000000", "100.00", models.TxnDeposit, models.TxnPending, time.Minute)

		q := NewQuery(store, store, time.UTC)
		out, err := q.RiskScore(context.Background(), "TX")
		require.NoError(t, err)
		assert.Contains(t, out, "🟢 LOW")
		assert.Contains(t, out, "No risk factors detected")
	})

	t.Run("thin history with one rejection is medium", func(t *testing.T) {
		store := newFakeStore()
		seedTxn(store, "R1", "0911000000", "100.00", models.TxnDeposit, models.TxnRejected, time.Hour)
		seedTxn(store, "TX", "0911000000", "100.00", models.TxnDeposit, models.TxnPending, time.Minute)

		q := NewQuery(store, store, time.UTC)
		out, err := q.RiskScore(context.Background(), "TX")
		require.NoError(t, err)
		assert.Contains(t, out, "🟡 MEDIUM")
		assert.Contains(t, out, "previously rejected")
		assert.Contains(t, out, "little history")
	})

	t.Run("heavy rejections and outsized amount is high", func(t *testing.T) {
		store := newFakeStore()
		for i := 0; i < 8; i++ {
			seedTxn(store, string(rune('A'+i)), "0911000000", "100.00", models.TxnDeposit, models.TxnRejected, time.Duration(i+1)*time.Hour)
		}
		seedTxn(store, "OK1", "0911000000", "10.00", models.TxnDeposit, models.TxnApproved, 20*time.Hour)
		seedTxn(store, "TX", "0911000000", "500.00", models.TxnDeposit, models.TxnPending, time.Minute)

		q := NewQuery(store, store, time.UTC)
		out, err := q.RiskScore(context.Background(), "TX")
		require.NoError(t, err)
		assert.Contains(t, out, "🔴 HIGH")
		assert.Contains(t, out, "8 of 10 deposits previously rejected")
		assert.Contains(t, out, "over 3x the average approved deposit")
	})
}

func TestDailySummary(t *testing.T) {
	store := newFakeStore()
	seedTxn(store, "T1", "0911000000", "100.00", models.TxnDeposit, models.TxnApproved, time.Hour)
	seedTxn(store, "T2", "0911000000", "60.00", models.TxnDeposit, models.TxnApproved, 2*time.Hour)
	seedTxn(store, "T3", "0911000000", "10.00", models.TxnDeposit, models.TxnRejected, 3*time.Hour)

	q := NewQuery(store, store, time.UTC)
	out, err := q.DailySummary(context.Background(), 2)
	require.NoError(t, err)

	assert.Contains(t, out, "Total Deposits: 3")
	assert.Contains(t, out, "Approved: 2 (160.00 ETB)")
	assert.Contains(t, out, "Average Amount: 80.00 ETB")
	assert.Contains(t, out, "Success Rate: 66.7%")
	assert.Contains(t, out, "System Errors: 2")
}
