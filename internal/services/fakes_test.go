package services

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/models"
	repo "github.com/baharkarakas/deposit-relay/internal/repository"
	"github.com/baharkarakas/deposit-relay/internal/telegram"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

// fakeStore implements repository.Transactions and repository.Users over
// in-memory maps, with the same pending-guard semantics as the postgres repo.
type fakeStore struct {
	mu    sync.Mutex
	txns  map[string]models.Transaction
	users map[string]models.User

	approveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		txns:  make(map[string]models.Transaction),
		users: make(map[string]models.User),
	}
}

func (f *fakeStore) putTxn(t models.Transaction) { f.txns[t.ID] = t }
func (f *fakeStore) putUser(u models.User)       { f.users[u.Phone] = u }
func (f *fakeStore) txn(id string) models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txns[id]
}
func (f *fakeStore) user(phone string) models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[phone]
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[id]
	if !ok {
		return models.Transaction{}, repo.ErrTransactionNotFound
	}
	return t, nil
}

func (f *fakeStore) sortedByCreated() []models.Transaction {
	out := make([]models.Transaction, 0, len(f.txns))
	for _, t := range f.txns {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeStore) ListByPhone(ctx context.Context, phone string, limit, offset int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.sortedByCreated() {
		if t.PlayerPhone == phone {
			out = append(out, t)
		}
	}
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListPendingDeposits(ctx context.Context, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.sortedByCreated() {
		if t.IsPendingDeposit() && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListSince(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.sortedByCreated() {
		if !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRecentDeposits(ctx context.Context, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.sortedByCreated() {
		if t.Type == models.TxnDeposit && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Approve(ctx context.Context, id, processedBy string) (models.Transaction, decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.approveErr != nil {
		return models.Transaction{}, decimal.Decimal{}, f.approveErr
	}
	t, ok := f.txns[id]
	if !ok {
		return models.Transaction{}, decimal.Decimal{}, repo.ErrTransactionNotFound
	}
	if t.Status != models.TxnPending {
		return models.Transaction{}, decimal.Decimal{}, &repo.NotPendingError{Status: t.Status}
	}
	u, ok := f.users[t.PlayerPhone]
	if !ok {
		return models.Transaction{}, decimal.Decimal{}, repo.ErrUserNotFound
	}
	now := time.Now()
	t.Status = models.TxnApproved
	t.ProcessedAt = &now
	t.ProcessedBy = &processedBy
	f.txns[id] = t
	u.Balance = u.Balance.Add(t.Amount)
	f.users[t.PlayerPhone] = u
	return t, u.Balance, nil
}

func (f *fakeStore) Reject(ctx context.Context, id, processedBy, reason string) (models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[id]
	if !ok {
		return models.Transaction{}, repo.ErrTransactionNotFound
	}
	if t.Status != models.TxnPending {
		return models.Transaction{}, &repo.NotPendingError{Status: t.Status}
	}
	now := time.Now()
	t.Status = models.TxnRejected
	t.ProcessedAt = &now
	t.ProcessedBy = &processedBy
	t.RejectionReason = &reason
	f.txns[id] = t
	return t, nil
}

func (f *fakeStore) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[phone]
	if !ok {
		return models.User{}, repo.ErrUserNotFound
	}
	return u, nil
}

type sentMessage struct {
	chat   int64
	text   string
	markup *telegram.InlineKeyboardMarkup
}

type editedMessage struct {
	chat, messageID int64
	text            string
}

type callbackAnswer struct {
	text  string
	alert bool
}

// fakeChannel records outbound calls and can be told to fail sends.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []sentMessage
	edits   []editedMessage
	photos  []string
	answers []callbackAnswer
	sendErr error
}

func (f *fakeChannel) SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chat: chatID, text: text, markup: markup})
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	return int64(len(f.sent)), nil
}

func (f *fakeChannel) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{chat: chatID, messageID: messageID, text: text})
	return nil
}

func (f *fakeChannel) SendPhoto(ctx context.Context, chatID int64, fileID, caption string, markup *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, fileID)
	return f.sendErr
}

func (f *fakeChannel) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackAnswer{text: text, alert: showAlert})
	return nil
}

func (f *fakeChannel) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChannel) lastAnswer() callbackAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[len(f.answers)-1]
}

// fakeFeedConn delivers payloads pushed onto its channel and records Release.
type fakeFeedConn struct {
	payloads chan string
	released atomic.Bool
}

func (c *fakeFeedConn) WaitForNotification(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case p := <-c.payloads:
		return p, nil
	}
}

func (c *fakeFeedConn) Release() { c.released.Store(true) }

// fakeFeed hands out one fakeFeedConn per Listen call.
type fakeFeed struct {
	mu        sync.Mutex
	conns     []*fakeFeedConn
	listenErr error
}

func (f *fakeFeed) Listen(ctx context.Context) (FeedConn, error) {
	if f.listenErr != nil {
		return nil, f.listenErr
	}
	c := &fakeFeedConn{payloads: make(chan string, 8)}
	f.mu.Lock()
	f.conns = append(f.conns, c)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeFeed) conn(i int) *fakeFeedConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns[i]
}

func (f *fakeFeed) connCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}
