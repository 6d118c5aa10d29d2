package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")
)

// NotPendingError is returned by Approve/Reject when the row has already been
// decided. It is the stale-button case, not a failure.
type NotPendingError struct {
	Status models.TransactionStatus
}

func (e *NotPendingError) Error() string {
	return fmt.Sprintf("transaction already %s", e.Status)
}

type Transactions interface {
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByPhone(ctx context.Context, phone string, limit, offset int) ([]models.Transaction, error)
	ListPendingDeposits(ctx context.Context, limit int) ([]models.Transaction, error)
	ListSince(ctx context.Context, since time.Time) ([]models.Transaction, error)
	ListRecentDeposits(ctx context.Context, limit int) ([]models.Transaction, error)

	// Approve flips a pending row to approved and credits the owning user's
	// balance in a single database transaction. The status update is guarded
	// by status='pending', so a second call returns NotPendingError instead
	// of double-crediting. Returns the updated row and the new balance.
	Approve(ctx context.Context, id, processedBy string) (models.Transaction, decimal.Decimal, error)

	// Reject flips a pending row to rejected with the given reason. Same
	// pending guard as Approve; the balance is untouched.
	Reject(ctx context.Context, id, processedBy, reason string) (models.Transaction, error)
}

type Users interface {
	GetByPhone(ctx context.Context, phone string) (models.User, error)
}
