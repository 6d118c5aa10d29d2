package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/deposit-relay/internal/models"
	"github.com/baharkarakas/deposit-relay/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id, player_phone, amount, transaction_type, status, description,
       image_proof, created_at, processed_at, processed_by, rejection_reason`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.PlayerPhone, &t.Amount, &t.Type, &t.Status, &t.Description,
		&t.ImageProof, &t.CreatedAt, &t.ProcessedAt, &t.ProcessedBy, &t.RejectionReason)
	return t, err
}

func collectTxns(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	t, err := scanTxn(r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM player_transactions WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repository.ErrTransactionNotFound
	}
	return t, err
}

func (r *transactionsRepo) ListByPhone(ctx context.Context, phone string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM player_transactions
		  WHERE player_phone=$1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		phone, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectTxns(rows)
}

func (r *transactionsRepo) ListPendingDeposits(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM player_transactions
		  WHERE status='pending' AND transaction_type='deposit'
		  ORDER BY created_at DESC
		  LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	return collectTxns(rows)
}

func (r *transactionsRepo) ListSince(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM player_transactions
		  WHERE created_at >= $1
		  ORDER BY created_at DESC`,
		since)
	if err != nil {
		return nil, err
	}
	return collectTxns(rows)
}

func (r *transactionsRepo) ListRecentDeposits(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM player_transactions
		  WHERE transaction_type='deposit'
		  ORDER BY created_at DESC
		  LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	return collectTxns(rows)
}

// Approve runs the status flip and the balance credit in one serializable
// transaction. The WHERE status='pending' guard makes the flip a compare-and-
// swap: a stale button press finds zero pending rows and is resolved by
// re-reading the current status.
func (r *transactionsRepo) Approve(ctx context.Context, id, processedBy string) (models.Transaction, decimal.Decimal, error) {
	var (
		t          models.Transaction
		newBalance decimal.Decimal
	)
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		updated, err := scanTxn(tx.QueryRow(ctx,
			`UPDATE player_transactions
			    SET status='approved', processed_at=now(), processed_by=$2
			  WHERE id=$1 AND status='pending'
			  RETURNING `+txnColumns,
			id, processedBy))
		if errors.Is(err, pgx.ErrNoRows) {
			return r.notPending(ctx, tx, id)
		}
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx,
			`UPDATE users SET balance = balance + $2 WHERE phone=$1 RETURNING balance`,
			updated.PlayerPhone, updated.Amount).Scan(&newBalance)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		t = updated
		return nil
	})
	if err != nil {
		return models.Transaction{}, decimal.Decimal{}, err
	}
	return t, newBalance, nil
}

func (r *transactionsRepo) Reject(ctx context.Context, id, processedBy, reason string) (models.Transaction, error) {
	var t models.Transaction
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		updated, err := scanTxn(tx.QueryRow(ctx,
			`UPDATE player_transactions
			    SET status='rejected', processed_at=now(), processed_by=$2, rejection_reason=$3
			  WHERE id=$1 AND status='pending'
			  RETURNING `+txnColumns,
			id, processedBy, reason))
		if errors.Is(err, pgx.ErrNoRows) {
			return r.notPending(ctx, tx, id)
		}
		if err != nil {
			return err
		}
		t = updated
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// notPending distinguishes "row already decided" from "row does not exist"
// after a guarded update matched nothing.
func (r *transactionsRepo) notPending(ctx context.Context, tx pgx.Tx, id string) error {
	var status models.TransactionStatus
	err := tx.QueryRow(ctx, `SELECT status FROM player_transactions WHERE id=$1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrTransactionNotFound
	}
	if err != nil {
		return err
	}
	return &repository.NotPendingError{Status: status}
}

func (r *transactionsRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
