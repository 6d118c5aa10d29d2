package postgres

import (
	"context"
	"errors"

	"github.com/baharkarakas/deposit-relay/internal/models"
	"github.com/baharkarakas/deposit-relay/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct{ pool *pgxpool.Pool }

func (r *usersRepo) GetByPhone(ctx context.Context, phone string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT phone, username, balance, chat_id, created_at FROM users WHERE phone=$1`, phone,
	).Scan(&u.Phone, &u.Username, &u.Balance, &u.ChatID, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, err
}
