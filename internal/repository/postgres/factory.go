package postgres

import (
	repo "github.com/baharkarakas/deposit-relay/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users        repo.Users
	Transactions repo.Transactions
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        &usersRepo{pool},
		Transactions: &transactionsRepo{pool},
	}
}
