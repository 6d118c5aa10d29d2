package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const depositChannel = "deposit_inserted"

// Feed is the store's insert notification stream. Satisfied by the pgx
// implementation below; tests inject fakes.
type Feed interface {
	Listen(ctx context.Context) (FeedConn, error)
}

// FeedConn is one live subscription. WaitForNotification blocks until a
// payload arrives or ctx is done; Release returns the connection.
type FeedConn interface {
	WaitForNotification(ctx context.Context) (string, error)
	Release()
}

// depositFeed subscribes with LISTEN on a dedicated pooled connection.
type depositFeed struct{ pool *pgxpool.Pool }

func NewDepositFeed(pool *pgxpool.Pool) Feed { return &depositFeed{pool: pool} }

func (f *depositFeed) Listen(ctx context.Context) (FeedConn, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+depositChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", depositChannel, err)
	}
	return &depositFeedConn{conn: conn}, nil
}

type depositFeedConn struct{ conn *pgxpool.Conn }

func (c *depositFeedConn) WaitForNotification(ctx context.Context) (string, error) {
	n, err := c.conn.Conn().WaitForNotification(ctx)
	if err != nil {
		return "", err
	}
	return n.Payload, nil
}

func (c *depositFeedConn) Release() { c.conn.Release() }
