package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/adaptive-retrieval/internal/core/domain"
)

// OpenDB opens a pgx-backed pool and verifies the server is reachable.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "sql open", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrConnection, "db ping", fmt.Errorf("could not connect to the vector database: %w", err))
	}
	return db, nil
}
