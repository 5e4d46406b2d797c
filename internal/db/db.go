package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type HDb struct {
	*sqlx.DB
}

// NewHDb opens and pings the database. The caller owns Close.
func NewHDb(ctx context.Context, driverName, dataSourceUrl string) (*HDb, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dataSourceUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driverName, err)
	}
	return &HDb{db}, nil
}
