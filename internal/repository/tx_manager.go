package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"storybook-server/internal/interfaces"
	"storybook-server/pkg/database"
)

// Compile-time check
var _ interfaces.TxManager = (*pgTxManager)(nil)

type pgTxManager struct {
	db *database.Database
}

// NewTxManager adapts the pgx pool to the TxManager interface.
func NewTxManager(db *database.Database) interfaces.TxManager {
	return &pgTxManager{db: db}
}

func (m *pgTxManager) DB() interfaces.DBTX {
	return m.db.Pool
}

func (m *pgTxManager) WithTx(ctx context.Context, fn func(q interfaces.DBTX) error) error {
	return m.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
