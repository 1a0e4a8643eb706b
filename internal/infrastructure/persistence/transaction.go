package persistence

import (
	"context"

	"github.com/finbooks/backend/internal/domain/shared"
	"gorm.io/gorm"
)

type txKey struct{}

// TxManager implements shared.TransactionManager on a GORM connection. The
// open transaction travels in the context, so every repository built on the
// same connection joins it through session.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a new TxManager
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTransaction runs fn inside one transaction. A nested call reuses the
// transaction already carried by the context instead of opening another.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func txFromContext(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{}).(*gorm.DB)
	return tx
}

// session returns the transaction carried by the context, or the repository's
// own connection when no transaction is open.
func session(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// Ensure TxManager implements shared.TransactionManager
var _ shared.TransactionManager = (*TxManager)(nil)
