package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// NoTX is passed where a repository call should run outside any transaction.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Repositories accept `tx Tx` and detect a live transaction implementation-
// side (e.g. to add SELECT ... FOR UPDATE). They MUST gracefully accept nil
// for the non-transactional path.
//
// Every notification-reconciliation and unsubscribe invocation runs under one
// WithTx call so that its reads and writes commit or roll back as a unit.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
