package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS TRANSACTION RUNNER
// ══════════════════════════════════════════════════════════════════════════════

// StatsTxRunner implements stats.TxRunner over a single database transaction.
// Repositories are built on pgx.Tx, so a failure in either write rolls back
// both the counters update and the event insert.
type StatsTxRunner struct {
	conn *Connection
}

// NewStatsTxRunner creates a new StatsTxRunner.
func NewStatsTxRunner(conn *Connection) *StatsTxRunner {
	return &StatsTxRunner{conn: conn}
}

// InTx runs fn with transactional stats repositories. Commits on nil,
// rolls back otherwise.
func (r *StatsTxRunner) InTx(ctx context.Context, fn func(stats.Store, stats.HistoryStore) error) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(NewStatsRepository(tx), NewXPHistoryRepository(tx))
	})
}
