package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRepositories bundles the repositories bound to one transaction.
type TxRepositories struct {
	Chunks *ChunkRepository
	Runs   *RunRepository
}

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := TxRepositories{
		Chunks: NewChunkRepositoryWithTx(tx),
		Runs:   NewRunRepositoryWithTx(tx),
	}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}
