package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var tracer = otel.Tracer("facturador-sunat/tx")

var _ billing.BillingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout <= 0 deja el valor del servidor.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// RunBilling inicia una transacción con los repos de emisores, correlativos y documentos.
// Los bloqueos tomados por CorrelativeRepository.LockedNumbers se liberan en Commit o Rollback.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	issuers repository.IssuerRepository,
	correlatives repository.CorrelativeRepository,
	documents repository.DocumentRepository,
) error) error {
	ctx, span := tracer.Start(ctx, "billing.transaction",
		trace.WithAttributes(attribute.Int64("tx.lock_timeout_ms", r.lockTimeout.Milliseconds())))
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		// SET no admite parámetros; el valor es un entero controlado.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(NewIssuerRepository(tx), NewCorrelativeRepository(tx), NewDocumentRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
