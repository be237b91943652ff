package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var _ repository.CorrelativeRepository = (*CorrelativeRepo)(nil)

// CorrelativeRepo lee correlativos ocupados por (serie, emisor).
// LockedNumbers solo tiene sentido con una transacción como Querier.
type CorrelativeRepo struct {
	q Querier
}

// NewCorrelativeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCorrelativeRepository(q Querier) *CorrelativeRepo {
	return &CorrelativeRepo{q: q}
}

// LockedNumbers serializa a los asignadores del mismo par (emisor, serie) con un advisory lock
// de transacción, que cubre la serie vacía donde FOR UPDATE no bloquea ninguna fila, y además
// bloquea las filas existentes para que no cambien hasta el commit.
func (r *CorrelativeRepo) LockedNumbers(ctx context.Context, series, issuerID string) ([]string, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, issuerID+":"+series); err != nil {
		return nil, wrapLockErr("advisory lock", err)
	}
	const query = `
		SELECT number FROM documents
		WHERE series = $1 AND issuer_id = $2
		FOR UPDATE`
	nums, err := r.scanNumbers(ctx, query, series, issuerID)
	if err != nil {
		return nil, wrapLockErr("lock numbers", err)
	}
	return nums, nil
}

// Numbers lectura sin bloqueo para previsualizar el siguiente correlativo.
func (r *CorrelativeRepo) Numbers(ctx context.Context, series, issuerID string) ([]string, error) {
	const query = `SELECT number FROM documents WHERE series = $1 AND issuer_id = $2`
	nums, err := r.scanNumbers(ctx, query, series, issuerID)
	if err != nil {
		return nil, fmt.Errorf("list numbers: %w", err)
	}
	return nums, nil
}

func (r *CorrelativeRepo) scanNumbers(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func wrapLockErr(op string, err error) error {
	if isLockTimeout(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrLockTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
