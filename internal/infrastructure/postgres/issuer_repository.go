package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

// Asegura que IssuerRepo implementa repository.IssuerRepository.
var _ repository.IssuerRepository = (*IssuerRepo)(nil)

// IssuerRepo implementación del puerto IssuerRepository sobre PostgreSQL.
type IssuerRepo struct {
	q Querier
}

// NewIssuerRepository construye el adaptador de persistencia para emisores.
func NewIssuerRepository(q Querier) *IssuerRepo {
	return &IssuerRepo{q: q}
}

const issuerColumns = `id, ruc, legal_name, COALESCE(trade_name, ''), COALESCE(address, ''), COALESCE(ubigeo, ''),
	       cert_path, cert_password, sol_user, sol_password, created_at, updated_at`

// Create persiste un nuevo emisor.
func (r *IssuerRepo) Create(ctx context.Context, issuer *entity.Issuer) error {
	query := `
		INSERT INTO issuers (id, ruc, legal_name, trade_name, address, ubigeo,
		                     cert_path, cert_password, sol_user, sol_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		issuer.ID, issuer.RUC, issuer.LegalName, nullIfEmpty(issuer.TradeName),
		nullIfEmpty(issuer.Address), nullIfEmpty(issuer.Ubigeo),
		issuer.CertPath, issuer.CertPassword, issuer.SolUser, issuer.SolPassword,
		issuer.CreatedAt, issuer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("issuer RUC %s: %w", issuer.RUC, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert issuer: %w", err)
	}
	return nil
}

// GetByID obtiene un emisor por ID. Devuelve nil, nil si no existe.
func (r *IssuerRepo) GetByID(ctx context.Context, id string) (*entity.Issuer, error) {
	return r.getOne(ctx, `SELECT `+issuerColumns+` FROM issuers WHERE id = $1`, id)
}

// GetByRUC obtiene un emisor por RUC.
func (r *IssuerRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Issuer, error) {
	return r.getOne(ctx, `SELECT `+issuerColumns+` FROM issuers WHERE ruc = $1`, ruc)
}

func (r *IssuerRepo) getOne(ctx context.Context, query string, arg string) (*entity.Issuer, error) {
	var i entity.Issuer
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&i.ID, &i.RUC, &i.LegalName, &i.TradeName, &i.Address, &i.Ubigeo,
		&i.CertPath, &i.CertPassword, &i.SolUser, &i.SolPassword,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issuer: %w", err)
	}
	return &i, nil
}
