package repository

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// IssuerRepository define el puerto de persistencia para emisores (DIP).
// La implementación vive en infrastructure.
type IssuerRepository interface {
	Create(ctx context.Context, issuer *entity.Issuer) error
	GetByID(ctx context.Context, id string) (*entity.Issuer, error)
	GetByRUC(ctx context.Context, ruc string) (*entity.Issuer, error)
}
