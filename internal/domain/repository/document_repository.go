package repository

import (
	"context"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para comprobantes y sus líneas.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	CreateLine(ctx context.Context, line *entity.DocumentLine) error
	// GetByID devuelve nil, nil si el documento no existe.
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetLines(ctx context.Context, documentID string) ([]*entity.DocumentLine, error)
	// Update persiste hash, XML firmado, estado, ticket, error y fecha de CDR.
	Update(ctx context.Context, doc *entity.Document) error
	// MarkVoided marca el documento referenciado como dado de baja.
	MarkVoided(ctx context.Context, id string, at time.Time) error
	// Delete elimina un documento en DRAFT (libera su correlativo).
	Delete(ctx context.Context, id string) error
	// ListPendingTickets documentos con ticket cuyo estado aún no es definitivo.
	ListPendingTickets(ctx context.Context, issuerID string, limit int) ([]*entity.Document, error)
}
