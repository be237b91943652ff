package billing

import (
	"context"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción que incluye emisores,
// correlativos y documentos. Si fn retorna error se hace rollback y se liberan los bloqueos.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		issuers repository.IssuerRepository,
		correlatives repository.CorrelativeRepository,
		documents repository.DocumentRepository,
	) error) error
}

// Notifier recibe los documentos que alcanzan un estado definitivo (ACCEPTED / REJECTED).
// Sus errores se registran en log y no alteran el resultado de la operación.
type Notifier interface {
	Notify(ctx context.Context, doc *entity.Document, out Outcome) error
}

// ReceiptReader lee un CDR archivado por nombre de archivo (R-<base>.xml).
type ReceiptReader interface {
	Get(name string) ([]byte, error)
}

// Paths directorios de trabajo de XML.
type Paths struct {
	XMLDir    string // XML sin firmar producido por la capa de plantillas
	SignedDir string // XML firmado y ZIP
}
