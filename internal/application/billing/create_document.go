package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	domsunat "github.com/jhoicas/facturador-sunat/internal/domain/sunat"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

const issueDateLayout = "2006-01-02"

// CreateDocumentUseCase crea comprobantes asignando el correlativo dentro de la misma transacción.
type CreateDocumentUseCase struct {
	txRunner     BillingTxRunner
	documents    repository.DocumentRepository
	correlatives repository.CorrelativeRepository
	log          zerolog.Logger
	now          func() time.Time
}

// NewCreateDocumentUseCase construye el caso de uso. documents y correlatives son los
// repos fuera de transacción (lecturas y vista previa).
func NewCreateDocumentUseCase(
	txRunner BillingTxRunner,
	documents repository.DocumentRepository,
	correlatives repository.CorrelativeRepository,
	log zerolog.Logger,
) *CreateDocumentUseCase {
	return &CreateDocumentUseCase{
		txRunner:     txRunner,
		documents:    documents,
		correlatives: correlatives,
		log:          log,
		now:          time.Now,
	}
}

// CreateDocument valida el comprobante, asigna el siguiente correlativo libre de (serie, emisor)
// y persiste cabecera y líneas en estado DRAFT. Todo ocurre en una sola transacción: si algo
// falla se hace rollback y el número queda libre.
func (uc *CreateDocumentUseCase) CreateDocument(ctx context.Context, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	now := uc.now()
	doc, lines, err := uc.buildDocument(in, now)
	if err != nil {
		return nil, err
	}
	if err := domsunat.ValidateDocument(doc, lines); err != nil {
		return nil, err
	}

	err = uc.txRunner.RunBilling(ctx, func(
		issuers repository.IssuerRepository,
		correlatives repository.CorrelativeRepository,
		documents repository.DocumentRepository,
	) error {
		issuer, err := issuers.GetByID(ctx, doc.IssuerID)
		if err != nil {
			return fmt.Errorf("get issuer: %w", err)
		}
		if issuer == nil {
			return fmt.Errorf("%w: %s", domain.ErrUnknownIssuer, doc.IssuerID)
		}

		if doc.ReferenceID != "" {
			ref, err := documents.GetByID(ctx, doc.ReferenceID)
			if err != nil {
				return fmt.Errorf("get reference: %w", err)
			}
			if ref == nil || ref.IssuerID != doc.IssuerID {
				return fmt.Errorf("%w: documento de referencia %s no existe para el emisor", domain.ErrInvalidInput, doc.ReferenceID)
			}
		}

		// Bloqueo de (serie, emisor) hasta el commit: ninguna otra transacción puede
		// leer el mismo conjunto de correlativos mientras esta no termine.
		existing, err := correlatives.LockedNumbers(ctx, doc.Series, doc.IssuerID)
		if err != nil {
			return err
		}
		doc.Number = domsunat.NextCorrelative(existing)
		if doc.XMLFileName == "" {
			doc.XMLFileName = pkgsunat.FileBaseName(issuer.RUC, doc.Type, doc.Series, doc.Number) + ".xml"
		}

		if err := documents.Create(ctx, doc); err != nil {
			return err
		}
		for _, l := range lines {
			l.DocumentID = doc.ID
			if err := documents.CreateLine(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			uc.log.Warn().Str("series", doc.Series).Str("issuer_id", doc.IssuerID).Msg("timeout esperando correlativo; el cliente puede reintentar")
		}
		return nil, err
	}

	uc.log.Info().
		Str("document_id", doc.ID).
		Str("correlative", doc.Correlative()).
		Str("issuer_id", doc.IssuerID).
		Msg("comprobante creado")
	return ToDocumentResponse(doc, lines), nil
}

// GetDocument devuelve el comprobante con sus líneas.
func (uc *CreateDocumentUseCase) GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := uc.documents.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc, lines), nil
}

// DeleteDraft elimina un comprobante que aún no fue firmado. Su número queda libre y será
// reutilizado por la siguiente asignación de la serie.
func (uc *CreateDocumentUseCase) DeleteDraft(ctx context.Context, id string) error {
	return uc.txRunner.RunBilling(ctx, func(
		_ repository.IssuerRepository,
		_ repository.CorrelativeRepository,
		documents repository.DocumentRepository,
	) error {
		doc, err := documents.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return domain.ErrNotFound
		}
		if doc.Status != entity.StatusDraft {
			return fmt.Errorf("%w: %s está en %s", domain.ErrInvalidState, doc.Correlative(), doc.Status)
		}
		return documents.Delete(ctx, id)
	})
}

// PeekNext previsualiza el siguiente correlativo sin bloquear ni reservar.
// El número real puede diferir si otro comprobante se crea antes.
func (uc *CreateDocumentUseCase) PeekNext(ctx context.Context, series, issuerID string) (*dto.NextCorrelativeResponse, error) {
	series = strings.ToUpper(strings.TrimSpace(series))
	if series == "" || issuerID == "" {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.correlatives.Numbers(ctx, series, issuerID)
	if err != nil {
		return nil, err
	}
	return &dto.NextCorrelativeResponse{
		IssuerID: issuerID,
		Series:   series,
		Number:   domsunat.NextCorrelative(existing),
	}, nil
}

func (uc *CreateDocumentUseCase) buildDocument(in dto.CreateDocumentRequest, now time.Time) (*entity.Document, []*entity.DocumentLine, error) {
	issueDate := now
	if in.IssueDate != "" {
		d, err := time.Parse(issueDateLayout, in.IssueDate)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: issue_date debe tener formato YYYY-MM-DD", domain.ErrInvalidInput)
		}
		issueDate = d
	}
	currency := strings.ToUpper(in.Currency)
	if currency == "" {
		currency = pkgsunat.CurrencyPEN
	}

	doc := &entity.Document{
		ID:          uuid.New().String(),
		IssuerID:    strings.TrimSpace(in.IssuerID),
		Type:        strings.ToUpper(strings.TrimSpace(in.Type)),
		Series:      strings.ToUpper(strings.TrimSpace(in.Series)),
		IssueDate:   issueDate,
		Currency:    currency,
		Subtotal:    in.Subtotal,
		Tax:         in.Tax,
		Total:       in.Total,
		ReferenceID: strings.TrimSpace(in.ReferenceID),
		XMLFileName: strings.TrimSpace(in.XMLFileName),
		Status:      entity.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	lines := make([]*entity.DocumentLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, &entity.DocumentLine{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Tax:         l.Tax,
			Total:       l.Total,
		})
	}
	return doc, lines, nil
}

// ToDocumentResponse mapea la entidad al DTO de respuesta.
func ToDocumentResponse(doc *entity.Document, lines []*entity.DocumentLine) *dto.DocumentResponse {
	out := &dto.DocumentResponse{
		ID:          doc.ID,
		IssuerID:    doc.IssuerID,
		Type:        doc.Type,
		Series:      doc.Series,
		Number:      doc.Number,
		Correlative: doc.Correlative(),
		IssueDate:   doc.IssueDate.Format(issueDateLayout),
		Currency:    doc.Currency,
		Subtotal:    doc.Subtotal,
		Tax:         doc.Tax,
		Total:       doc.Total,
		ReferenceID: doc.ReferenceID,
		XMLFileName: doc.XMLFileName,
		Hash:        doc.Hash,
		Status:      doc.Status,
		Ticket:      doc.Ticket,
		Error:       doc.ErrorDesc,
		ReceiptAt:   doc.ReceiptAt,
		Voided:      doc.Voided,
		VoidedAt:    doc.VoidedAt,
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, dto.DocumentLineResponse{
			ID:          l.ID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Tax:         l.Tax,
			Total:       l.Total,
		})
	}
	return out
}
