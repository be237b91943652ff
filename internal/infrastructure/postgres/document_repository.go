package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

var documentColumns = []string{
	"id", "issuer_id", "type", "series", "number", "issue_date", "currency",
	"subtotal", "tax", "total", "reference_id", "xml_file_name", "hash", "xml_signed",
	"status", "ticket", "error_desc", "receipt_at", "voided", "voided_at",
	"created_at", "updated_at",
}

// documentRow fila de documents; las columnas opcionales son punteros.
type documentRow struct {
	ID          string          `db:"id"`
	IssuerID    string          `db:"issuer_id"`
	Type        string          `db:"type"`
	Series      string          `db:"series"`
	Number      string          `db:"number"`
	IssueDate   time.Time       `db:"issue_date"`
	Currency    string          `db:"currency"`
	Subtotal    decimal.Decimal `db:"subtotal"`
	Tax         decimal.Decimal `db:"tax"`
	Total       decimal.Decimal `db:"total"`
	ReferenceID *string         `db:"reference_id"`
	XMLFileName *string         `db:"xml_file_name"`
	Hash        *string         `db:"hash"`
	XMLSigned   *string         `db:"xml_signed"`
	Status      string          `db:"status"`
	Ticket      *string         `db:"ticket"`
	ErrorDesc   *string         `db:"error_desc"`
	ReceiptAt   *time.Time      `db:"receipt_at"`
	Voided      bool            `db:"voided"`
	VoidedAt    *time.Time      `db:"voided_at"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r *documentRow) toEntity() *entity.Document {
	return &entity.Document{
		ID: r.ID, IssuerID: r.IssuerID, Type: r.Type, Series: r.Series, Number: r.Number,
		IssueDate: r.IssueDate, Currency: r.Currency,
		Subtotal: r.Subtotal, Tax: r.Tax, Total: r.Total,
		ReferenceID: derefStr(r.ReferenceID),
		XMLFileName: derefStr(r.XMLFileName),
		Hash:        derefStr(r.Hash),
		XMLSigned:   derefStr(r.XMLSigned),
		Status:      r.Status,
		Ticket:      derefStr(r.Ticket),
		ErrorDesc:   derefStr(r.ErrorDesc),
		ReceiptAt:   r.ReceiptAt,
		Voided:      r.Voided,
		VoidedAt:    r.VoidedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste la cabecera del documento. El índice único (issuer_id, series, number)
// es la última barrera contra correlativos duplicados.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	query := `
		INSERT INTO documents (id, issuer_id, type, series, number, issue_date, currency,
		                       subtotal, tax, total, reference_id, xml_file_name, status,
		                       voided, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.IssuerID, doc.Type, doc.Series, doc.Number, doc.IssueDate, doc.Currency,
		doc.Subtotal, doc.Tax, doc.Total, nullIfEmpty(doc.ReferenceID), nullIfEmpty(doc.XMLFileName),
		doc.Status, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document %s already exists: %w", doc.Correlative(), domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateLine persiste una línea de detalle.
func (r *DocumentRepo) CreateLine(ctx context.Context, line *entity.DocumentLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO document_lines (id, document_id, description, quantity, unit_price, tax, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		line.ID, line.DocumentID, line.Description, line.Quantity, line.UnitPrice, line.Tax, line.Total,
	)
	if err != nil {
		return fmt.Errorf("insert document line: %w", err)
	}
	return nil
}

// GetByID obtiene un documento completo por ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	sql, args, err := psql.Select(documentColumns...).From("documents").
		Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var row documentRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return row.toEntity(), nil
}

// GetLines devuelve las líneas del documento en orden de inserción.
func (r *DocumentRepo) GetLines(ctx context.Context, documentID string) ([]*entity.DocumentLine, error) {
	query := `
		SELECT id, document_id, description, quantity, unit_price, tax, total
		FROM document_lines WHERE document_id = $1 ORDER BY id`
	var lines []*entity.DocumentLine
	if err := pgxscan.Select(ctx, r.q, &lines, query, documentID); err != nil {
		return nil, fmt.Errorf("list document lines: %w", err)
	}
	return lines, nil
}

// Update persiste los campos que cambian durante el envío a SUNAT.
// Un documento ACCEPTED no se modifica (solo MarkVoided puede tocarlo).
func (r *DocumentRepo) Update(ctx context.Context, doc *entity.Document) error {
	query := `
		UPDATE documents
		SET hash       = COALESCE($2, hash),
		    xml_signed = COALESCE($3, xml_signed),
		    status     = $4,
		    ticket     = COALESCE($5, ticket),
		    error_desc = $6,
		    receipt_at = $7,
		    updated_at = $8
		WHERE id = $1 AND status <> 'ACCEPTED'`
	tag, err := r.q.Exec(ctx, query,
		doc.ID,
		nullIfEmpty(doc.Hash),
		nullIfEmpty(doc.XMLSigned),
		doc.Status,
		nullIfEmpty(doc.Ticket),
		nullIfEmpty(doc.ErrorDesc),
		doc.ReceiptAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update document %s: %w", doc.ID, domain.ErrInvalidState)
	}
	return nil
}

// MarkVoided marca el documento como dado de baja, sin importar su estado.
func (r *DocumentRepo) MarkVoided(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE documents SET voided = true, voided_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark voided: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark voided %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete elimina un documento en DRAFT; sus líneas caen por ON DELETE CASCADE.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND status = 'DRAFT'`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete document %s: %w", id, domain.ErrInvalidState)
	}
	return nil
}

// ListPendingTickets documentos con ticket en SUBMITTED o IN_PROCESS, los más antiguos primero.
// issuerID vacío lista todos los emisores.
func (r *DocumentRepo) ListPendingTickets(ctx context.Context, issuerID string, limit int) ([]*entity.Document, error) {
	q := psql.Select(documentColumns...).From("documents").
		Where(squirrel.NotEq{"ticket": nil}).
		Where(squirrel.Eq{"status": []string{entity.StatusSubmitted, entity.StatusInProcess}}).
		OrderBy("updated_at ASC")
	if issuerID != "" {
		q = q.Where(squirrel.Eq{"issuer_id": issuerID})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []documentRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list pending tickets: %w", err)
	}
	out := make([]*entity.Document, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}
