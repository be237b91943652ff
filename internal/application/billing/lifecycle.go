package billing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	"github.com/jhoicas/facturador-sunat/pkg/logger"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

var tracer = otel.Tracer("facturador-sunat/billing")

// Outcome resultado de una operación del ciclo de vida.
// Success=false con Status persistido es un rechazo o un estado pendiente, no un error.
type Outcome struct {
	Success      bool
	Message      string
	Status       string
	TicketStatus string
}

// ToResponse mapea el resultado al DTO HTTP.
func (o Outcome) ToResponse() *dto.OutcomeResponse {
	return &dto.OutcomeResponse{
		Success:      o.Success,
		Message:      o.Message,
		Status:       o.Status,
		TicketStatus: o.TicketStatus,
	}
}

// LifecycleDeps dependencias del LifecycleManager. Notifier y Receipts son opcionales.
type LifecycleDeps struct {
	Documents repository.DocumentRepository
	Issuers   repository.IssuerRepository
	TxRunner  BillingTxRunner
	Signer    pkgsunat.Signer
	Packager  pkgsunat.Packager
	Bills     pkgsunat.BillService
	Notifier  Notifier
	Receipts  ReceiptReader
	Paths     Paths
	Log       zerolog.Logger
	Now       func() time.Time
}

// LifecycleManager orquesta el ciclo de envío a SUNAT:
//
//	DRAFT → firma → SIGNED → ZIP → sendBill → SUBMITTED → {ACCEPTED, REJECTED}
//	RA:  SIGNED → sendSummary → SUBMITTED(ticket) → getStatus → {ACCEPTED, IN_PROCESS, REJECTED}
//
// Cada operación es síncrona y reintentable por el llamador: el hash y el ticket
// persistidos evitan volver a firmar o a transmitir.
type LifecycleManager struct {
	documents repository.DocumentRepository
	issuers   repository.IssuerRepository
	txRunner  BillingTxRunner
	signer    pkgsunat.Signer
	packager  pkgsunat.Packager
	bills     pkgsunat.BillService
	notifier  Notifier
	receipts  ReceiptReader
	paths     Paths
	log       zerolog.Logger
	now       func() time.Time
	locks     *docLocks
}

// NewLifecycleManager construye el orquestador con todas sus dependencias.
func NewLifecycleManager(d LifecycleDeps) *LifecycleManager {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &LifecycleManager{
		documents: d.Documents,
		issuers:   d.Issuers,
		txRunner:  d.TxRunner,
		signer:    d.Signer,
		packager:  d.Packager,
		bills:     d.Bills,
		notifier:  d.Notifier,
		receipts:  d.Receipts,
		paths:     d.Paths,
		log:       d.Log,
		now:       now,
		locks:     newDocLocks(),
	}
}

// Sign firma el XML del comprobante y persiste hash y XML firmado (DRAFT → SIGNED).
// Si ya existe hash no se vuelve a firmar.
func (m *LifecycleManager) Sign(ctx context.Context, docID string) (Outcome, error) {
	ctx, span := m.start(ctx, "billing.sign", docID)
	defer span.End()

	release, err := m.acquire(docID)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	doc, issuer, err := m.load(ctx, docID)
	if err != nil {
		return Outcome{}, m.fail(span, "sign", docID, err)
	}
	if _, err := m.ensureSigned(ctx, doc, issuer); err != nil {
		return Outcome{}, m.fail(span, "sign", docID, err)
	}
	return outcomeFromDocument(doc), nil
}

// Submit envía una factura, boleta o nota de crédito con sendBill y registra el CDR.
// Un documento con decisión definitiva devuelve el resultado almacenado sin reenviar.
func (m *LifecycleManager) Submit(ctx context.Context, docID string) (Outcome, error) {
	ctx, span := m.start(ctx, "billing.submit", docID)
	defer span.End()

	release, err := m.acquire(docID)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	doc, issuer, err := m.load(ctx, docID)
	if err != nil {
		return Outcome{}, m.fail(span, "submit", docID, err)
	}
	if doc.Type == entity.DocTypeVoidSummary {
		return Outcome{}, fmt.Errorf("%w: las comunicaciones de baja se envían con void-summary", domain.ErrInvalidState)
	}
	if doc.IsTerminal() {
		return outcomeFromDocument(doc), nil
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Firma (omitida si el hash ya está persistido)
	// ═══════════════════════════════════════════════════════════════════════════
	signedPath, err := m.ensureSigned(ctx, doc, issuer)
	if err != nil {
		return Outcome{}, m.fail(span, "submit", docID, err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. ZIP + sendBill
	// ═══════════════════════════════════════════════════════════════════════════
	zipPath, err := m.packager.Pack(signedPath)
	if err != nil {
		return Outcome{}, m.fail(span, "submit", docID, err)
	}
	receipt, err := m.bills.SendBill(ctx, credentials(issuer), zipPath)
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			// Sin respuesta: el documento sigue firmado y el envío es reintentable.
			return Outcome{}, m.fail(span, "submit", docID, err)
		}
		// Hubo respuesta (Fault o malformada): queda SUBMITTED con el detalle.
		doc.Status = entity.StatusSubmitted
		doc.ErrorDesc = err.Error()
		doc.UpdatedAt = m.now()
		if uerr := m.documents.Update(ctx, doc); uerr != nil {
			m.log.Error().Err(uerr).Str("document_id", docID).Msg("no se pudo persistir SUBMITTED")
		}
		return Outcome{Success: false, Message: err.Error(), Status: doc.Status}, m.fail(span, "submit", docID, err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. CDR → estado definitivo
	// ═══════════════════════════════════════════════════════════════════════════
	now := m.now()
	doc.ReceiptAt = &now
	doc.UpdatedAt = now
	if receipt.Accepted() {
		doc.Status = entity.StatusAccepted
		doc.ErrorDesc = ""
	} else {
		doc.Status = entity.StatusRejected
		doc.ErrorDesc = receiptError(receipt)
	}
	// Una nota de crédito aceptada anula el comprobante que modifica.
	voidRef := receipt.Accepted() && doc.Type == entity.DocTypeCreditNote
	if err := m.finalize(ctx, doc, voidRef); err != nil {
		return Outcome{}, m.fail(span, "submit", docID, err)
	}

	out := outcomeFromDocument(doc)
	m.log.Info().
		Str("document_id", docID).
		Str("correlative", doc.Correlative()).
		Str("status", doc.Status).
		Str("response_code", receipt.ResponseCode).
		Msg("CDR recibido")
	m.notify(ctx, doc, out)
	return out, nil
}

// SubmitVoidance envía la comunicación de baja con sendSummary y consulta el ticket.
// Con un ticket ya persistido no se vuelve a firmar ni a transmitir: solo se consulta.
func (m *LifecycleManager) SubmitVoidance(ctx context.Context, docID string) (Outcome, error) {
	ctx, span := m.start(ctx, "billing.submit_voidance", docID)
	defer span.End()

	release, err := m.acquire(docID)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	doc, issuer, err := m.load(ctx, docID)
	if err != nil {
		return Outcome{}, m.fail(span, "void", docID, err)
	}
	if doc.Type != entity.DocTypeVoidSummary {
		return Outcome{}, fmt.Errorf("%w: %s no es una comunicación de baja", domain.ErrInvalidState, doc.Correlative())
	}
	if doc.IsTerminal() {
		return outcomeFromDocument(doc), nil
	}
	if doc.Ticket != "" {
		return m.poll(ctx, span, doc, issuer)
	}

	signedPath, err := m.ensureSigned(ctx, doc, issuer)
	if err != nil {
		return Outcome{}, m.fail(span, "void", docID, err)
	}
	zipPath, err := m.packager.Pack(signedPath)
	if err != nil {
		return Outcome{}, m.fail(span, "void", docID, err)
	}
	// Sin ticket no hay nada que consultar: cualquier error deja el documento SIGNED.
	ticket, err := m.bills.SendSummary(ctx, credentials(issuer), zipPath)
	if err != nil {
		return Outcome{}, m.fail(span, "void", docID, err)
	}

	// El ticket se persiste antes de consultar para que un reintento no retransmita.
	doc.Ticket = ticket
	doc.Status = entity.StatusSubmitted
	doc.ErrorDesc = ""
	doc.UpdatedAt = m.now()
	if err := m.documents.Update(ctx, doc); err != nil {
		return Outcome{}, m.fail(span, "void", docID, fmt.Errorf("persistir ticket %s: %w", ticket, err))
	}
	m.log.Info().Str("document_id", docID).Str("ticket", ticket).Msg("ticket de baja recibido")

	return m.poll(ctx, span, doc, issuer)
}

// Poll consulta el ticket persistido de una comunicación de baja.
func (m *LifecycleManager) Poll(ctx context.Context, docID string) (Outcome, error) {
	ctx, span := m.start(ctx, "billing.poll", docID)
	defer span.End()

	release, err := m.acquire(docID)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	doc, issuer, err := m.load(ctx, docID)
	if err != nil {
		return Outcome{}, m.fail(span, "poll", docID, err)
	}
	if doc.IsTerminal() {
		return outcomeFromDocument(doc), nil
	}
	if doc.Ticket == "" {
		return Outcome{}, fmt.Errorf("%w: %s no tiene ticket", domain.ErrInvalidState, doc.Correlative())
	}
	return m.poll(ctx, span, doc, issuer)
}

// PollPending consulta los tickets pendientes (SUBMITTED / IN_PROCESS) con concurrencia acotada.
// Los errores por documento se registran y se cuentan; no interrumpen la pasada.
func (m *LifecycleManager) PollPending(ctx context.Context, limit, concurrency int) (*dto.PollSummaryResponse, error) {
	ctx, span := tracer.Start(ctx, "billing.poll_pending", trace.WithAttributes(attribute.Int("poll.limit", limit)))
	defer span.End()

	docs, err := m.documents.ListPendingTickets(ctx, "", limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("listar tickets pendientes: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		summary dto.PollSummaryResponse
		g       errgroup.Group
	)
	g.SetLimit(concurrency)
	for _, d := range docs {
		id := d.ID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out, err := m.Poll(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			summary.Checked++
			switch {
			case err != nil:
				summary.Failed++
			case out.Status == entity.StatusAccepted:
				summary.Accepted++
			case out.Status == entity.StatusRejected:
				summary.Rejected++
			default:
				summary.InProcess++
			}
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("poll.checked", summary.Checked))
	return &summary, ctx.Err()
}

// Receipt devuelve el CDR archivado de un comprobante.
func (m *LifecycleManager) Receipt(ctx context.Context, docID string) ([]byte, error) {
	doc, err := m.documents.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc == nil || m.receipts == nil {
		return nil, domain.ErrNotFound
	}
	return m.receipts.Get(pkgsunat.ReceiptName(fileBase(doc.XMLFileName)))
}

// poll ejecuta getStatus sobre doc (el llamador ya tiene el bloqueo del documento).
func (m *LifecycleManager) poll(ctx context.Context, span trace.Span, doc *entity.Document, issuer *entity.Issuer) (Outcome, error) {
	status, err := m.bills.GetStatus(ctx, credentials(issuer), doc.Ticket, fileBase(doc.XMLFileName))
	if err != nil {
		// Sin estado interpretable no se modifica el documento.
		return Outcome{}, m.fail(span, "poll", doc.ID, err)
	}
	span.SetAttributes(attribute.String("sunat.status_code", status.Code))

	out := Outcome{TicketStatus: status.Code, Message: pkgsunat.TicketStatusMessage(status.Code)}
	now := m.now()
	doc.UpdatedAt = now

	switch status.Code {
	case pkgsunat.TicketStatusInProcess:
		doc.Status = entity.StatusInProcess
		if err := m.documents.Update(ctx, doc); err != nil {
			return Outcome{}, m.fail(span, "poll", doc.ID, err)
		}
		out.Status = doc.Status
		m.log.Info().Str("document_id", doc.ID).Str("ticket", doc.Ticket).Msg("baja en proceso")
		return out, nil

	case pkgsunat.TicketStatusAccepted:
		doc.Status = entity.StatusAccepted
		doc.ErrorDesc = ""
		doc.ReceiptAt = &now
		out.Success = true

	default:
		doc.Status = entity.StatusRejected
		doc.ReceiptAt = &now
		doc.ErrorDesc = out.Message
		if status.Receipt != nil && status.Receipt.Description != "" {
			doc.ErrorDesc = receiptError(status.Receipt)
		}
	}

	// La baja aceptada marca el comprobante referenciado aunque éste ya esté ACCEPTED.
	if err := m.finalize(ctx, doc, out.Success); err != nil {
		return Outcome{}, m.fail(span, "poll", doc.ID, err)
	}
	out.Status = doc.Status
	m.log.Info().
		Str("document_id", doc.ID).
		Str("ticket", doc.Ticket).
		Str("status_code", status.Code).
		Str("status", doc.Status).
		Msg("ticket de baja resuelto")
	m.notify(ctx, doc, out)
	return out, nil
}

// ensureSigned firma el XML si aún no hay hash y devuelve la ruta del XML firmado.
func (m *LifecycleManager) ensureSigned(ctx context.Context, doc *entity.Document, issuer *entity.Issuer) (string, error) {
	signedPath := filepath.Join(m.paths.SignedDir, filepath.Base(doc.XMLFileName))
	if doc.IsSigned() {
		if _, err := os.Stat(signedPath); err == nil {
			return signedPath, nil
		}
		if doc.XMLSigned != "" {
			if err := os.MkdirAll(m.paths.SignedDir, 0o755); err != nil {
				return "", fmt.Errorf("crear directorio de firmados: %w", err)
			}
			if err := os.WriteFile(signedPath, []byte(doc.XMLSigned), 0o644); err != nil {
				return "", fmt.Errorf("restaurar XML firmado: %w", err)
			}
			return signedPath, nil
		}
		dl := logger.Document(m.log, "sign", doc.ID)
		dl.Warn().Msg("hash persistido sin XML firmado; se vuelve a firmar")
	}

	xmlPath := filepath.Join(m.paths.XMLDir, doc.XMLFileName)
	res, err := m.signer.Sign(ctx, xmlPath, issuer.CertPath, issuer.CertPassword)
	if err != nil {
		return "", err
	}
	signed, err := os.ReadFile(res.SignedPath)
	if err != nil {
		return "", fmt.Errorf("leer XML firmado: %w", err)
	}

	doc.Hash = res.Hash
	doc.XMLSigned = string(signed)
	if doc.Status == entity.StatusDraft {
		doc.Status = entity.StatusSigned
	}
	doc.UpdatedAt = m.now()
	if err := m.documents.Update(ctx, doc); err != nil {
		return "", fmt.Errorf("persistir hash: %w", err)
	}
	m.log.Info().Str("document_id", doc.ID).Str("hash", res.Hash).Msg("XML firmado")
	return res.SignedPath, nil
}

// finalize persiste el estado definitivo y, si voidRef, marca el documento referenciado
// como anulado. Ambas escrituras van en la misma transacción.
func (m *LifecycleManager) finalize(ctx context.Context, doc *entity.Document, voidRef bool) error {
	return m.txRunner.RunBilling(ctx, func(
		_ repository.IssuerRepository,
		_ repository.CorrelativeRepository,
		documents repository.DocumentRepository,
	) error {
		if voidRef && doc.ReferenceID != "" {
			if err := documents.MarkVoided(ctx, doc.ReferenceID, doc.UpdatedAt); err != nil {
				return fmt.Errorf("anular documento referenciado %s: %w", doc.ReferenceID, err)
			}
		}
		return documents.Update(ctx, doc)
	})
}

func (m *LifecycleManager) load(ctx context.Context, docID string) (*entity.Document, *entity.Issuer, error) {
	doc, err := m.documents.GetByID(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, domain.ErrNotFound
	}
	issuer, err := m.issuers.GetByID(ctx, doc.IssuerID)
	if err != nil {
		return nil, nil, err
	}
	if issuer == nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnknownIssuer, doc.IssuerID)
	}
	return doc, issuer, nil
}

func (m *LifecycleManager) acquire(docID string) (func(), error) {
	if !m.locks.tryLock(docID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentBusy, docID)
	}
	return func() { m.locks.unlock(docID) }, nil
}

func (m *LifecycleManager) notify(ctx context.Context, doc *entity.Document, out Outcome) {
	if m.notifier == nil || !doc.IsTerminal() {
		return
	}
	if err := m.notifier.Notify(ctx, doc, out); err != nil {
		dl := logger.Document(m.log, "notify", doc.ID)
		dl.Warn().Err(err).Msg("notificación fallida")
	}
}

func (m *LifecycleManager) start(ctx context.Context, name, docID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("document.id", docID)))
}

func (m *LifecycleManager) fail(span trace.Span, op, docID string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	dl := logger.Document(m.log, op, docID)
	dl.Error().Err(err).Msg("operación de facturación fallida")
	return err
}

const unknownReceiptError = "Error no identificado"

func outcomeFromDocument(doc *entity.Document) Outcome {
	out := Outcome{Status: doc.Status}
	switch doc.Status {
	case entity.StatusAccepted:
		out.Success = true
		out.Message = "Comprobante " + doc.Correlative() + " ACEPTADO por SUNAT."
		if doc.Type == entity.DocTypeVoidSummary {
			out.Message = pkgsunat.TicketStatusMessage(pkgsunat.TicketStatusAccepted)
		}
	case entity.StatusRejected:
		out.Message = doc.ErrorDesc
	case entity.StatusInProcess:
		out.TicketStatus = pkgsunat.TicketStatusInProcess
		out.Message = pkgsunat.TicketStatusMessage(pkgsunat.TicketStatusInProcess)
	case entity.StatusSigned:
		out.Success = true
		out.Message = "XML firmado correctamente."
	case entity.StatusSubmitted:
		out.Message = "Enviado a SUNAT; respuesta pendiente."
		if doc.ErrorDesc != "" {
			out.Message = doc.ErrorDesc
		}
	default:
		out.Message = "Comprobante en borrador."
	}
	return out
}

// receiptError descripción de la constancia tal cual la envía SUNAT; el código va al log.
func receiptError(r *pkgsunat.Receipt) string {
	if strings.TrimSpace(r.Description) == "" {
		return unknownReceiptError
	}
	return r.Description
}

func credentials(issuer *entity.Issuer) pkgsunat.Credentials {
	return pkgsunat.Credentials{Username: issuer.SolUsername(), Password: issuer.SolPassword}
}

func fileBase(fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
}
