package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	pkgjwt "github.com/jhoicas/facturador-sunat/pkg/jwt"
)

// DocumentService alta, consulta y borrado de comprobantes.
type DocumentService interface {
	CreateDocument(ctx context.Context, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error)
	DeleteDraft(ctx context.Context, id string) error
	PeekNext(ctx context.Context, series, issuerID string) (*dto.NextCorrelativeResponse, error)
}

// LifecycleService operaciones del ciclo de envío a SUNAT.
type LifecycleService interface {
	Sign(ctx context.Context, docID string) (billing.Outcome, error)
	Submit(ctx context.Context, docID string) (billing.Outcome, error)
	SubmitVoidance(ctx context.Context, docID string) (billing.Outcome, error)
	Poll(ctx context.Context, docID string) (billing.Outcome, error)
	PollPending(ctx context.Context, limit, concurrency int) (*dto.PollSummaryResponse, error)
	Receipt(ctx context.Context, docID string) ([]byte, error)
}

// DocumentHandler maneja las peticiones HTTP de comprobantes (protegido).
type DocumentHandler struct {
	docs            DocumentService
	lifecycle       LifecycleService
	pollConcurrency int
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(docs DocumentService, lifecycle LifecycleService, pollConcurrency int) *DocumentHandler {
	return &DocumentHandler{docs: docs, lifecycle: lifecycle, pollConcurrency: pollConcurrency}
}

// Create crea un comprobante en DRAFT con el siguiente correlativo libre.
// POST /api/documents
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if issuerID := GetIssuerID(c); GetRole(c) != pkgjwt.RoleAdmin {
		// Los usuarios de un emisor solo emiten a su nombre.
		if in.IssuerID != "" && in.IssuerID != issuerID {
			return writeError(c, domain.ErrForbidden)
		}
		in.IssuerID = issuerID
	}
	doc, err := h.docs.CreateDocument(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetByID estado, hash, ticket y error de un comprobante.
// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	doc, err := h.authorized(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(doc)
}

// Delete elimina un borrador.
// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	doc, err := h.authorized(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.docs.DeleteDraft(c.Context(), doc.ID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// NextNumber previsualiza el siguiente correlativo.
// GET /api/series/:series/next?issuer_id=
func (h *DocumentHandler) NextNumber(c *fiber.Ctx) error {
	issuerID := c.Query("issuer_id")
	if GetRole(c) != pkgjwt.RoleAdmin {
		issuerID = GetIssuerID(c)
	}
	next, err := h.docs.PeekNext(c.Context(), c.Params("series"), issuerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(next)
}

// Sign POST /api/documents/:id/sign
func (h *DocumentHandler) Sign(c *fiber.Ctx) error {
	return h.run(c, h.lifecycle.Sign)
}

// Submit POST /api/documents/:id/submit
func (h *DocumentHandler) Submit(c *fiber.Ctx) error {
	return h.run(c, h.lifecycle.Submit)
}

// SubmitVoidance POST /api/documents/:id/void-summary
func (h *DocumentHandler) SubmitVoidance(c *fiber.Ctx) error {
	return h.run(c, h.lifecycle.SubmitVoidance)
}

// Poll POST /api/documents/:id/poll
func (h *DocumentHandler) Poll(c *fiber.Ctx) error {
	return h.run(c, h.lifecycle.Poll)
}

// Receipt devuelve el CDR archivado.
// GET /api/documents/:id/receipt
func (h *DocumentHandler) Receipt(c *fiber.Ctx) error {
	doc, err := h.authorized(c)
	if err != nil {
		return writeError(c, err)
	}
	xml, err := h.lifecycle.Receipt(c.Context(), doc.ID)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	return c.Send(xml)
}

// PollPending consulta todos los tickets pendientes.
// POST /api/tickets/poll?limit=
func (h *DocumentHandler) PollPending(c *fiber.Ctx) error {
	var page dto.PageRequest
	page.Limit = c.QueryInt("limit", 0)
	page.DefaultPage()
	summary, err := h.lifecycle.PollPending(c.Context(), page.Limit, h.pollConcurrency)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}

func (h *DocumentHandler) run(c *fiber.Ctx, op func(context.Context, string) (billing.Outcome, error)) error {
	doc, err := h.authorized(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := op(c.Context(), doc.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out.ToResponse())
}

// authorized carga el documento y verifica que pertenezca al emisor del token.
func (h *DocumentHandler) authorized(c *fiber.Ctx) (*dto.DocumentResponse, error) {
	id := c.Params("id")
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	doc, err := h.docs.GetDocument(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if GetRole(c) != pkgjwt.RoleAdmin && doc.IssuerID != GetIssuerID(c) {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}
