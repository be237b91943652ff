package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	pkgjwt "github.com/jhoicas/facturador-sunat/pkg/jwt"
)

// IssuerHandler alta y consulta de emisores.
type IssuerHandler struct {
	uc *billing.IssuerUseCase
}

// NewIssuerHandler construye el handler.
func NewIssuerHandler(uc *billing.IssuerUseCase) *IssuerHandler {
	return &IssuerHandler{uc: uc}
}

// Create registra un emisor (solo admin).
// POST /api/issuers
func (h *IssuerHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateIssuerRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	issuer, err := h.uc.Create(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(issuer)
}

// GetByID GET /api/issuers/:id
func (h *IssuerHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if GetRole(c) != pkgjwt.RoleAdmin && id != GetIssuerID(c) {
		return writeError(c, domain.ErrNotFound)
	}
	issuer, err := h.uc.GetByID(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(issuer)
}
