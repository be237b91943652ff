package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
)

// writeError traduce la taxonomía de errores del dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var fault *domain.FaultError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autenticado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrDocumentBusy):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DOCUMENT_BUSY", Message: err.Error()})
	case errors.Is(err, domain.ErrLockTimeout):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrConfiguration):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CONFIGURATION", Message: err.Error()})
	case errors.As(err, &fault):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SUNAT_FAULT", Message: fault.Error()})
	case errors.Is(err, domain.ErrTransport):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SUNAT_UNREACHABLE", Message: err.Error()})
	case errors.Is(err, domain.ErrMalformedResponse):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SUNAT_MALFORMED", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
