package sunat_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/sunat"
)

// ── Series ────────────────────────────────────────────────────────────────────

func TestValidateSeries(t *testing.T) {
	assert.NoError(t, sunat.ValidateSeries(entity.DocTypeInvoice, "F001"))
	assert.NoError(t, sunat.ValidateSeries(entity.DocTypeReceipt, "B001"))
	assert.NoError(t, sunat.ValidateSeries(entity.DocTypeCreditNote, "FC01"))
	assert.NoError(t, sunat.ValidateSeries(entity.DocTypeCreditNote, "B001"))
	assert.NoError(t, sunat.ValidateSeries(entity.DocTypeVoidSummary, "RA-20240115"))

	assert.Error(t, sunat.ValidateSeries(entity.DocTypeInvoice, "B001"), "una factura no puede usar serie B")
	assert.Error(t, sunat.ValidateSeries(entity.DocTypeReceipt, "F001"), "una boleta no puede usar serie F")
	assert.Error(t, sunat.ValidateSeries(entity.DocTypeInvoice, "F0001"), "la serie tiene 4 caracteres")
	assert.Error(t, sunat.ValidateSeries("99", "F001"), "tipo no soportado")
}

// ── Documento ─────────────────────────────────────────────────────────────────

func validInvoice() (*entity.Document, []*entity.DocumentLine) {
	doc := &entity.Document{
		IssuerID: "issuer-1",
		Type:     entity.DocTypeInvoice,
		Series:   "F001",
		Currency: "PEN",
		Subtotal: decimal.RequireFromString("150.00"),
		Tax:      decimal.RequireFromString("27.00"),
		Total:    decimal.RequireFromString("177.00"),
	}
	lines := []*entity.DocumentLine{
		{Description: "Servicio A", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("100.00"), Tax: decimal.RequireFromString("18.00"), Total: decimal.RequireFromString("100.00")},
		{Description: "Servicio B", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("25.00"), Tax: decimal.RequireFromString("9.00"), Total: decimal.RequireFromString("50.00")},
	}
	return doc, lines
}

func TestValidateDocument_Valido(t *testing.T) {
	doc, lines := validInvoice()
	require.NoError(t, sunat.ValidateDocument(doc, lines))
}

func TestValidateDocument_TotalesIncoherentes(t *testing.T) {
	doc, lines := validInvoice()
	doc.Total = decimal.RequireFromString("180.00")

	err := sunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sunat.ErrInvalidDocument))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "debe mapear a entrada inválida")
	assert.Contains(t, err.Error(), "total")
}

func TestValidateDocument_SinLineas(t *testing.T) {
	doc, _ := validInvoice()
	err := sunat.ValidateDocument(doc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "al menos una línea")
}

func TestValidateDocument_NotaCreditoSinReferencia(t *testing.T) {
	doc, lines := validInvoice()
	doc.Type = entity.DocTypeCreditNote
	err := sunat.ValidateDocument(doc, lines)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referencia")
}

func TestValidateDocument_BajaSinLineas(t *testing.T) {
	doc := &entity.Document{
		IssuerID:    "issuer-1",
		Type:        entity.DocTypeVoidSummary,
		Series:      "RA-20240115",
		ReferenceID: "doc-1",
	}
	assert.NoError(t, sunat.ValidateDocument(doc, nil), "la baja no requiere líneas")
}

func TestValidateDocument_Nil(t *testing.T) {
	assert.ErrorIs(t, sunat.ValidateDocument(nil, nil), sunat.ErrInvalidDocument)
}
