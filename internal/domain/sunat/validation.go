package sunat

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// ErrInvalidDocument agrupa errores de validación de comprobante.
var ErrInvalidDocument = fmt.Errorf("%w: comprobante inválido para SUNAT", domain.ErrInvalidInput)

var (
	invoiceSeries = regexp.MustCompile(`^F[A-Z0-9]{3}$`)
	receiptSeries = regexp.MustCompile(`^B[A-Z0-9]{3}$`)
	summarySeries = regexp.MustCompile(`^RA-\d{8}$`)
)

// ValidateSeries verifica la forma de la serie según el tipo de comprobante.
// Facturas usan F###, boletas B###; las notas de crédito siguen la serie del documento
// que modifican (F o B) y las comunicaciones de baja usan el identificador RA-YYYYMMDD.
func ValidateSeries(docType, series string) error {
	switch docType {
	case entity.DocTypeInvoice:
		if invoiceSeries.MatchString(series) {
			return nil
		}
	case entity.DocTypeReceipt:
		if receiptSeries.MatchString(series) {
			return nil
		}
	case entity.DocTypeCreditNote:
		if invoiceSeries.MatchString(series) || receiptSeries.MatchString(series) {
			return nil
		}
	case entity.DocTypeVoidSummary:
		if summarySeries.MatchString(series) {
			return nil
		}
	default:
		return fmt.Errorf("%w: tipo de comprobante %q no soportado", ErrInvalidDocument, docType)
	}
	return fmt.Errorf("%w: serie %q no corresponde al tipo %s", ErrInvalidDocument, series, docType)
}

// ValidateDocument valida cabecera y líneas antes de asignar correlativo.
// Comprueba que subtotal, IGV y total coincidan con la suma de las líneas.
func ValidateDocument(doc *entity.Document, lines []*entity.DocumentLine) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", ErrInvalidDocument)
	}
	var errs []error

	if err := ValidateSeries(doc.Type, doc.Series); err != nil {
		errs = append(errs, err)
	}
	if doc.IssuerID == "" {
		errs = append(errs, errors.New("issuer_id es obligatorio"))
	}
	if entity.RequiresReference(doc.Type) && doc.ReferenceID == "" {
		errs = append(errs, fmt.Errorf("el tipo %s requiere documento de referencia", doc.Type))
	}
	if !entity.RequiresReference(doc.Type) && doc.ReferenceID != "" {
		errs = append(errs, fmt.Errorf("el tipo %s no admite documento de referencia", doc.Type))
	}
	if doc.Currency != "" && !pkgsunat.ValidCurrencyCodes[doc.Currency] {
		errs = append(errs, fmt.Errorf("moneda %q no soportada", doc.Currency))
	}

	// La comunicación de baja no lleva detalle valorizado.
	if doc.Type != entity.DocTypeVoidSummary {
		if len(lines) == 0 {
			errs = append(errs, errors.New("el comprobante debe tener al menos una línea"))
		} else {
			errs = append(errs, validateTotals(doc, lines)...)
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidDocument}, errs...)...)
	}
	return nil
}

func validateTotals(doc *entity.Document, lines []*entity.DocumentLine) []error {
	var errs []error
	var sumSubtotal, sumTax decimal.Decimal
	for i, l := range lines {
		if !l.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: cantidad debe ser mayor a cero", i+1))
		}
		if l.UnitPrice.IsNegative() || l.Tax.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: montos negativos", i+1))
		}
		expected := l.Quantity.Mul(l.UnitPrice).Round(2)
		if !l.Total.Round(2).Equal(expected) {
			errs = append(errs, fmt.Errorf("línea %d: total (%s) no coincide con cantidad x precio (%s)", i+1, l.Total.String(), expected.String()))
		}
		sumSubtotal = sumSubtotal.Add(l.Total)
		sumTax = sumTax.Add(l.Tax)
	}
	sumSubtotal = sumSubtotal.Round(2)
	sumTax = sumTax.Round(2)
	if !doc.Subtotal.Round(2).Equal(sumSubtotal) {
		errs = append(errs, fmt.Errorf("subtotal (%s) no coincide con la suma de las líneas (%s)", doc.Subtotal.String(), sumSubtotal.String()))
	}
	if !doc.Tax.Round(2).Equal(sumTax) {
		errs = append(errs, fmt.Errorf("IGV (%s) no coincide con la suma de impuestos por línea (%s)", doc.Tax.String(), sumTax.String()))
	}
	expectedTotal := sumSubtotal.Add(sumTax)
	if !doc.Total.Round(2).Equal(expectedTotal) {
		errs = append(errs, fmt.Errorf("total (%s) no coincide con subtotal + IGV (%s)", doc.Total.String(), expectedTotal.String()))
	}
	return errs
}
