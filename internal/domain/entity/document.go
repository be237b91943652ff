package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de comprobante (catálogo 01 SUNAT) y resumen de bajas.
const (
	DocTypeInvoice     = "01" // Factura
	DocTypeReceipt     = "03" // Boleta de venta
	DocTypeCreditNote  = "07" // Nota de crédito
	DocTypeVoidSummary = "RA" // Comunicación de baja
)

// Estados del documento frente a SUNAT.
const (
	StatusDraft     = "DRAFT"      // Creado con correlativo asignado, sin firma
	StatusSigned    = "SIGNED"     // XML firmado y hash persistido
	StatusSubmitted = "SUBMITTED"  // Transmitido; respuesta pendiente o ticket emitido
	StatusAccepted  = "ACCEPTED"   // CDR con código 0
	StatusRejected  = "REJECTED"   // CDR con código distinto de 0, o baja rechazada
	StatusInProcess = "IN_PROCESS" // Baja con ticket en proceso (código 98); se vuelve a consultar
)

// Document comprobante electrónico bajo control del ciclo de vida.
type Document struct {
	ID          string
	IssuerID    string
	Type        string
	Series      string
	Number      string // 8 dígitos con ceros a la izquierda
	IssueDate   time.Time
	Currency    string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	ReferenceID string // Documento modificado (nota de crédito / baja)
	XMLFileName string // Nombre del XML sin firmar producido por la capa de plantillas
	Hash        string // DigestValue del XML firmado; vacío hasta firmar
	XMLSigned   string
	Status      string
	Ticket      string // Solo operaciones asíncronas (resumen de bajas)
	ErrorDesc   string
	ReceiptAt   *time.Time // Fecha del CDR
	Voided      bool
	VoidedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Correlative devuelve la serie-número impresa (ej: F001-00000012).
func (d *Document) Correlative() string {
	return d.Series + "-" + d.Number
}

// IsTerminal indica si el documento ya tiene una decisión definitiva de SUNAT.
func (d *Document) IsTerminal() bool {
	return d.Status == StatusAccepted || d.Status == StatusRejected
}

// IsSigned indica si ya existe un hash persistido.
func (d *Document) IsSigned() bool {
	return d.Hash != ""
}

// RequiresReference indica si el tipo de documento modifica otro comprobante.
func RequiresReference(docType string) bool {
	return docType == DocTypeCreditNote || docType == DocTypeVoidSummary
}
