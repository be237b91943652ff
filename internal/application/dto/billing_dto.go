package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateDocumentRequest body para POST /api/documents.
// El número no se envía: lo asigna el asignador de correlativos.
type CreateDocumentRequest struct {
	IssuerID    string                `json:"issuer_id"`
	Type        string                `json:"type"`   // 01, 03, 07, RA
	Series      string                `json:"series"` // F001, B001, RA-YYYYMMDD
	IssueDate   string                `json:"issue_date,omitempty"` // YYYY-MM-DD; vacío = hoy
	Currency    string                `json:"currency,omitempty"`   // PEN por defecto
	Subtotal    decimal.Decimal       `json:"subtotal"`
	Tax         decimal.Decimal       `json:"tax"`
	Total       decimal.Decimal       `json:"total"`
	ReferenceID string                `json:"reference_id,omitempty"`
	XMLFileName string                `json:"xml_file_name,omitempty"` // opcional; por defecto RUC-TIPO-SERIE-NUMERO.xml
	Lines       []DocumentLineRequest `json:"lines"`
}

// DocumentLineRequest línea de detalle.
type DocumentLineRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// DocumentResponse comprobante para GET /api/documents/:id.
type DocumentResponse struct {
	ID          string                 `json:"id"`
	IssuerID    string                 `json:"issuer_id"`
	Type        string                 `json:"type"`
	Series      string                 `json:"series"`
	Number      string                 `json:"number"`
	Correlative string                 `json:"correlative"`
	IssueDate   string                 `json:"issue_date"`
	Currency    string                 `json:"currency"`
	Subtotal    decimal.Decimal        `json:"subtotal"`
	Tax         decimal.Decimal        `json:"tax"`
	Total       decimal.Decimal        `json:"total"`
	ReferenceID string                 `json:"reference_id,omitempty"`
	XMLFileName string                 `json:"xml_file_name"`
	Hash        string                 `json:"hash,omitempty"`
	Status      string                 `json:"status"` // DRAFT|SIGNED|SUBMITTED|ACCEPTED|REJECTED|IN_PROCESS
	Ticket      string                 `json:"ticket,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ReceiptAt   *time.Time             `json:"receipt_at,omitempty"`
	Voided      bool                   `json:"voided"`
	VoidedAt    *time.Time             `json:"voided_at,omitempty"`
	Lines       []DocumentLineResponse `json:"lines,omitempty"`
}

// DocumentLineResponse línea en la respuesta.
type DocumentLineResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// OutcomeResponse resultado de firmar, enviar o consultar un comprobante.
// success=false con status persistido indica un rechazo de SUNAT, no un error del sistema.
type OutcomeResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Status       string `json:"status"`
	TicketStatus string `json:"ticket_status,omitempty"` // 0, 98, 99
}

// NextCorrelativeResponse vista previa del siguiente número (sin reservarlo).
type NextCorrelativeResponse struct {
	IssuerID string `json:"issuer_id"`
	Series   string `json:"series"`
	Number   string `json:"number"`
}

// PollSummaryResponse resumen de una pasada del poller de tickets.
type PollSummaryResponse struct {
	Checked   int `json:"checked"`
	Accepted  int `json:"accepted"`
	Rejected  int `json:"rejected"`
	InProcess int `json:"in_process"`
	Failed    int `json:"failed"`
}
