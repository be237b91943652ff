package sunat

import "context"

// Credentials UsernameToken de WS-Security: Username = RUC + usuario SOL.
type Credentials struct {
	Username string
	Password string
}

// Receipt constancia de recepción (CDR) ya extraída del ZIP devuelto por SUNAT.
type Receipt struct {
	ResponseCode string // cbc:ResponseCode; "0" = aceptado
	Description  string // cbc:Description
	XML          []byte
	Path         string // R-<nombre>.xml en el directorio de CDR
}

// Accepted indica si el CDR declara el comprobante como aceptado.
func (r *Receipt) Accepted() bool {
	return r != nil && r.ResponseCode == ResponseCodeAccepted
}

// TicketStatus resultado de getStatus para un ticket de resumen.
type TicketStatus struct {
	Code    string   // statusCode: 0, 98, 99 u otro
	Receipt *Receipt // CDR embebido en <content>, si vino
}

// BillService operaciones del web service billService de SUNAT.
//
// Los errores siguen la taxonomía del dominio: transporte (reintentable), SOAP Fault
// (*domain.FaultError) y respuesta malformada. Un rechazo de SUNAT no es un error:
// viaja en Receipt.ResponseCode o TicketStatus.Code.
type BillService interface {
	// SendBill envía el ZIP de factura, boleta o nota y devuelve el CDR.
	SendBill(ctx context.Context, cred Credentials, zipPath string) (*Receipt, error)
	// SendSummary envía el ZIP de un resumen y devuelve el ticket.
	SendSummary(ctx context.Context, cred Credentials, zipPath string) (string, error)
	// GetStatus consulta el ticket. baseName nombra el CDR (R-<baseName>.xml).
	GetStatus(ctx context.Context, cred Credentials, ticket, baseName string) (*TicketStatus, error)
}

// Packager empaqueta un XML firmado en un ZIP de una sola entrada.
type Packager interface {
	Pack(signedXMLPath string) (string, error)
}
