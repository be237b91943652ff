// Package sunat contiene catálogos, validaciones y puertos comunes para la
// facturación electrónica SUNAT (Perú), independientes de la infraestructura.
package sunat

// =============================================================================
// Catálogo 01 - Tipo de documento
// =============================================================================

const (
	DocTypeFactura       = "01"
	DocTypeBoleta        = "03"
	DocTypeNotaCredito   = "07"
	DocTypeResumenBajas  = "RA"
	SummaryIDDateLayout  = "20060102" // RA-YYYYMMDD
	CorrelativeSeparator = "-"
)

// =============================================================================
// Catálogo 02 - Monedas
// =============================================================================

const (
	CurrencyPEN = "PEN"
	CurrencyUSD = "USD"
)

// ValidCurrencyCodes monedas admitidas en comprobantes.
var ValidCurrencyCodes = map[string]bool{CurrencyPEN: true, CurrencyUSD: true}

// =============================================================================
// Respuestas del servicio billService
// =============================================================================

const (
	// ResponseCodeAccepted cbc:ResponseCode del CDR cuando el comprobante fue aceptado.
	ResponseCodeAccepted = "0"

	// statusCode de getStatus para tickets de resumen de bajas.
	TicketStatusAccepted  = "0"
	TicketStatusInProcess = "98"
	TicketStatusRejected  = "99"
)

// TicketStatusMessage texto para mostrar al usuario según el statusCode del ticket.
func TicketStatusMessage(code string) string {
	switch code {
	case TicketStatusAccepted:
		return "Baja ACEPTADA correctamente."
	case TicketStatusInProcess:
		return "Baja EN PROCESO. Verifique más tarde."
	case TicketStatusRejected:
		return "Baja RECHAZADA o con errores."
	default:
		return "Estado: " + code
	}
}

// FileBaseName nombre de archivo exigido por SUNAT: RUC-TIPO-SERIE-NUMERO.
// Para resúmenes de baja: RUC-RA-YYYYMMDD-N (la serie ya incluye RA-YYYYMMDD).
func FileBaseName(ruc, docType, series, number string) string {
	if docType == DocTypeResumenBajas {
		return ruc + "-" + series + "-" + number
	}
	return ruc + "-" + docType + "-" + series + "-" + number
}

// ReceiptName nombre del CDR devuelto por SUNAT para un archivo dado (prefijo R-).
func ReceiptName(baseName string) string {
	return "R-" + baseName
}
