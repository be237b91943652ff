// Package notify implementa el puerto billing.Notifier.
// El envío real por correo o WhatsApp lo hace un servicio externo que consume estos eventos.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

var _ billing.Notifier = (*LogNotifier)(nil)

// LogNotifier registra cada estado definitivo como evento estructurado.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier construye el notificador.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify emite un evento "document.final" con el resultado.
func (n *LogNotifier) Notify(_ context.Context, doc *entity.Document, out billing.Outcome) error {
	n.log.Info().
		Str("event", "document.final").
		Str("document_id", doc.ID).
		Str("issuer_id", doc.IssuerID).
		Str("type", doc.Type).
		Str("correlative", doc.Correlative()).
		Str("status", out.Status).
		Bool("success", out.Success).
		Str("message", out.Message).
		Msg("comprobante con estado definitivo")
	return nil
}
