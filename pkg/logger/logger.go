// Package logger centraliza el logging estructurado del facturador: un logger raíz por
// proceso (api, poller) y subloggers por componente y por comprobante.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Campos comunes. Los dashboards filtran por estos nombres.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldOp         = "op"
	FieldDocumentID = "document_id"
	FieldIssuerID   = "issuer_id"
	FieldTicket     = "ticket"
)

// Config opciones para el logger.
type Config struct {
	Env     string // development -> consola legible; otro -> JSON
	Level   string // trace, debug, info, warn, error
	Service string // facturador-sunat, facturador-poller...
	// Output reemplaza stdout (tests).
	Output io.Writer
}

// Logger logger raíz del proceso.
type Logger struct {
	zl zerolog.Logger
}

// New crea el logger raíz y lo instala como logger global de zerolog.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	if cfg.Output != nil {
		w = cfg.Output
	} else if cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str(FieldService, cfg.Service)
	}
	zl := ctx.Logger()
	log.Logger = zl
	return &Logger{zl: zl}
}

// parseLevel nivel desconocido o vacío -> info.
func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// Component sublogger con el campo "component" fijo (lifecycle, sunat, notify, documents).
// Es lo que reciben los constructores de cada capa.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zl.With().Str(FieldComponent, name).Logger()
}

// Document sublogger para una operación sobre un comprobante.
func Document(base zerolog.Logger, op, documentID string) zerolog.Logger {
	return base.With().Str(FieldOp, op).Str(FieldDocumentID, documentID).Logger()
}

// Nop logger descartable para tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}
