package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Taxonomía de fallos del ciclo de envío a SUNAT.
var (
	// ErrConfiguration: certificado ausente o ilegible, emisor desconocido. No reintentable sin operador.
	ErrConfiguration = errors.New("error de configuración")
	// ErrUnknownIssuer el emisor referenciado no existe.
	ErrUnknownIssuer = fmt.Errorf("%w: emisor no encontrado", ErrConfiguration)
	// ErrCertificate el certificado digital no se pudo leer o descifrar.
	ErrCertificate = fmt.Errorf("%w: certificado digital", ErrConfiguration)

	// ErrTransport fallo de red, TLS o timeout. Reintentable.
	ErrTransport = errors.New("error de transporte")
	// ErrProtocolFault SOAP Fault bien formado (credenciales, envelope mal formado, servicio caído).
	ErrProtocolFault = errors.New("fault SOAP de SUNAT")
	// ErrMalformedResponse la respuesta no tiene la forma esperada del protocolo.
	ErrMalformedResponse = errors.New("respuesta inválida de SUNAT")
	// ErrPackaging no se pudo crear el ZIP del comprobante.
	ErrPackaging = errors.New("error al empaquetar el comprobante")

	// ErrLockTimeout no se obtuvo el bloqueo de correlativos dentro del timeout de la transacción.
	ErrLockTimeout = errors.New("timeout esperando bloqueo de correlativos")
	// ErrInvalidState la operación no aplica al estado actual del documento.
	ErrInvalidState = errors.New("estado del documento no permite la operación")
	// ErrDocumentBusy otra operación está en curso para el mismo documento.
	ErrDocumentBusy = errors.New("documento en proceso por otra operación")
)

// FaultError detalle de un SOAP Fault devuelto por SUNAT.
type FaultError struct {
	Code    string
	Message string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("Error SUNAT %s: %s", e.Code, e.Message)
}

// Unwrap permite errors.Is(err, ErrProtocolFault).
func (e *FaultError) Unwrap() error { return ErrProtocolFault }
