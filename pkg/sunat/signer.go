// Package sunat: interfaz para firma digital de comprobantes XML (XMLDSig enveloped, SUNAT).

package sunat

import "context"

// SignResult resultado de firmar un XML en disco.
type SignResult struct {
	SignedPath string // Ruta del XML firmado (mismo nombre base, en el directorio de firmados)
	Hash       string // DigestValue en base64; se imprime en la representación del comprobante
}

// Signer firma un XML de comprobante y lo escribe con el nodo ds:Signature dentro del
// primer ext:ExtensionContent vacío.
type Signer interface {
	// Sign falla con un error que envuelve domain.ErrConfiguration si el certificado
	// no existe, no se puede leer o la contraseña es incorrecta.
	Sign(ctx context.Context, xmlPath, certPath, password string) (SignResult, error)
}
