// Carga de certificado desde .p12/.pfx (PKCS#12) o PEM combinado (certificado + llave).

package signer

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

// LoadCertificate elige el formato por extensión. Cualquier falla envuelve domain.ErrCertificate.
func LoadCertificate(path, password string) (tls.Certificate, error) {
	if path == "" {
		return tls.Certificate{}, fmt.Errorf("%w: ruta vacía", domain.ErrCertificate)
	}
	if _, err := os.Stat(path); err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: no existe el certificado %s: %v", domain.ErrCertificate, path, err)
	}
	var (
		cert tls.Certificate
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		cert, err = LoadFromP12(path, password)
	default:
		cert, err = LoadFromPEM(path)
	}
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %v", domain.ErrCertificate, err)
	}
	if _, ok := cert.PrivateKey.(*rsa.PrivateKey); !ok {
		return tls.Certificate{}, fmt.Errorf("%w: el certificado debe incluir llave privada RSA", domain.ErrCertificate)
	}
	return cert, nil
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadFromPEM carga certificado y llave desde un mismo archivo PEM.
func LoadFromPEM(path string) (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(path, path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("parsear certificado: %w", err)
		}
		cert.Leaf = leaf
	}
	return cert, nil
}

// Info resumen del certificado para diagnóstico.
type Info struct {
	Subject   string
	Issuer    string
	Serial    string
	NotBefore time.Time
	NotAfter  time.Time
}

// Expired indica si el certificado venció respecto de now.
func (i Info) Expired(now time.Time) bool {
	return now.After(i.NotAfter)
}

// Describe devuelve los datos principales del certificado hoja.
func Describe(cert tls.Certificate) (Info, error) {
	leaf := cert.Leaf
	if leaf == nil {
		if len(cert.Certificate) == 0 {
			return Info{}, fmt.Errorf("%w: certificado vacío", domain.ErrCertificate)
		}
		var err error
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return Info{}, fmt.Errorf("%w: %v", domain.ErrCertificate, err)
		}
	}
	return Info{
		Subject:   leaf.Subject.String(),
		Issuer:    leaf.Issuer.String(),
		Serial:    leaf.SerialNumber.Text(16),
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
	}, nil
}
