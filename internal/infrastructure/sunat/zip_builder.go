// Package sunat implementa el cliente del web service billService de SUNAT:
// empaquetado ZIP, envelopes SOAP, transporte HTTPS e interpretación de respuestas.
package sunat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

var _ pkgsunat.Packager = (*ZipBuilder)(nil)

// ZipBuilder crea el ZIP que exige SUNAT: una sola entrada con el nombre del XML,
// y el archivo <nombre>.zip junto al XML firmado.
type ZipBuilder struct{}

// NewZipBuilder crea el empaquetador.
func NewZipBuilder() *ZipBuilder { return &ZipBuilder{} }

// Pack empaqueta signedXMLPath y devuelve la ruta del ZIP. Si el ZIP ya existe se sobrescribe.
func (z *ZipBuilder) Pack(signedXMLPath string) (string, error) {
	src, err := os.Open(signedXMLPath)
	if err != nil {
		return "", fmt.Errorf("%w: abrir %s: %v", domain.ErrPackaging, signedXMLPath, err)
	}
	defer src.Close()

	entryName := filepath.Base(signedXMLPath)
	zipPath := filepath.Join(filepath.Dir(signedXMLPath), strings.TrimSuffix(entryName, filepath.Ext(entryName))+".zip")

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("%w: no se pudo crear el archivo ZIP en %s: %v", domain.ErrPackaging, zipPath, err)
	}
	zw := zip.NewWriter(out)

	fw, err := zw.Create(entryName)
	if err == nil {
		_, err = io.Copy(fw, src)
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(zipPath)
		return "", fmt.Errorf("%w: escribir %s: %v", domain.ErrPackaging, zipPath, err)
	}
	return zipPath, nil
}
