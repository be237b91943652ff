package sunat

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// ReceiptArchive guarda una copia de cada CDR recibido.
type ReceiptArchive interface {
	Put(name string, xml []byte) error
}

// ReceiptExtractor decodifica el ZIP del CDR en memoria y luego deja copias: el ZIP temporal
// (se elimina al terminar), el XML en el directorio de CDR y el archivo histórico. Una vez
// decodificado, el CDR es la decisión de SUNAT: las fallas de esas copias solo se registran.
type ReceiptExtractor struct {
	dir     string
	archive ReceiptArchive
	log     zerolog.Logger
}

// NewReceiptExtractor archive puede ser nil.
func NewReceiptExtractor(dir string, archive ReceiptArchive, log zerolog.Logger) *ReceiptExtractor {
	return &ReceiptExtractor{dir: dir, archive: archive, log: log}
}

// Extract procesa el ZIP devuelto para baseName (nombre del comprobante sin extensión).
// Solo falla si el ZIP no contiene un XML legible.
func (x *ReceiptExtractor) Extract(baseName string, zipData []byte) (*pkgsunat.Receipt, error) {
	receiptName := pkgsunat.ReceiptName(baseName)
	xmlBytes, err := readReceiptEntry(zipData, receiptName+".xml")
	if err != nil {
		return nil, err
	}
	receipt := parseReceipt(xmlBytes)
	receipt.Path = x.keepFiles(receiptName, zipData, xmlBytes)

	if x.archive != nil {
		if err := x.archive.Put(receiptName, xmlBytes); err != nil {
			x.log.Warn().Err(err).
				Str("receipt", receiptName).
				Str("response_code", receipt.ResponseCode).
				Msg("no se pudo archivar el CDR")
		}
	}
	return receipt, nil
}

// keepFiles devuelve la ruta del XML escrito, o "" si no se pudo escribir.
func (x *ReceiptExtractor) keepFiles(receiptName string, zipData, xmlBytes []byte) string {
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		x.log.Warn().Err(err).Str("dir", x.dir).Msg("no se pudo crear el directorio de CDR")
		return ""
	}
	zipPath := filepath.Join(x.dir, receiptName+".zip")
	if err := os.WriteFile(zipPath, zipData, 0o644); err != nil {
		x.log.Warn().Err(err).Str("path", zipPath).Msg("no se pudo escribir el ZIP temporal del CDR")
	} else {
		defer func() {
			if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
				x.log.Warn().Err(err).Str("path", zipPath).Msg("no se pudo eliminar el ZIP temporal del CDR")
			}
		}()
	}

	xmlPath := filepath.Join(x.dir, receiptName+".xml")
	if err := os.WriteFile(xmlPath, xmlBytes, 0o644); err != nil {
		x.log.Warn().Err(err).Str("path", xmlPath).Msg("no se pudo guardar el XML del CDR")
		return ""
	}
	return xmlPath
}

// readReceiptEntry busca R-<nombre>.xml y, si no está, la primera entrada .xml del ZIP.
func readReceiptEntry(zipData []byte, want string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, fmt.Errorf("%w: CDR no es un ZIP válido: %v", domain.ErrMalformedResponse, err)
	}
	var entry *zip.File
	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		if strings.EqualFold(name, want) {
			entry = f
			break
		}
		if entry == nil && strings.EqualFold(filepath.Ext(name), ".xml") {
			entry = f
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: no se pudo encontrar el XML del CDR extraído", domain.ErrMalformedResponse)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: abrir %s: %v", domain.ErrMalformedResponse, entry.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: leer %s: %v", domain.ErrMalformedResponse, entry.Name, err)
	}
	return data, nil
}

// parseReceipt lee cbc:ResponseCode y cbc:Description. Un CDR ilegible queda con código vacío,
// que el ciclo de vida trata como rechazo.
func parseReceipt(xmlBytes []byte) *pkgsunat.Receipt {
	doc := parseXML(xmlBytes)
	code, _ := findText(doc, "ResponseCode")
	desc, _ := findText(doc, "Description")
	return &pkgsunat.Receipt{ResponseCode: code, Description: desc, XML: xmlBytes}
}
