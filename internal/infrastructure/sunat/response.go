package sunat

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

// parseXML lee el cuerpo en modo permisivo. Devuelve nil si no es XML; para el intérprete
// un documento ilegible equivale a "elemento no encontrado".
func parseXML(body []byte) *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(bytes.TrimSpace(body)); err != nil {
		return nil
	}
	if doc.Root() == nil {
		return nil
	}
	return doc
}

// charsetReader SUNAT responde en UTF-8 pero algunos CDR declaran ISO-8859-1.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("charset %q no soportado", label)
}

// findText busca el primer elemento con ese nombre local, sin importar el prefijo.
func findText(doc *etree.Document, tag string) (string, bool) {
	if doc == nil {
		return "", false
	}
	el := doc.FindElement("//" + tag)
	if el == nil {
		return "", false
	}
	return strings.TrimSpace(el.Text()), true
}

// faultFrom devuelve el SOAP Fault si la respuesta trae faultcode o faultstring.
func faultFrom(doc *etree.Document) *domain.FaultError {
	code, hasCode := findText(doc, "faultcode")
	msg, hasMsg := findText(doc, "faultstring")
	if !hasCode && !hasMsg {
		return nil
	}
	if code == "" {
		code = "Desconocido"
	}
	if msg == "" {
		msg = "Error no identificado"
	}
	return &domain.FaultError{Code: code, Message: msg}
}

// looksLikeXML el cuerpo tiene al menos un '<'.
func looksLikeXML(body []byte) bool {
	return bytes.IndexByte(body, '<') >= 0
}
