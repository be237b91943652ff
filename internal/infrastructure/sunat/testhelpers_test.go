package sunat_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// ── helpers compartidos ───────────────────────────────────────────────────────

const cdrTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"
  xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cac:DocumentResponse>
    <cac:Response>
      <cbc:ReferenceID>F001-00000001</cbc:ReferenceID>
      <cbc:ResponseCode>%s</cbc:ResponseCode>
      <cbc:Description>%s</cbc:Description>
    </cac:Response>
  </cac:DocumentResponse>
</ar:ApplicationResponse>`

// cdrZip arma un ZIP con una entrada name y el contenido dado.
func cdrZip(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func soapResponse(inner string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap-env:Header/><soap-env:Body>` + inner + `</soap-env:Body></soap-env:Envelope>`)
}

func soapFault(code, msg string) []byte {
	return soapResponse(`<soap-env:Fault><faultcode>` + code + `</faultcode><faultstring>` + msg + `</faultstring></soap-env:Fault>`)
}

// fakePoster devuelve una respuesta fija y guarda el último envelope.
type fakePoster struct {
	body []byte
	err  error
	sent [][]byte
}

func (f *fakePoster) Post(_ context.Context, envelope []byte) ([]byte, error) {
	f.sent = append(f.sent, envelope)
	return f.body, f.err
}

// memArchive ReceiptArchive en memoria; err simula un archivo bloqueado.
type memArchive struct {
	items map[string][]byte
	err   error
}

func (m *memArchive) Put(name string, xml []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.items == nil {
		m.items = map[string][]byte{}
	}
	m.items[name] = xml
	return nil
}
