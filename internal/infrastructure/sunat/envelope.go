package sunat

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"

	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

const (
	nsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	nsService = "http://service.sunat.gob.pe"
	nsWSSE    = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
)

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName      xml.Name   `xml:"soapenv:Envelope"`
	XmlnsSoapEnv string     `xml:"xmlns:soapenv,attr"`
	XmlnsSer     string     `xml:"xmlns:ser,attr"`
	XmlnsWSSE    string     `xml:"xmlns:wsse,attr"`
	Header       soapHeader `xml:"soapenv:Header"`
	Body         soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security wsseSecurity `xml:"wsse:Security"`
}

type wsseSecurity struct {
	UsernameToken usernameToken `xml:"wsse:UsernameToken"`
}

type usernameToken struct {
	Username string `xml:"wsse:Username"`
	Password string `xml:"wsse:Password"`
}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type sendBillBody struct {
	XMLName     xml.Name `xml:"ser:sendBill"`
	FileName    string   `xml:"fileName"`
	ContentFile string   `xml:"contentFile"` // ZIP en Base64
}

type sendSummaryBody struct {
	XMLName     xml.Name `xml:"ser:sendSummary"`
	FileName    string   `xml:"fileName"`
	ContentFile string   `xml:"contentFile"`
}

type getStatusBody struct {
	XMLName xml.Name `xml:"ser:getStatus"`
	Ticket  string   `xml:"ticket"`
}

// ── Constructores ─────────────────────────────────────────────────────────────

// BuildSendBill envelope de ser:sendBill con el ZIP en Base64.
func BuildSendBill(cred pkgsunat.Credentials, zipName string, zipBytes []byte) ([]byte, error) {
	return marshalEnvelope(cred, &sendBillBody{
		FileName:    zipName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	})
}

// BuildSendSummary envelope de ser:sendSummary (resúmenes y comunicaciones de baja).
func BuildSendSummary(cred pkgsunat.Credentials, zipName string, zipBytes []byte) ([]byte, error) {
	return marshalEnvelope(cred, &sendSummaryBody{
		FileName:    zipName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	})
}

// BuildGetStatus envelope de ser:getStatus para un ticket.
func BuildGetStatus(cred pkgsunat.Credentials, ticket string) ([]byte, error) {
	return marshalEnvelope(cred, &getStatusBody{Ticket: ticket})
}

func marshalEnvelope(cred pkgsunat.Credentials, body interface{}) ([]byte, error) {
	env := soapEnvelope{
		XmlnsSoapEnv: nsSoapEnv,
		XmlnsSer:     nsService,
		XmlnsWSSE:    nsWSSE,
		Header: soapHeader{Security: wsseSecurity{UsernameToken: usernameToken{
			Username: cred.Username,
			Password: cred.Password,
		}}},
		Body: soapBody{Content: body},
	}
	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
