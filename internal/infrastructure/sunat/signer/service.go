// Servicio de firma digital XMLDSig para comprobantes electrónicos SUNAT.
// Inyecta <ds:Signature Id="SignSUNAT"> en el primer <ext:ExtensionContent> vacío del XML.

package signer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/facturador-sunat/pkg/sunat"
)

var _ sunat.Signer = (*DigitalSignatureService)(nil)

// DigitalSignatureService firma XML en disco y escribe el resultado en signedDir.
type DigitalSignatureService struct {
	signedDir string
}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService(signedDir string) *DigitalSignatureService {
	return &DigitalSignatureService{signedDir: signedDir}
}

// Sign implementa pkg/sunat.Signer.
func (s *DigitalSignatureService) Sign(ctx context.Context, xmlPath, certPath, password string) (sunat.SignResult, error) {
	if err := ctx.Err(); err != nil {
		return sunat.SignResult{}, err
	}
	cert, err := LoadCertificate(certPath, password)
	if err != nil {
		return sunat.SignResult{}, err
	}
	priv := cert.PrivateKey.(*rsa.PrivateKey)

	xmlBytes, err := os.ReadFile(xmlPath)
	if err != nil {
		return sunat.SignResult{}, fmt.Errorf("sunat: el archivo XML no existe: %w", err)
	}
	if len(bytes.TrimSpace(xmlBytes)) == 0 {
		return sunat.SignResult{}, fmt.Errorf("sunat: XML vacío: %s", xmlPath)
	}

	// 1) Digest del documento sin firma (transformación enveloped).
	canonicalDoc, err := canonicalizeXML(xmlBytes)
	if err != nil {
		return sunat.SignResult{}, fmt.Errorf("sunat: canonicalizar XML: %w", err)
	}
	docDigest := sha256.Sum256(canonicalDoc)
	digestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canonicalizado y firmado con RSA-SHA256.
	signedInfoXML := buildSignedInfo(digestB64)
	canonicalSignedInfo, err := canonicalizeXML([]byte(signedInfoXML))
	if err != nil {
		return sunat.SignResult{}, fmt.Errorf("sunat: canonicalizar SignedInfo: %w", err)
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, signHash[:])
	if err != nil {
		return sunat.SignResult{}, fmt.Errorf("sunat: firmar SignedInfo: %w", err)
	}

	signatureXML := buildSignature(signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(cert.Certificate[0]))

	signed, err := injectSignature(xmlBytes, signatureXML)
	if err != nil {
		return sunat.SignResult{}, err
	}

	if err := os.MkdirAll(s.signedDir, 0o755); err != nil {
		return sunat.SignResult{}, fmt.Errorf("sunat: crear directorio de firmados: %w", err)
	}
	signedPath := filepath.Join(s.signedDir, filepath.Base(xmlPath))
	if err := os.WriteFile(signedPath, signed, 0o644); err != nil {
		return sunat.SignResult{}, fmt.Errorf("sunat: escribir XML firmado: %w", err)
	}
	return sunat.SignResult{SignedPath: signedPath, Hash: digestB64}, nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func buildSignedInfo(digestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + digestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignature(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="` + SignatureID + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

// injectSignature coloca la firma en el primer ext:ExtensionContent sin hijos.
func injectSignature(xmlBytes []byte, signatureXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sunat: parsear XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("sunat: documento sin raíz")
	}

	var target *etree.Element
	for _, ec := range doc.FindElements("//ExtensionContent") {
		if len(ec.ChildElements()) == 0 {
			target = ec
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("sunat: no se encontró un ext:ExtensionContent vacío para inyectar la firma")
	}

	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("sunat: parsear Signature: %w", err)
	}
	target.AddChild(sigDoc.Root())

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sunat: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}
