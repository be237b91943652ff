package signer_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/infrastructure/sunat/signer"
)

const unsignedInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
  xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2">
  <ext:UBLExtensions>
    <ext:UBLExtension>
      <ext:ExtensionContent></ext:ExtensionContent>
    </ext:UBLExtension>
  </ext:UBLExtensions>
  <cbc:UBLVersionID>2.1</cbc:UBLVersionID>
  <cbc:ID>F001-00000001</cbc:ID>
</Invoice>`

// writeTestPEM genera un certificado autofirmado RSA con su llave en un único PEM.
func writeTestPEM(t *testing.T, dir string) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(20131312955),
		Subject:      pkix.Name{CommonName: "EMPRESA DE PRUEBA SAC", Country: []string{"PE"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(dir, "certificado.pem")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, pem.Encode(f, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	return path
}

func writeUnsigned(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "20131312955-01-F001-00000001.xml")
	require.NoError(t, os.WriteFile(path, []byte(unsignedInvoice), 0o644))
	return path
}

func TestSign_InyectaFirmaYDevuelveHash(t *testing.T) {
	dir := t.TempDir()
	signedDir := filepath.Join(dir, "firmados")
	certPath := writeTestPEM(t, dir)
	xmlPath := writeUnsigned(t, dir)

	svc := signer.NewDigitalSignatureService(signedDir)
	res, err := svc.Sign(context.Background(), xmlPath, certPath, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(signedDir, "20131312955-01-F001-00000001.xml"), res.SignedPath)
	assert.NotEmpty(t, res.Hash)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(res.SignedPath))

	sig := doc.FindElement("//ExtensionContent/Signature")
	require.NotNil(t, sig, "ds:Signature debe quedar dentro de ext:ExtensionContent")
	assert.Equal(t, signer.SignatureID, sig.SelectAttrValue("Id", ""))

	digest := sig.FindElement(".//DigestValue")
	require.NotNil(t, digest)
	assert.Equal(t, res.Hash, digest.Text(), "el hash devuelto es el DigestValue")

	sigValue, err := base64.StdEncoding.DecodeString(sig.FindElement(".//SignatureValue").Text())
	require.NoError(t, err)
	assert.Len(t, sigValue, 256, "RSA 2048 produce una firma de 256 bytes")
}

func TestSign_Determinista(t *testing.T) {
	dir := t.TempDir()
	certPath := writeTestPEM(t, dir)
	xmlPath := writeUnsigned(t, dir)
	svc := signer.NewDigitalSignatureService(filepath.Join(dir, "firmados"))

	r1, err := svc.Sign(context.Background(), xmlPath, certPath, "")
	require.NoError(t, err)
	r2, err := svc.Sign(context.Background(), xmlPath, certPath, "")
	require.NoError(t, err)
	assert.Equal(t, r1.Hash, r2.Hash, "el mismo XML produce el mismo DigestValue")
}

func TestSign_CertificadoInexistente(t *testing.T) {
	dir := t.TempDir()
	xmlPath := writeUnsigned(t, dir)
	svc := signer.NewDigitalSignatureService(dir)

	_, err := svc.Sign(context.Background(), xmlPath, filepath.Join(dir, "no-existe.pfx"), "123456")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration, "certificado ausente es error de configuración")
	assert.ErrorIs(t, err, domain.ErrCertificate)
}

func TestSign_CertificadoIlegible(t *testing.T) {
	dir := t.TempDir()
	xmlPath := writeUnsigned(t, dir)
	bad := filepath.Join(dir, "corrupto.p12")
	require.NoError(t, os.WriteFile(bad, []byte("no es un p12"), 0o600))

	_, err := signer.NewDigitalSignatureService(dir).Sign(context.Background(), xmlPath, bad, "123456")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSign_SinExtensionContentVacio(t *testing.T) {
	dir := t.TempDir()
	certPath := writeTestPEM(t, dir)
	xmlPath := filepath.Join(dir, "sin-ext.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte(`<Invoice><ID>1</ID></Invoice>`), 0o644))

	_, err := signer.NewDigitalSignatureService(dir).Sign(context.Background(), xmlPath, certPath, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConfiguration)
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	cert, err := signer.LoadCertificate(writeTestPEM(t, dir), "")
	require.NoError(t, err)

	info, err := signer.Describe(cert)
	require.NoError(t, err)
	assert.Contains(t, info.Subject, "EMPRESA DE PRUEBA SAC")
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(time.Now().Add(48*time.Hour)))
}
