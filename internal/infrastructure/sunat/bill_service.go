package sunat

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/domain"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

var _ pkgsunat.BillService = (*BillService)(nil)

// Poster transporte de envelopes; *SOAPClient lo implementa.
type Poster interface {
	Post(ctx context.Context, envelope []byte) ([]byte, error)
}

// BillService combina envelope, transporte e intérprete de respuestas.
type BillService struct {
	client   Poster
	receipts *ReceiptExtractor
	log      zerolog.Logger
}

// NewBillService construye el servicio.
func NewBillService(client Poster, receipts *ReceiptExtractor, log zerolog.Logger) *BillService {
	return &BillService{client: client, receipts: receipts, log: log}
}

// SendBill envía el ZIP y devuelve el CDR contenido en applicationResponse.
func (s *BillService) SendBill(ctx context.Context, cred pkgsunat.Credentials, zipPath string) (*pkgsunat.Receipt, error) {
	zipName, zipBytes, err := readZip(zipPath)
	if err != nil {
		return nil, err
	}
	env, err := BuildSendBill(cred, zipName, zipBytes)
	if err != nil {
		return nil, err
	}
	body, err := s.client.Post(ctx, env)
	if err != nil {
		return nil, err
	}

	doc := parseXML(body)
	if appResp, ok := findText(doc, "applicationResponse"); ok && appResp != "" {
		cdr, err := decodeBase64(appResp)
		if err != nil {
			return nil, err
		}
		return s.receipts.Extract(baseName(zipName), cdr)
	}
	if fault := faultFrom(doc); fault != nil {
		s.log.Error().Str("file", zipName).Str("faultcode", fault.Code).Str("faultstring", fault.Message).Msg("SUNAT Fault")
		return nil, fault
	}
	return nil, fmt.Errorf("%w: sin applicationResponse ni Fault", domain.ErrMalformedResponse)
}

// SendSummary envía el ZIP del resumen y devuelve el ticket.
func (s *BillService) SendSummary(ctx context.Context, cred pkgsunat.Credentials, zipPath string) (string, error) {
	zipName, zipBytes, err := readZip(zipPath)
	if err != nil {
		return "", err
	}
	env, err := BuildSendSummary(cred, zipName, zipBytes)
	if err != nil {
		return "", err
	}
	body, err := s.client.Post(ctx, env)
	if err != nil {
		return "", err
	}

	doc := parseXML(body)
	if ticket, ok := findText(doc, "ticket"); ok && ticket != "" {
		return ticket, nil
	}
	if fault := faultFrom(doc); fault != nil {
		s.log.Error().Str("file", zipName).Str("faultcode", fault.Code).Str("faultstring", fault.Message).Msg("SUNAT Fault (ticket)")
		return "", fault
	}
	return "", fmt.Errorf("%w: no se recibió un ticket de SUNAT", domain.ErrMalformedResponse)
}

// GetStatus consulta el ticket. El CDR embebido en <content> se extrae si viene.
func (s *BillService) GetStatus(ctx context.Context, cred pkgsunat.Credentials, ticket, base string) (*pkgsunat.TicketStatus, error) {
	env, err := BuildGetStatus(cred, ticket)
	if err != nil {
		return nil, err
	}
	body, err := s.client.Post(ctx, env)
	if err != nil {
		return nil, err
	}
	if !looksLikeXML(body) {
		return nil, fmt.Errorf("%w (No XML)", domain.ErrMalformedResponse)
	}

	doc := parseXML(body)
	code, hasCode := findText(doc, "statusCode")
	if !hasCode {
		if fault := faultFrom(doc); fault != nil {
			s.log.Error().Str("ticket", ticket).Str("faultcode", fault.Code).Str("faultstring", fault.Message).Msg("SUNAT Fault (status)")
			return nil, fault
		}
		return nil, fmt.Errorf("%w: sin statusCode para el ticket %s", domain.ErrMalformedResponse, ticket)
	}

	status := &pkgsunat.TicketStatus{Code: code}
	if content, ok := findText(doc, "content"); ok && content != "" {
		cdr, err := decodeBase64(content)
		if err != nil {
			return nil, err
		}
		receipt, err := s.receipts.Extract(base, cdr)
		if err != nil {
			return nil, err
		}
		status.Receipt = receipt
	}
	return status, nil
}

func readZip(zipPath string) (string, []byte, error) {
	data, err := os.ReadFile(zipPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: leer %s: %v", domain.ErrPackaging, zipPath, err)
	}
	return filepath.Base(zipPath), data, nil
}

func decodeBase64(s string) ([]byte, error) {
	// SUNAT puede partir el Base64 en líneas.
	s = strings.Join(strings.Fields(s), "")
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: CDR en Base64 inválido: %v", domain.ErrMalformedResponse, err)
	}
	return data, nil
}

func baseName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
