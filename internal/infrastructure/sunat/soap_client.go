package sunat

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-sunat/internal/domain"
)

const (
	// DefaultEndpoint billService del entorno beta de SUNAT.
	DefaultEndpoint = "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"

	contentType            = `text/xml; charset="utf-8"`
	defaultMaxResponseSize = 10 << 20 // los CDR viajan en Base64 dentro de la respuesta
)

// ClientConfig configuración del transporte SOAP.
type ClientConfig struct {
	Endpoint    string
	Timeout     time.Duration
	InsecureTLS bool // solo beta: SUNAT publica certificados que no validan
	// MaxResponseSize tope del cuerpo leído; <= 0 usa 10 MiB.
	MaxResponseSize int64
}

// SOAPClient hace un único POST al endpoint fijo y devuelve el cuerpo tal cual.
// Los SOAP Fault llegan con HTTP 500, por eso los códigos no 2xx no son error de transporte.
type SOAPClient struct {
	endpoint   string
	maxBody    int64
	httpClient *http.Client
	log        zerolog.Logger
}

// NewSOAPClient construye el cliente con un timeout acotado por llamada.
func NewSOAPClient(cfg ClientConfig, log zerolog.Logger) *SOAPClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = defaultMaxResponseSize
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureTLS, //nolint:gosec // relajación explícita por configuración
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.InsecureTLS {
		log.Warn().Str("endpoint", cfg.Endpoint).Msg("verificación TLS deshabilitada para SUNAT")
	}
	return &SOAPClient{
		endpoint:   cfg.Endpoint,
		maxBody:    cfg.MaxResponseSize,
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		log:        log,
	}
}

// Post envía el envelope y devuelve el cuerpo de la respuesta.
// Fallos de red, TLS o timeout envuelven domain.ErrTransport.
func (c *SOAPClient) Post(ctx context.Context, envelope []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrTransport, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	// Un byte más que el tope para distinguir "justo en el límite" de "truncado".
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrTransport, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: respuesta demasiado grande (más de %d bytes)", domain.ErrMalformedResponse, c.maxBody)
	}
	c.log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("respuesta billService")
	return body, nil
}
