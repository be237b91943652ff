package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/application/dto"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	apphttp "github.com/jhoicas/facturador-sunat/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/facturador-sunat/pkg/jwt"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeDocs struct {
	docs    map[string]*dto.DocumentResponse
	created dto.CreateDocumentRequest
	err     error
}

func (f *fakeDocs) CreateDocument(_ context.Context, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	f.created = in
	if f.err != nil {
		return nil, f.err
	}
	return &dto.DocumentResponse{ID: "new", IssuerID: in.IssuerID, Series: in.Series, Number: "00000001", Status: "DRAFT"}, nil
}

func (f *fakeDocs) GetDocument(_ context.Context, id string) (*dto.DocumentResponse, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (f *fakeDocs) DeleteDraft(_ context.Context, id string) error {
	if f.docs[id].Status != "DRAFT" {
		return domain.ErrInvalidState
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocs) PeekNext(_ context.Context, series, issuerID string) (*dto.NextCorrelativeResponse, error) {
	return &dto.NextCorrelativeResponse{IssuerID: issuerID, Series: series, Number: "00000007"}, nil
}

type fakeLifecycle struct {
	out billing.Outcome
	err error
}

func (f *fakeLifecycle) Sign(context.Context, string) (billing.Outcome, error) { return f.out, f.err }
func (f *fakeLifecycle) Submit(context.Context, string) (billing.Outcome, error) {
	return f.out, f.err
}
func (f *fakeLifecycle) SubmitVoidance(context.Context, string) (billing.Outcome, error) {
	return f.out, f.err
}
func (f *fakeLifecycle) Poll(context.Context, string) (billing.Outcome, error) { return f.out, f.err }
func (f *fakeLifecycle) PollPending(_ context.Context, limit, _ int) (*dto.PollSummaryResponse, error) {
	return &dto.PollSummaryResponse{Checked: limit}, f.err
}
func (f *fakeLifecycle) Receipt(context.Context, string) ([]byte, error) {
	return []byte("<ApplicationResponse/>"), f.err
}

func newDocsApp(docs *fakeDocs, lc *fakeLifecycle) *fiber.App {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Documents:       docs,
		Lifecycle:       lc,
		JWTSecret:       testJWTSecret,
		PollConcurrency: 2,
	})
	return app
}

func seededDocs() *fakeDocs {
	return &fakeDocs{docs: map[string]*dto.DocumentResponse{
		"d1":    {ID: "d1", IssuerID: testIssuerID, Series: "F001", Number: "00000001", Status: "DRAFT"},
		"d2":    {ID: "d2", IssuerID: testIssuerID, Series: "F001", Number: "00000002", Status: "ACCEPTED"},
		"other": {ID: "other", IssuerID: "otro-emisor", Series: "F001", Number: "00000001", Status: "DRAFT"},
	}}
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(b)
}

// ── comprobantes ──────────────────────────────────────────────────────────────

func TestDocumentHandler_CreateFuerzaEmisorDelToken(t *testing.T) {
	docs := seededDocs()
	app := newDocsApp(docs, &fakeLifecycle{})

	resp, body := call(t, app, http.MethodPost, "/api/documents", pkgjwt.RoleEmisor, `{"type":"01","series":"F001","lines":[]}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, testIssuerID, docs.created.IssuerID)

	resp, _ = call(t, app, http.MethodPost, "/api/documents", pkgjwt.RoleEmisor, `{"issuer_id":"otro-emisor","type":"01","series":"F001"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "un emisor no puede emitir a nombre de otro")
}

func TestDocumentHandler_CreateErrorDeValidacion(t *testing.T) {
	docs := seededDocs()
	docs.err = fmt.Errorf("%w: total no coincide", domain.ErrInvalidInput)
	app := newDocsApp(docs, &fakeLifecycle{})

	resp, body := call(t, app, http.MethodPost, "/api/documents", pkgjwt.RoleAdmin, `{"issuer_id":"x","type":"01","series":"F001"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "VALIDATION")

	resp, _ = call(t, app, http.MethodPost, "/api/documents", pkgjwt.RoleAdmin, `{no es json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDocumentHandler_GetOcultaDocumentosDeOtroEmisor(t *testing.T) {
	app := newDocsApp(seededDocs(), &fakeLifecycle{})

	resp, _ := call(t, app, http.MethodGet, "/api/documents/d1", pkgjwt.RoleConsulta, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, app, http.MethodGet, "/api/documents/other", pkgjwt.RoleConsulta, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, app, http.MethodGet, "/api/documents/other", pkgjwt.RoleAdmin, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "admin ve todos los emisores")
}

func TestDocumentHandler_DeleteDraft(t *testing.T) {
	app := newDocsApp(seededDocs(), &fakeLifecycle{})

	resp, _ := call(t, app, http.MethodDelete, "/api/documents/d2", pkgjwt.RoleEmisor, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "solo se eliminan borradores")

	resp, _ = call(t, app, http.MethodDelete, "/api/documents/d1", pkgjwt.RoleEmisor, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDocumentHandler_NextNumber(t *testing.T) {
	app := newDocsApp(seededDocs(), &fakeLifecycle{})

	resp, body := call(t, app, http.MethodGet, "/api/series/F001/next?issuer_id=ignorado", pkgjwt.RoleConsulta, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var next dto.NextCorrelativeResponse
	require.NoError(t, json.Unmarshal([]byte(body), &next))
	assert.Equal(t, "00000007", next.Number)
	assert.Equal(t, testIssuerID, next.IssuerID, "fuera de admin se usa el emisor del token")
}

// ── ciclo de vida ─────────────────────────────────────────────────────────────

func TestDocumentHandler_SubmitDevuelveOutcome(t *testing.T) {
	lc := &fakeLifecycle{out: billing.Outcome{Success: false, Status: "REJECTED", Message: "51 - RUC no existe"}}
	app := newDocsApp(seededDocs(), lc)

	resp, body := call(t, app, http.MethodPost, "/api/documents/d1/submit", pkgjwt.RoleEmisor, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "un rechazo se informa como resultado")

	var out dto.OutcomeResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.False(t, out.Success)
	assert.Equal(t, "REJECTED", out.Status)
	assert.Contains(t, out.Message, "RUC no existe")
}

func TestDocumentHandler_MapeoDeErrores(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"transporte", fmt.Errorf("%w: timeout", domain.ErrTransport), http.StatusBadGateway, "SUNAT_UNREACHABLE"},
		{"fault", &domain.FaultError{Code: "0111", Message: "sin perfil"}, http.StatusBadGateway, "SUNAT_FAULT"},
		{"malformada", fmt.Errorf("%w (No XML)", domain.ErrMalformedResponse), http.StatusBadGateway, "SUNAT_MALFORMED"},
		{"configuracion", fmt.Errorf("%w: pfx", domain.ErrCertificate), http.StatusUnprocessableEntity, "CONFIGURATION"},
		{"ocupado", domain.ErrDocumentBusy, http.StatusConflict, "DOCUMENT_BUSY"},
		{"estado", domain.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
		{"empaquetado", domain.ErrPackaging, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newDocsApp(seededDocs(), &fakeLifecycle{err: tc.err})
			resp, body := call(t, app, http.MethodPost, "/api/documents/d1/void-summary", pkgjwt.RoleEmisor, "")
			assert.Equal(t, tc.want, resp.StatusCode)
			assert.Contains(t, body, tc.code)
		})
	}
}

func TestDocumentHandler_ConsultaNoPuedeEnviar(t *testing.T) {
	app := newDocsApp(seededDocs(), &fakeLifecycle{})
	resp, _ := call(t, app, http.MethodPost, "/api/documents/d1/sign", pkgjwt.RoleConsulta, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDocumentHandler_Receipt(t *testing.T) {
	app := newDocsApp(seededDocs(), &fakeLifecycle{})
	resp, body := call(t, app, http.MethodGet, "/api/documents/d2/receipt", pkgjwt.RoleConsulta, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xml")
	assert.Equal(t, "<ApplicationResponse/>", body)
}

func TestDocumentHandler_PollPendingSoloAdmin(t *testing.T) {
	app := newDocsApp(seededDocs(), &fakeLifecycle{})

	resp, _ := call(t, app, http.MethodPost, "/api/tickets/poll", pkgjwt.RoleEmisor, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := call(t, app, http.MethodPost, "/api/tickets/poll?limit=20", pkgjwt.RoleAdmin, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary dto.PollSummaryResponse
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, 20, summary.Checked)
}
