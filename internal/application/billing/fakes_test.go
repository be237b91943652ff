package billing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/application/billing"
	"github.com/jhoicas/facturador-sunat/internal/domain"
	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
	"github.com/jhoicas/facturador-sunat/internal/domain/repository"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// ── memStore: emisores, documentos y correlativos en memoria ──────────────────

type memStore struct {
	mu        sync.Mutex
	issuers   map[string]*entity.Issuer
	documents map[string]*entity.Document
	lines     map[string][]*entity.DocumentLine
}

func newMemStore() *memStore {
	return &memStore{
		issuers:   make(map[string]*entity.Issuer),
		documents: make(map[string]*entity.Document),
		lines:     make(map[string][]*entity.DocumentLine),
	}
}

func (s *memStore) Create(_ context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.documents {
		if d.IssuerID == doc.IssuerID && d.Series == doc.Series && d.Number == doc.Number {
			return domain.ErrDuplicate
		}
	}
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *memStore) CreateLine(_ context.Context, line *entity.DocumentLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *line
	s.lines[line.DocumentID] = append(s.lines[line.DocumentID], &cp)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *memStore) GetLines(_ context.Context, documentID string) ([]*entity.DocumentLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[documentID], nil
}

func (s *memStore) Update(_ context.Context, doc *entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.documents[doc.ID]
	if !ok || cur.Status == entity.StatusAccepted {
		return domain.ErrInvalidState
	}
	cp := *doc
	cp.Voided, cp.VoidedAt = cur.Voided, cur.VoidedAt
	s.documents[doc.ID] = &cp
	return nil
}

func (s *memStore) MarkVoided(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Voided = true
	d.VoidedAt = &at
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok || d.Status != entity.StatusDraft {
		return domain.ErrInvalidState
	}
	delete(s.documents, id)
	delete(s.lines, id)
	return nil
}

func (s *memStore) ListPendingTickets(_ context.Context, issuerID string, limit int) ([]*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Document
	for _, d := range s.documents {
		if d.Ticket == "" || (d.Status != entity.StatusSubmitted && d.Status != entity.StatusInProcess) {
			continue
		}
		if issuerID != "" && d.IssuerID != issuerID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memIssuers expone los emisores de memStore con la firma de IssuerRepository.
type memIssuers struct{ s *memStore }

func (r memIssuers) Create(_ context.Context, i *entity.Issuer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.issuers[i.ID] = i
	return nil
}

func (r memIssuers) GetByID(_ context.Context, id string) (*entity.Issuer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.issuers[id], nil
}

func (r memIssuers) GetByRUC(_ context.Context, ruc string) (*entity.Issuer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.issuers {
		if i.RUC == ruc {
			return i, nil
		}
	}
	return nil, nil
}

// memCorrelatives lee los números ocupados de memStore.
type memCorrelatives struct{ s *memStore }

func (r memCorrelatives) LockedNumbers(ctx context.Context, series, issuerID string) ([]string, error) {
	return r.Numbers(ctx, series, issuerID)
}

func (r memCorrelatives) Numbers(_ context.Context, series, issuerID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, d := range r.s.documents {
		if d.Series == series && d.IssuerID == issuerID {
			out = append(out, d.Number)
		}
	}
	return out, nil
}

// fakeTx serializa las transacciones (equivalente al bloqueo de serie en PostgreSQL).
type fakeTx struct {
	mu    sync.Mutex
	store *memStore
	err   error
}

func (f *fakeTx) RunBilling(ctx context.Context, fn func(
	issuers repository.IssuerRepository,
	correlatives repository.CorrelativeRepository,
	documents repository.DocumentRepository,
) error) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(memIssuers{f.store}, memCorrelatives{f.store}, f.store)
}

// ── colaboradores SUNAT ──────────────────────────────────────────────────────

type fakeSigner struct {
	mu        sync.Mutex
	signedDir string
	calls     int
	err       error
}

func (f *fakeSigner) Sign(_ context.Context, xmlPath, _, _ string) (pkgsunat.SignResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return pkgsunat.SignResult{}, f.err
	}
	if err := os.MkdirAll(f.signedDir, 0o755); err != nil {
		return pkgsunat.SignResult{}, err
	}
	out := filepath.Join(f.signedDir, filepath.Base(xmlPath))
	if err := os.WriteFile(out, []byte("<Invoice><ds:Signature/></Invoice>"), 0o644); err != nil {
		return pkgsunat.SignResult{}, err
	}
	return pkgsunat.SignResult{SignedPath: out, Hash: "aGFzaA=="}, nil
}

func (f *fakeSigner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePackager struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakePackager) Pack(signedXMLPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return signedXMLPath[:len(signedXMLPath)-len(filepath.Ext(signedXMLPath))] + ".zip", nil
}

type fakeBills struct {
	mu          sync.Mutex
	sendBill    func() (*pkgsunat.Receipt, error)
	sendSummary func() (string, error)
	getStatus   []func() (*pkgsunat.TicketStatus, error)
	billCalls   int
	sumCalls    int
	statusCalls int
	lastCred    pkgsunat.Credentials
}

func (f *fakeBills) SendBill(_ context.Context, cred pkgsunat.Credentials, _ string) (*pkgsunat.Receipt, error) {
	f.mu.Lock()
	f.billCalls++
	f.lastCred = cred
	fn := f.sendBill
	f.mu.Unlock()
	return fn()
}

func (f *fakeBills) SendSummary(_ context.Context, cred pkgsunat.Credentials, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sumCalls++
	f.lastCred = cred
	return f.sendSummary()
}

func (f *fakeBills) GetStatus(_ context.Context, _ pkgsunat.Credentials, _, _ string) (*pkgsunat.TicketStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if i >= len(f.getStatus) {
		i = len(f.getStatus) - 1
	}
	return f.getStatus[i]()
}

func (f *fakeBills) counts() (bill, summary, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.billCalls, f.sumCalls, f.statusCalls
}

type recordingNotifier struct {
	mu       sync.Mutex
	outcomes []billing.Outcome
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, _ *entity.Document, out billing.Outcome) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, out)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.outcomes)
}

var errNoResponse = errors.New("dial tcp: connection refused")
