package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"leadcall_backend/internal/events"
	"leadcall_backend/internal/leads/domain"
	"leadcall_backend/internal/leads/repository"
	"leadcall_backend/internal/leads/transport"
	"leadcall_backend/platform/apperr"
	"leadcall_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu    sync.Mutex
	leads []repository.Lead
	logs  map[uuid.UUID][]repository.CallLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{logs: make(map[uuid.UUID][]repository.CallLog)}
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lead := range f.leads {
		if lead.Phone == params.Phone || lead.Email == params.Email {
			return repository.Lead{}, repository.ErrDuplicate
		}
	}
	lead := repository.Lead{
		ID:             uuid.New(),
		Name:           params.Name,
		Phone:          params.Phone,
		Email:          params.Email,
		Status:         domain.StatusPending,
		CourseInterest: params.CourseInterest,
		Transcript:     []domain.Turn{},
	}
	f.leads = append(f.leads, lead)
	return lead, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lead := range f.leads {
		if lead.ID == id {
			return lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Lead
	for _, lead := range f.leads {
		if params.Status != nil && lead.Status != *params.Status {
			continue
		}
		out = append(out, lead)
	}
	if params.Offset >= len(out) {
		return nil, nil
	}
	out = out[params.Offset:]
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]repository.Lead, error) {
	return f.List(ctx, repository.ListParams{Status: &status, Limit: limit})
}

func (f *fakeStore) ListCallLogs(_ context.Context, leadID uuid.UUID) ([]repository.CallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs[leadID], nil
}

func (f *fakeStore) Metrics(_ context.Context) (map[domain.Status]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.Status]int)
	for _, lead := range f.leads {
		counts[lead.Status]++
	}
	return counts, nil
}

func newTestService(store *fakeStore) *Service {
	log := logger.New("development")
	return New(store, events.NewInMemoryBus(log), log)
}

func TestCreateNormalizesContactFields(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	lead, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Name:  "  Jamie Rivera ",
		Phone: "(415) 555-0100",
		Email: "Jamie.Rivera@Example.COM",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.Phone != "+14155550100" {
		t.Fatalf("expected normalized phone, got %q", lead.Phone)
	}
	if lead.Email != "jamie.rivera@example.com" {
		t.Fatalf("expected lowercased email, got %q", lead.Email)
	}
	if lead.Name != "Jamie Rivera" {
		t.Fatalf("expected trimmed name, got %q", lead.Name)
	}
	if lead.Status != string(domain.StatusPending) {
		t.Fatalf("new leads start pending, got %q", lead.Status)
	}
}

func TestCreateFormattingVariantsCollide(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	first := transport.CreateLeadRequest{Name: "A", Phone: "+1 415 555 0100", Email: "a@example.com"}
	if _, err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := transport.CreateLeadRequest{Name: "B", Phone: "(415) 555-0100", Email: "b@example.com"}
	_, err := svc.Create(context.Background(), second)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for formatting variant, got %v", err)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.List(context.Background(), transport.ListLeadsQuery{Status: "sleeping"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetUnknownLeadIsNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Get(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestImportCSVIsolatesBadRows(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	csv := strings.Join([]string{
		"name,phone,email,course_interest",
		"Jamie Rivera,+14155550100,jamie@example.com,data science",
		",missing name,broken@example.com,",
		"Sam Okafor,+14155550101,sam@example.com,",
		"Dup Lead,+14155550100,dup@example.com,",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("expected 2 imported, got %+v", result)
	}
	if result.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 reported errors, got %v", result.Errors)
	}
	if !strings.Contains(strings.Join(result.Errors, ";"), "duplicate") {
		t.Fatalf("duplicate row should be reported: %v", result.Errors)
	}
	if len(store.leads) != 2 {
		t.Fatalf("expected 2 stored leads, got %d", len(store.leads))
	}
}

func TestImportCSVRequiresHeader(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.ImportCSV(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for missing columns, got %v", err)
	}
}

func TestExportCSVRoundTripsImportedLeads(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Name: "Jamie Rivera", Phone: "+14155550100", Email: "jamie@example.com", CourseInterest: "data science",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf strings.Builder
	count, err := svc.ExportCSV(context.Background(), &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 exported row, got %d", count)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "name,phone,email,course_interest,status,attempts,interest_score") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "Jamie Rivera,+14155550100,jamie@example.com,data science,pending,0,0") {
		t.Fatalf("missing lead row: %q", out)
	}
}

type fakeArchiver struct {
	uploaded []byte
	size     int64
	err      error
}

func (f *fakeArchiver) Bucket() string                     { return "exports" }
func (f *fakeArchiver) EnsureBucket(context.Context) error { return f.err }
func (f *fakeArchiver) Upload(_ context.Context, r io.Reader, size int64, _ string) (string, error) {
	f.uploaded, _ = io.ReadAll(r)
	f.size = size
	return "leads/snapshot.csv", nil
}

func TestArchiveExportUploadsSnapshot(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	if _, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Name: "Jamie Rivera", Phone: "+14155550100", Email: "jamie@example.com",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	archiver := &fakeArchiver{}
	result, err := svc.ArchiveExport(context.Background(), archiver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Bucket != "exports" || result.Object != "leads/snapshot.csv" || result.Leads != 1 {
		t.Fatalf("unexpected archive result: %+v", result)
	}
	if int64(len(archiver.uploaded)) != archiver.size {
		t.Fatalf("declared size %d does not match payload %d", archiver.size, len(archiver.uploaded))
	}
	if !strings.Contains(string(archiver.uploaded), "jamie@example.com") {
		t.Fatalf("snapshot missing lead data")
	}
}

func TestArchiveExportWithoutStorageIsUnavailable(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.ArchiveExport(context.Background(), nil)
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestMetricsCountsByStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(context.Background(), transport.CreateLeadRequest{
			Name:  "Lead",
			Phone: "+1415555010" + strconv.Itoa(i),
			Email: "lead" + strconv.Itoa(i) + "@example.com",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	store.leads[0].Status = domain.StatusCompleted

	metrics, err := svc.Metrics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metrics.Total != 3 {
		t.Fatalf("expected total 3, got %d", metrics.Total)
	}
	if metrics.ByStatus["pending"] != 2 || metrics.ByStatus["completed"] != 1 {
		t.Fatalf("unexpected breakdown: %+v", metrics.ByStatus)
	}
}
