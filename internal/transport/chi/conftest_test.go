package chi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
	domtpl "github.com/kailas-cloud/fedsearch/internal/domain/template"
	healthuc "github.com/kailas-cloud/fedsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/fedsearch/internal/usecase/ingest"
)

// --- Mocks ---

type mockSearch struct {
	searchFn func(ctx context.Context, req request.Request) *result.Response
}

func (m *mockSearch) Search(ctx context.Context, req request.Request) *result.Response {
	return m.searchFn(ctx, req)
}

type mockIngest struct {
	acceptFn    func(ctx context.Context, up ingestuc.Upload) (ingestuc.Job, error)
	subscribeFn func(ctx context.Context, collection string) (<-chan doming.Snapshot, error)
}

func (m *mockIngest) Accept(ctx context.Context, up ingestuc.Upload) (ingestuc.Job, error) {
	if m.acceptFn == nil {
		return ingestuc.Job{ID: "job-1", Collection: up.Collection, Format: up.Format}, nil
	}
	return m.acceptFn(ctx, up)
}

func (m *mockIngest) Subscribe(ctx context.Context, collection string) (<-chan doming.Snapshot, error) {
	if m.subscribeFn == nil {
		return nil, domain.ErrNotFound
	}
	return m.subscribeFn(ctx, collection)
}

type mockCollections struct {
	createFn   func(ctx context.Context, name, displayName string, fields []field.Field) (domcol.Collection, error)
	getFn      func(ctx context.Context, name string) (domcol.Collection, error)
	listFn     func(ctx context.Context) ([]domcol.Collection, error)
	deleteFn   func(ctx context.Context, name string) error
	addFieldFn func(ctx context.Context, name string, f field.Field) (domcol.Collection, error)
}

func (m *mockCollections) Create(ctx context.Context, name, displayName string, fields []field.Field) (domcol.Collection, error) {
	return m.createFn(ctx, name, displayName, fields)
}

func (m *mockCollections) Get(ctx context.Context, name string) (domcol.Collection, error) {
	return m.getFn(ctx, name)
}

func (m *mockCollections) List(ctx context.Context) ([]domcol.Collection, error) {
	return m.listFn(ctx)
}

func (m *mockCollections) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

func (m *mockCollections) AddField(ctx context.Context, name string, f field.Field) (domcol.Collection, error) {
	return m.addFieldFn(ctx, name, f)
}

type mockTemplates struct {
	saveFn       func(ctx context.Context, name string, p domtpl.Params) (domtpl.Template, error)
	getFn        func(ctx context.Context, name string) (domtpl.Template, error)
	listFn       func(ctx context.Context) ([]domtpl.Template, error)
	deleteFn     func(ctx context.Context, name string) error
	setDefaultFn func(ctx context.Context, name string) (domtpl.Template, error)
}

func (m *mockTemplates) Save(ctx context.Context, name string, p domtpl.Params) (domtpl.Template, error) {
	return m.saveFn(ctx, name, p)
}

func (m *mockTemplates) Get(ctx context.Context, name string) (domtpl.Template, error) {
	return m.getFn(ctx, name)
}

func (m *mockTemplates) List(ctx context.Context) ([]domtpl.Template, error) {
	return m.listFn(ctx)
}

func (m *mockTemplates) Delete(ctx context.Context, name string) error {
	return m.deleteFn(ctx, name)
}

func (m *mockTemplates) SetDefault(ctx context.Context, name string) (domtpl.Template, error) {
	return m.setDefaultFn(ctx, name)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

type testDeps struct {
	search      *mockSearch
	ingest      *mockIngest
	collections *mockCollections
	templates   *mockTemplates
	health      *mockHealth
}

func newDeps() *testDeps {
	return &testDeps{
		search:      &mockSearch{},
		ingest:      &mockIngest{},
		collections: &mockCollections{},
		templates:   &mockTemplates{},
		health:      &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
}

func newTestRouter(t *testing.T, d *testDeps, opts Options) http.Handler {
	t.Helper()
	if opts.UploadDir == "" {
		opts.UploadDir = t.TempDir()
	}
	if opts.Limits == (request.Limits{}) {
		opts.Limits = request.Limits{Default: 50, Max: 1000}
	}
	srv := NewServer(Services{
		Search:      d.search,
		Ingest:      d.ingest,
		Collections: d.collections,
		Templates:   d.templates,
		Health:      d.health,
	}, opts, nil)

	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return v
}

type filePart struct {
	field, name, contentType string
	content                  []byte
}

// multipartBody builds a form with the given fields and optional file.
func multipartBody(t *testing.T, fields map[string]string, file *filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+file.field+`"; filename="`+file.name+`"`)
		if file.contentType != "" {
			h.Set("Content-Type", file.contentType)
		}
		pw, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := pw.Write(file.content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}
