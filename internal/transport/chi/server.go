// Package chi exposes the HTTP API: federated search, bulk uploads with
// progress streams, and collection and template administration.
package chi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Services are the use cases behind the API.
type Services struct {
	Search      SearchService
	Ingest      IngestService
	Collections CollectionService
	Templates   TemplateService
	Health      HealthService
}

// Options tune request handling.
type Options struct {
	Limits request.Limits
	// UploadDir receives uploaded files until ingestion removes them.
	UploadDir      string
	MaxUploadBytes int64
	Heartbeat      time.Duration
}

// Server implements the HTTP handlers.
type Server struct {
	svc            Services
	opts           Options
	validate       *validator.Validate
	logger         *zap.Logger
	errorHandlers  []errorHandler
	uploadHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 30
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	return &Server{
		svc:            svc,
		opts:           opts,
		validate:       newValidator(),
		logger:         logger,
		errorHandlers:  defaultErrorHandlers(),
		uploadHandlers: uploadErrorHandlers(),
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.Search)

	r.Post("/upload-csv/{collectionName}", s.UploadCSV)
	r.Post("/upload-json/{collectionName}", s.UploadJSON)
	r.Get("/upload-csv/progress/{collectionName}", s.ProgressStream)
	r.Get("/upload-json/progress/{collectionName}", s.ProgressStream)
	r.Get("/upload-csv/progress/{collectionName}/ws", s.ProgressSocket)
	r.Get("/upload-json/progress/{collectionName}/ws", s.ProgressSocket)

	r.Route("/collections", func(r chi.Router) {
		r.Post("/", s.CreateCollection)
		r.Get("/", s.ListCollections)
		r.Get("/{name}", s.GetCollection)
		r.Delete("/{name}", s.DeleteCollection)
		r.Post("/{name}/fields", s.AddField)
	})

	r.Route("/query-templates", func(r chi.Router) {
		r.Get("/", s.ListTemplates)
		r.Get("/{name}", s.GetTemplate)
		r.Put("/{name}", s.SaveTemplate)
		r.Delete("/{name}", s.DeleteTemplate)
		r.Post("/{name}/default", s.SetDefaultTemplate)
	})

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the body into dst and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, validationMessage(err))
		return false
	}
	return true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
