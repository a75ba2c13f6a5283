package chi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
	"github.com/kailas-cloud/fedsearch/internal/logger"
	ingestuc "github.com/kailas-cloud/fedsearch/internal/usecase/ingest"
)

// maxFieldBytes bounds each non-file multipart field.
const maxFieldBytes = 64 << 10

type uploadKind struct {
	format    doming.Format
	fileField string
	ext       string
	mimes     []string
}

var (
	csvUpload = uploadKind{
		format:    doming.CSV,
		fileField: "csvFile",
		ext:       ".csv",
		mimes:     []string{"text/csv", "application/csv", "text/x-csv", "application/vnd.ms-excel", "text/plain"},
	}
	jsonUpload = uploadKind{
		format:    doming.JSON,
		fileField: "jsonFile",
		ext:       ".json",
		mimes:     []string{"application/json", "text/json", "text/plain"},
	}
)

// accepts checks the declared file name and MIME type. Either one matching is enough.
func (k uploadKind) accepts(filename, contentType string) error {
	if strings.EqualFold(filepath.Ext(filename), k.ext) {
		return nil
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		for _, m := range k.mimes {
			if mt == m {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s upload needs a %s file, got %q (%s)",
		domain.ErrUnsupportedFile, k.format, k.ext, filename, contentType)
}

// UploadCSV handles POST /upload-csv/{collectionName}.
func (s *Server) UploadCSV(w http.ResponseWriter, r *http.Request) {
	s.upload(w, r, csvUpload, csvOptions)
}

// UploadJSON handles POST /upload-json/{collectionName}.
func (s *Server) UploadJSON(w http.ResponseWriter, r *http.Request) {
	s.upload(w, r, jsonUpload, jsonOptions)
}

// upload stores the file part in the upload directory and hands it to the
// ingestion service, which owns the file from then on.
func (s *Server) upload(
	w http.ResponseWriter, r *http.Request, kind uploadKind,
	parseOptions func(map[string]string) (doming.Options, error),
) {
	name := chi.URLParam(r, "collectionName")
	if err := doming.ValidateCollectionName(name); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidCollectionName, err.Error())
		return
	}

	// large files outlive the server read timeout
	_ = http.NewResponseController(w).SetReadDeadline(time.Time{})
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	path, form, err := s.receive(r, kind)
	if err != nil {
		handleError(w, r, s.uploadHandlers, err)
		return
	}

	opts, err := parseOptions(form)
	if err != nil {
		s.discard(r, path)
		writeError(w, http.StatusBadRequest, CodeInvalidOptions, err.Error())
		return
	}

	job, err := s.svc.Ingest.Accept(r.Context(), ingestuc.Upload{
		Collection: name,
		Format:     kind.format,
		Path:       path,
		Options:    opts,
	})
	if err != nil {
		handleError(w, r, s.uploadHandlers, err)
		return
	}

	logger.FromContext(r.Context()).Info("Upload accepted",
		zap.String("collection", name),
		zap.String("job_id", job.ID),
		zap.String("format", string(kind.format)),
	)
	writeJSON(w, http.StatusAccepted, UploadAccepted{
		Message:        fmt.Sprintf("%s upload accepted, ingestion started", strings.ToUpper(string(kind.format))),
		JobID:          job.ID,
		StatusEndpoint: fmt.Sprintf("/upload-%s/progress/%s", kind.format, name),
	})
}

// receive streams the multipart body: the file part goes to disk, other
// fields are collected. Extra file parts are drained and ignored.
func (s *Server) receive(r *http.Request, kind uploadKind) (string, map[string]string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return "", nil, fmt.Errorf("%w: expected a multipart/form-data body with field %q",
			domain.ErrFileRequired, kind.fileField)
	}

	var path string
	fail := func(err error) (string, map[string]string, error) {
		s.discard(r, path)
		return "", nil, err
	}

	form := make(map[string]string)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(bodyError(err))
		}

		switch {
		case part.FileName() == "":
			v, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if err != nil {
				return fail(bodyError(err))
			}
			if len(v) > maxFieldBytes {
				return fail(fmt.Errorf("%w: field %q exceeds %d bytes", domain.ErrInvalidRequest, part.FormName(), maxFieldBytes))
			}
			form[part.FormName()] = string(v)
		case part.FormName() == kind.fileField && path == "":
			if err := kind.accepts(part.FileName(), part.Header.Get("Content-Type")); err != nil {
				return fail(err)
			}
			if path, err = s.saveFile(part, kind); err != nil {
				return fail(err)
			}
		}
		_ = part.Close()
	}

	if path == "" {
		return "", nil, fmt.Errorf("%w: multipart field %q is missing", domain.ErrFileRequired, kind.fileField)
	}
	return path, form, nil
}

func (s *Server) saveFile(part *multipart.Part, kind uploadKind) (string, error) {
	f, err := os.CreateTemp(s.opts.UploadDir, "upload-*"+kind.ext)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, part); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", bodyError(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return f.Name(), nil
}

func (s *Server) discard(r *http.Request, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.FromContext(r.Context()).Warn("Failed to remove upload", zap.String("path", path), zap.Error(err))
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", domain.ErrFileTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: read multipart body: %w", domain.ErrInvalidRequest, err)
}

func csvOptions(form map[string]string) (doming.Options, error) {
	f := csvUploadForm{Delimiter: form["delimiter"], Encoding: form["encoding"]}
	if err := uploadValidator.Struct(f); err != nil {
		return doming.Options{}, errors.New(validationMessage(err))
	}
	delim, err := doming.ParseDelimiter(f.Delimiter)
	if err != nil {
		return doming.Options{}, err //nolint:wrapcheck // message returned to the client
	}
	return doming.Options{Delimiter: delim, Encoding: f.Encoding}, nil
}

func jsonOptions(form map[string]string) (doming.Options, error) {
	f := jsonUploadForm{
		Encoding:     form["encoding"],
		RootPath:     form["rootPath"],
		BatchSize:    form["batchSize"],
		PathMappings: form["pathMappings"],
	}
	if err := uploadValidator.Struct(f); err != nil {
		return doming.Options{}, errors.New(validationMessage(err))
	}

	opts := doming.Options{Encoding: f.Encoding, RootPath: f.RootPath}
	if f.BatchSize != "" {
		n, err := strconv.Atoi(f.BatchSize)
		if err != nil {
			return doming.Options{}, fmt.Errorf("batchSize must be an integer, got %q", f.BatchSize)
		}
		opts.BatchSize = n
	}
	if f.PathMappings != "" {
		mappings, err := parsePathMappings(f.PathMappings)
		if err != nil {
			return doming.Options{}, err
		}
		opts.Mappings = mappings
	}
	return opts, nil
}

var uploadValidator = newValidator()

// parsePathMappings accepts [{"sourcePath","targetPath"}] or {"source": "target"}.
// Object keys are applied in sorted order.
func parsePathMappings(raw string) ([]doming.PathMapping, error) {
	var list []PathMapping
	if err := json.UnmarshalFromString(raw, &list); err == nil {
		out := make([]doming.PathMapping, len(list))
		for i, m := range list {
			if err := uploadValidator.Struct(m); err != nil {
				return nil, fmt.Errorf("pathMappings[%d]: %s", i, validationMessage(err))
			}
			out[i] = doming.PathMapping{Source: m.SourcePath, Target: m.TargetPath}
		}
		return out, nil
	}

	var byKey map[string]string
	if err := json.UnmarshalFromString(raw, &byKey); err != nil {
		return nil, errors.New("pathMappings must be a list of {sourcePath, targetPath} or an object of source to target")
	}
	sources := make([]string, 0, len(byKey))
	for src := range byKey {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	out := make([]doming.PathMapping, len(sources))
	for i, src := range sources {
		out[i] = doming.PathMapping{Source: src, Target: byKey[src]}
	}
	return out, nil
}
