package search

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
	"github.com/kailas-cloud/fedsearch/internal/logger"
)

// DefaultMaxFanOut caps concurrent collection queries per search.
const DefaultMaxFanOut = 16

// Service fans one query out to many collections.
type Service struct {
	engine      Engine
	templates   TemplateReader
	maxFanOut   int
	errorsTotal prometheus.Counter
}

// New creates a search service. errorsTotal may be nil.
func New(engine Engine, templates TemplateReader, maxFanOut int, errorsTotal prometheus.Counter) *Service {
	if maxFanOut <= 0 {
		maxFanOut = DefaultMaxFanOut
	}
	return &Service{engine: engine, templates: templates, maxFanOut: maxFanOut, errorsTotal: errorsTotal}
}

// Search queries every requested collection with the same params. A failing
// collection contributes an empty page and an error entry; the others are
// unaffected. Errors are listed in request order.
func (s *Service) Search(ctx context.Context, req request.Request) *result.Response {
	log := logger.FromContext(ctx)

	params, err := s.templates.Default(ctx)
	if err != nil {
		log.Warn("Default template unavailable, searching without it", zap.Error(err))
	}

	cols := req.Collections()
	pages := make([]result.Page, len(cols))
	errs := make([]error, len(cols))

	var g errgroup.Group
	g.SetLimit(s.maxFanOut)
	for i, c := range cols {
		g.Go(func() error {
			if err := request.ValidateCollection(c); err != nil {
				errs[i] = err
				return nil
			}
			pages[i], errs[i] = s.engine.Search(ctx, req.PageQuery(c, params))
			return nil
		})
	}
	_ = g.Wait()

	resp := result.NewResponse(len(cols))
	for i, c := range cols {
		if errs[i] == nil {
			resp.Add(c, pages[i])
			continue
		}
		log.Warn("Collection search failed", zap.String("collection", c), zap.Error(errs[i]))
		if s.errorsTotal != nil {
			s.errorsTotal.Inc()
		}
		resp.Fail(c, req.CursorMark(c), errs[i])
	}
	return resp
}
