// Package solr is the search engine client: edismax queries with cursorMark
// pagination behind a circuit breaker and a bounded retrier.
package solr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
	"github.com/kailas-cloud/fedsearch/internal/metrics"
	"github.com/kailas-cloud/fedsearch/internal/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sort is fixed: cursorMark pagination needs a total order, so score ties break on id.
const Sort = "score desc,id asc"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Config holds client settings.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxRetries      int
	BreakerFailures int
	BreakerOpen     time.Duration
	HTTPClient      *http.Client
	Logger          *zap.Logger
}

// Client queries Solr cores over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	retry   *retrier.Retrier
	logger  *zap.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid solr base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	openFor := cfg.BreakerOpen
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "solr",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isEngineFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	c.retry = retrier.New(retrier.ExponentialBackoff(max(cfg.MaxRetries, 0), 100*time.Millisecond), classifier{})
	return c, nil
}

// Search runs one cursorMark page query.
func (c *Client) Search(ctx context.Context, q request.PageQuery) (result.Page, error) {
	if q.Collection == "" {
		return result.Page{}, fmt.Errorf("collection is required: %w", domain.ErrInvalidRequest)
	}

	form := buildParams(q)
	target := c.baseURL + "/" + url.PathEscape(q.Collection) + "/select"

	start := time.Now()
	var resp selectResponse
	err := c.retry.RunCtx(ctx, func(ctx context.Context) error {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, c.post(ctx, target, form, &resp)
		})
		return err
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.SearchUpstreamDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return result.Page{}, domain.NewUpstreamError("solr/"+q.Collection, err)
	}
	return resp.page(), nil
}

// Ping checks that the engine answers admin requests.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/admin/info/system?wt=json", http.NoBody)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.NewUpstreamError("solr", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		return domain.NewUpstreamError("solr", fmt.Errorf("ping status %d", resp.StatusCode))
	}
	return nil
}

func buildParams(q request.PageQuery) url.Values {
	v := url.Values{}
	v.Set("q", q.Q)
	v.Set("defType", "edismax")
	v.Set("wt", "json")
	v.Set("rows", strconv.Itoa(q.Rows))
	v.Set("sort", Sort)
	v.Set("cursorMark", q.CursorMark)

	setIf(v, "qf", q.Params.QF)
	setIf(v, "fl", q.Params.FL)
	setIf(v, "pf", q.Params.PF)
	setIf(v, "pf2", q.Params.PF2)
	setIf(v, "pf3", q.Params.PF3)
	setIf(v, "ps", q.Params.PS)
	setIf(v, "ps2", q.Params.PS2)
	setIf(v, "ps3", q.Params.PS3)
	setIf(v, "mm", q.Params.MM)

	if len(q.Params.FacetFields) > 0 {
		v.Set("facet", "true")
		v.Set("facet.mincount", "1")
		for _, f := range q.Params.FacetFields {
			v.Add("facet.field", f)
		}
	}
	for _, fq := range q.Filters {
		v.Add("fq", fq)
	}
	return v
}

func setIf(v url.Values, key, val string) {
	if val != "" {
		v.Set(key, val)
	}
}

func (c *Client) post(ctx context.Context, target string, form url.Values, out *selectResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return err //nolint:wrapcheck // classified by the retrier
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newStatusError(resp.StatusCode, body)
	}

	*out = selectResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is a non-200 answer from the engine.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("solr status %d: %s", e.Code, e.Message)
}

func newStatusError(code int, body []byte) *StatusError {
	var parsed struct {
		Error struct {
			Msg string `json:"msg"`
		} `json:"error"`
	}
	msg := http.StatusText(code)
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Msg != "" {
		msg = parsed.Error.Msg
	}
	return &StatusError{Code: code, Message: msg}
}

// isEngineFailure separates engine health problems from bad queries.
func isEngineFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

type classifier struct{}

// Classify retries transient engine and network failures only.
func (classifier) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retrier.Fail
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retrier.Fail
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.Code >= 500 || se.Code == http.StatusTooManyRequests {
			return retrier.Retry
		}
		return retrier.Fail
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return retrier.Retry
	}
	return retrier.Fail
}
