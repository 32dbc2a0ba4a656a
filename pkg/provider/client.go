// Package provider implements the client for the external paid search
// provider. One HTTP call covers the web, image and spelling verticals; the
// response is returned in raw wire form so the caller can cache it before
// parsing.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/log"
)

// Source tags select which verticals one provider call answers.
const (
	SourcesWeb   = "Spell+Web"
	SourcesImage = "Spell+Image"
)

const userAgent = "fedsearch"

// Error is the typed failure for provider calls: transport failure, non-200
// status, or an unparseable body. It is reported upward and never retried
// inside this package.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Client issues requests against the external provider. Construct one at
// process start and share it; it is safe for concurrent use.
type Client struct {
	endpoint string
	appID    string
	http     *http.Client
	tracer   trace.Tracer
	logger   *log.Logger
}

// NewClient builds a provider client for endpoint authenticated with appID.
// A non-positive timeout defaults to ten seconds.
func NewClient(endpoint, appID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		appID:    appID,
		http:     &http.Client{Timeout: timeout},
		tracer:   otel.Tracer("fedsearch/provider"),
		logger:   log.ForService("provider"),
	}
}

// Query issues one provider call and returns the raw response body. The call
// is wrapped in a span carrying the query text and metadata regardless of
// outcome. All failures come back as *Error.
func (c *Client) Query(ctx context.Context, query, sources string, offset, perPage int, highlight bool, filter core.FilterLevel) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "provider.query", trace.WithAttributes(
		attribute.String("search.query", query),
		attribute.String("search.sources", sources),
		attribute.Int("search.offset", offset),
		attribute.Int("search.count", perPage),
	))
	defer span.End()

	body, err := c.do(ctx, query, sources, offset, perPage, highlight, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.response_bytes", len(body)))
	return body, nil
}

func (c *Client) do(ctx context.Context, query, sources string, offset, perPage int, highlight bool, filter core.FilterLevel) ([]byte, error) {
	params := url.Values{}
	params.Set("AppId", c.appID)
	params.Set("query", query)
	params.Set("sources", sources)
	params.Set("web.offset", strconv.Itoa(offset))
	params.Set("web.count", strconv.Itoa(perPage))
	params.Set("adlt", string(filter))
	if highlight {
		params.Set("options", "EnableHighlighting")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Op: "query", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: "query", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debugf("closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: "query", Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "query", Err: err}
	}
	return body, nil
}

// Parse decodes a raw response body into the structured wire model. A body
// without a SearchResponse section is a provider failure, since cached values
// are only ever written from successful calls.
func Parse(body []byte) (*Response, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{Op: "parse", Err: err}
	}
	if envelope.SearchResponse == nil {
		return nil, &Error{Op: "parse", Err: fmt.Errorf("missing SearchResponse section")}
	}
	return envelope.SearchResponse, nil
}
