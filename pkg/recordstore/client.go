// Package recordstore is a client for the remote tabular record store
// (offset-paged REST reads, merge-field upserts, per-request batch caps).
// Rate-limit and transient-unavailability responses are retried inside the
// client and never surface to callers unless the attempt ceiling is hit.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/apperrors"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
)

const (
	// DefaultBaseURL is the record store's REST root.
	DefaultBaseURL = "https://api.airtable.com/v0"

	// DefaultTimeout bounds a single request attempt, not a whole
	// paginated or retried operation.
	DefaultTimeout = 60 * time.Second

	maxPageSize = 100 // store's hard page-size maximum
	maxChunk    = 10  // store's per-request record cap
	maxAttempts = 5

	// rateLimitWait applies to 429 responses without a numeric
	// Retry-After header.
	rateLimitWait = 30 * time.Second

	// interChunkDelay keeps upsert traffic under the documented
	// 5 requests/second ceiling. Unconditional, not adaptive, and local
	// to this client instance only.
	interChunkDelay = 220 * time.Millisecond
)

// Fields is one row's field map as sent to or returned by the store.
type Fields map[string]any

// Record is a raw stored row.
type Record struct {
	ID          string `json:"id,omitempty"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// RecordUpdate addresses an existing row by id for UpdateBatch.
type RecordUpdate struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// WriteResponse is the store's answer to one write request.
type WriteResponse struct {
	Records        []Record `json:"records"`
	CreatedRecords []string `json:"createdRecords,omitempty"`
	UpdatedRecords []string `json:"updatedRecords,omitempty"`
}

// ListOptions narrow a List call.
type ListOptions struct {
	FilterByFormula string
	View            string
	Fields          []string
	PageSize        int // clamped to the store maximum of 100
	MaxRecords      int
	// ReturnFieldsByFieldID keys the returned field maps by immutable
	// field id instead of name, for rename-safe reads.
	ReturnFieldsByFieldID bool
}

// SleepFunc suspends for d or until ctx is done. Injected so tests can
// assert the backoff schedule without waiting it out.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client talks to one record store base. It holds no mutable cross-call
// state beyond the shared transport, so concurrent use from multiple
// goroutines is safe. Rate limiting is local to this instance.
type Client struct {
	token      string
	baseID     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	sleep      SleepFunc
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the store's REST root (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger; the default is a no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger.Named("recordstore") }
}

// WithSleeper replaces the backoff suspension point.
func WithSleeper(sleep SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient creates a client for one base, authenticated with a bearer
// token supplied by the caller.
func NewClient(token, baseID string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseID:     baseID,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseID returns the base this client is bound to.
func (c *Client) BaseID() string {
	return c.baseID
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
}

// request executes one store call with the transport retry policy:
// 429 sleeps for Retry-After (or 30s) and retries, 503 sleeps
// min(8, 2^(attempt-1)) seconds and retries, any other non-success fails
// immediately with status and body, and the fifth failed attempt becomes
// a retries-exhausted error. Each iteration checks ctx so a deadline cuts
// through the backoff sleeps.
func (c *Client) request(ctx context.Context, method, rawURL string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		if query != nil {
			req.URL.RawQuery = query.Encode()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("record store request failed: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := rateLimitWait
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, convErr := strconv.Atoi(ra); convErr == nil && secs >= 0 {
					wait = time.Duration(secs) * time.Second
				}
			}
			drain(resp)
			c.logger.Warn("record store rate limited",
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt))
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		case resp.StatusCode == http.StatusServiceUnavailable:
			wait := time.Duration(math.Min(8, math.Pow(2, float64(attempt-1)))) * time.Second
			drain(resp)
			c.logger.Warn("record store unavailable",
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts))
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		case resp.StatusCode < 200 || resp.StatusCode > 299:
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return &apperrors.StoreError{StatusCode: resp.StatusCode, Body: string(respBody)}

		default:
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return fmt.Errorf("failed to read response: %w", readErr)
			}
			if out != nil {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("failed to parse response: %w", err)
				}
			}
			return nil
		}
	}

	return &apperrors.RetryExhaustedError{Method: method, URL: rawURL, Attempts: maxAttempts}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// List fetches all rows of a table, looping on the opaque offset token
// until the store stops returning one. Accumulation is eager: downstream
// aggregation needs the full set for sorting and priority resolution.
func (c *Client) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	query := url.Values{}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	query.Set("pageSize", strconv.Itoa(pageSize))
	if opts.FilterByFormula != "" {
		query.Set("filterByFormula", opts.FilterByFormula)
	}
	if opts.View != "" {
		query.Set("view", opts.View)
	}
	for _, f := range opts.Fields {
		query.Add("fields[]", f)
	}
	if opts.MaxRecords > 0 {
		query.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}
	if opts.ReturnFieldsByFieldID {
		query.Set("returnFieldsByFieldId", "true")
	}

	var records []Record
	for {
		var page struct {
			Records []Record `json:"records"`
			Offset  string   `json:"offset"`
		}
		if err := c.request(ctx, http.MethodGet, c.tableURL(table), query, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Offset == "" {
			return records, nil
		}
		query.Set("offset", page.Offset)
	}
}

type writeRecord struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

type upsertSpec struct {
	FieldsToMergeOn []string `json:"fieldsToMergeOn"`
}

type writeRequest struct {
	Records       []writeRecord `json:"records"`
	Typecast      bool          `json:"typecast"`
	PerformUpsert *upsertSpec   `json:"performUpsert,omitempty"`
}

// CreateBatch creates rows, transmitting them in chunks of at most 10.
// Per-chunk responses are merged into one.
func (c *Client) CreateBatch(ctx context.Context, table string, rows []Fields) (*WriteResponse, error) {
	merged := &WriteResponse{}
	for _, chunk := range chunkFields(rows, maxChunk) {
		body := writeRequest{Records: toWriteRecords(chunk), Typecast: true}
		var resp WriteResponse
		if err := c.request(ctx, http.MethodPost, c.tableURL(table), nil, body, &resp); err != nil {
			return nil, err
		}
		merged.append(&resp)
	}
	return merged, nil
}

// UpdateBatch updates rows by id, transmitting them in chunks of at most 10.
func (c *Client) UpdateBatch(ctx context.Context, table string, rows []RecordUpdate) (*WriteResponse, error) {
	merged := &WriteResponse{}
	for start := 0; start < len(rows); start += maxChunk {
		end := min(start+maxChunk, len(rows))
		chunk := make([]writeRecord, 0, end-start)
		for _, r := range rows[start:end] {
			chunk = append(chunk, writeRecord{ID: r.ID, Fields: r.Fields})
		}
		body := writeRequest{Records: chunk, Typecast: true}
		var resp WriteResponse
		if err := c.request(ctx, http.MethodPatch, c.tableURL(table), nil, body, &resp); err != nil {
			return nil, err
		}
		merged.append(&resp)
	}
	return merged, nil
}

// UpsertBatch writes rows idempotently: zero matches on mergeFields
// creates, exactly one updates, more than one is a request failure (the
// caller must keep merge fields unique). Chunks of at most 10, with an
// unconditional 220ms delay after each chunk to stay under the store's
// request-rate ceiling.
func (c *Client) UpsertBatch(ctx context.Context, table string, rows []Fields, mergeFields []string) ([]*WriteResponse, error) {
	var responses []*WriteResponse
	for _, chunk := range chunkFields(rows, maxChunk) {
		body := writeRequest{
			Records:       toWriteRecords(chunk),
			Typecast:      true,
			PerformUpsert: &upsertSpec{FieldsToMergeOn: mergeFields},
		}
		var resp WriteResponse
		if err := c.request(ctx, http.MethodPatch, c.tableURL(table), nil, body, &resp); err != nil {
			return responses, err
		}
		responses = append(responses, &resp)

		if err := c.sleep(ctx, interChunkDelay); err != nil {
			return responses, err
		}
	}
	return responses, nil
}

// FetchBaseSchema reads the live table/field schema from the store's
// metadata endpoint. Lock generation and the drift gate consume it.
func (c *Client) FetchBaseSchema(ctx context.Context) (*schemalock.BaseSchema, error) {
	u := fmt.Sprintf("%s/meta/bases/%s/tables", c.baseURL, c.baseID)
	var schema schemalock.BaseSchema
	if err := c.request(ctx, http.MethodGet, u, nil, nil, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

func (w *WriteResponse) append(other *WriteResponse) {
	w.Records = append(w.Records, other.Records...)
	w.CreatedRecords = append(w.CreatedRecords, other.CreatedRecords...)
	w.UpdatedRecords = append(w.UpdatedRecords, other.UpdatedRecords...)
}

func toWriteRecords(rows []Fields) []writeRecord {
	out := make([]writeRecord, 0, len(rows))
	for _, f := range rows {
		out = append(out, writeRecord{Fields: f})
	}
	return out
}

func chunkFields(rows []Fields, size int) [][]Fields {
	var chunks [][]Fields
	for start := 0; start < len(rows); start += size {
		chunks = append(chunks, rows[start:min(start+size, len(rows))])
	}
	return chunks
}
