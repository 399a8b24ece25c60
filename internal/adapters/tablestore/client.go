// Package tablestore is a client for a PostgREST-compatible table store
// (e.g. Supabase). The access key decides what the client may do: the
// public key is subject to row-level policies, the service key is not.
package tablestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"karoo_lodge/internal/adapters/httpretry"
	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/domain"
)

const (
	backend      = "rest"
	maxAttempts  = 4
	backoffStart = 200 * time.Millisecond
)

type Client struct {
	base  string
	hc    *http.Client
	key   string
	rl    *rate.Limiter
	reads int // attempts per GET
}

type Option func(*Client)

// WithReadAttempts caps the attempts per GET. Callers that retry reads
// themselves pass 1.
func WithReadAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.reads = n
		}
	}
}

func New(base, key string, rps int, opts ...Option) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("table store key is required")
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid table store url %q", base)
	}
	if rps <= 0 {
		rps = 10
	}
	c := &Client{
		base:  u.String(),
		hc:    &http.Client{Timeout: 20 * time.Second},
		key:   key,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		reads: maxAttempts,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Select(ctx context.Context, table string, q domain.Query) (out []domain.Row, err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "select", table, start, err) }()

	v := url.Values{}
	if len(q.Columns) > 0 {
		v.Set("select", strings.Join(q.Columns, ","))
	} else {
		v.Set("select", "*")
	}
	if err := addFilters(v, q.Filters); err != nil {
		return nil, c.fail("select", table, err)
	}
	if len(q.Orders) > 0 {
		parts := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			parts[i] = orderParam(o)
		}
		v.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	var raw []map[string]any
	if err := c.do(ctx, http.MethodGet, table, v, nil, nil, &raw); err != nil {
		return nil, c.fail("select", table, err)
	}
	out = make([]domain.Row, len(raw))
	for i, r := range raw {
		out[i] = domain.Row(r)
	}
	return out, nil
}

func (c *Client) Insert(ctx context.Context, table string, rows ...domain.Row) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "insert", table, start, err) }()
	if len(rows) == 0 {
		return nil
	}
	h := http.Header{"Prefer": {"return=minimal"}}
	return c.fail("insert", table, c.do(ctx, http.MethodPost, table, nil, h, rows, nil))
}

func (c *Client) Upsert(ctx context.Context, table string, rows []domain.Row) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "upsert", table, start, err) }()
	if len(rows) == 0 {
		return nil
	}
	for i, r := range rows {
		if id, _ := r["id"].(string); id == "" {
			return c.fail("upsert", table, fmt.Errorf("%w: upsert row %d has no id", domain.ErrInvalid, i))
		}
	}
	v := url.Values{"on_conflict": {"id"}}
	h := http.Header{"Prefer": {"resolution=merge-duplicates,return=minimal"}}
	return c.fail("upsert", table, c.do(ctx, http.MethodPost, table, v, h, rows, nil))
}

func (c *Client) Update(ctx context.Context, table string, values domain.Row, filters ...domain.Filter) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "update", table, start, err) }()
	if len(filters) == 0 {
		return c.fail("update", table, fmt.Errorf("%w: update without filters", domain.ErrInvalid))
	}
	v := url.Values{}
	if err := addFilters(v, filters); err != nil {
		return c.fail("update", table, err)
	}
	body := make(domain.Row, len(values))
	for k, val := range values {
		if k != "id" {
			body[k] = val
		}
	}
	h := http.Header{"Prefer": {"return=minimal"}}
	return c.fail("update", table, c.do(ctx, http.MethodPatch, table, v, h, body, nil))
}

func (c *Client) Delete(ctx context.Context, table string, filters ...domain.Filter) (err error) {
	start := time.Now()
	defer func() { observability.ObserveGateway(backend, "delete", table, start, err) }()
	if len(filters) == 0 {
		return c.fail("delete", table, fmt.Errorf("%w: delete without filters", domain.ErrInvalid))
	}
	v := url.Values{}
	if err := addFilters(v, filters); err != nil {
		return c.fail("delete", table, err)
	}
	return c.fail("delete", table, c.do(ctx, http.MethodDelete, table, v, nil, nil, nil))
}

func (c *Client) fail(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StoreError{Backend: backend, Op: op, Table: table, Err: err}
}

// ---- Query encoding ----

func addFilters(v url.Values, fs []domain.Filter) error {
	for _, f := range fs {
		if f.Column == "" || strings.ContainsAny(f.Column, "&=,.()") {
			return fmt.Errorf("%w: bad filter column %q", domain.ErrInvalid, f.Column)
		}
		switch f.Op {
		case domain.OpEq:
			if f.Value == nil {
				v.Add(f.Column, "is.null")
				continue
			}
			v.Add(f.Column, "eq."+fmt.Sprint(f.Value))
		case domain.OpIn:
			vs, ok := f.Value.([]string)
			if !ok {
				return fmt.Errorf("%w: in filter on %s needs []string", domain.ErrInvalid, f.Column)
			}
			quoted := make([]string, len(vs))
			for i, s := range vs {
				quoted[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
			}
			v.Add(f.Column, "in.("+strings.Join(quoted, ",")+")")
		default:
			return fmt.Errorf("%w: unsupported filter op %q", domain.ErrInvalid, f.Op)
		}
	}
	return nil
}

func orderParam(o domain.Order) string {
	s := o.Column + ".asc"
	if o.Desc {
		s = o.Column + ".desc"
	}
	if o.NullsFirst {
		return s + ".nullsfirst"
	}
	return s + ".nullslast"
}

// ---- Transport ----

// remoteError is the error body PostgREST returns.
type remoteError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (e *remoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad status %d", e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

func (e *remoteError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return target == domain.ErrForbidden
	case http.StatusNotFound:
		return target == domain.ErrNotFound
	}
	return false
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// do sends one request with client-side rate limiting. Only GETs are
// retried (429 and transient 5xx, honoring Retry-After); writes fail on the
// first error so callers can surface it at once.
func (c *Client) do(ctx context.Context, method, table string, q url.Values, h http.Header, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	u := c.base + "/rest/v1/" + url.PathEscape(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = c.reads
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "karoo-lodge/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, vs := range h {
			req.Header[k] = vs
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < attempts-1 && httpretry.Sleep(ctx, httpretry.Backoff(backoffStart, i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("tablestore", method, resp.StatusCode)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			if out == nil || resp.StatusCode == http.StatusNoContent {
				_, _ = io.Copy(io.Discard, resp.Body)
				return nil
			}
			dec := json.NewDecoder(resp.Body)
			dec.UseNumber()
			return dec.Decode(out)
		}

		rerr := readRemoteError(resp)
		if retryable(resp.StatusCode) && i < attempts-1 {
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := httpretry.RetryAfter(resp)
			if wait == 0 {
				wait = httpretry.Backoff(backoffStart, i)
			}
			lastErr = rerr
			if httpretry.Sleep(ctx, wait) {
				continue
			}
			return ctx.Err()
		}
		return rerr
	}
	return lastErr
}

func readRemoteError(resp *http.Response) error {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	e := &remoteError{Status: resp.StatusCode}
	if err := json.Unmarshal(b, e); err != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(b))
		if e.Message == "" {
			e.Message = fmt.Sprintf("bad status %d", resp.StatusCode)
		}
	}
	return e
}
