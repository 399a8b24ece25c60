// Package adminapi is the typed client for the lodge admin and public HTTP
// endpoints, used by the operator console.
package adminapi

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

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"karoo_lodge/internal/adapters/httpretry"
	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/app"
	"karoo_lodge/internal/domain"
)

type Client struct {
	base  string
	hc    *http.Client
	token string // admin JWT
	maint string // maintenance token
	rl    *rate.Limiter
	delay time.Duration
}

type Option func(*Client)

func WithMaintenanceToken(tok string) Option { return func(c *Client) { c.maint = tok } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func New(base, token string, rps int, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("admin api url: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		delay: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Error is a non-2xx answer from the API.
type Error struct {
	Status     int
	Message    string
	retryAfter time.Duration
}

func (e *Error) Error() string { return fmt.Sprintf("admin api %d: %s", e.Status, e.Message) }

func (e *Error) Is(target error) bool {
	switch target {
	case domain.ErrInvalid:
		return e.Status == http.StatusBadRequest
	case domain.ErrForbidden:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case domain.ErrBusy:
		return e.Status == http.StatusConflict
	case domain.ErrNotConfigured:
		return e.Status == http.StatusInternalServerError && strings.Contains(e.Message, "not configured")
	}
	return false
}

func retryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status == http.StatusTooManyRequests || (ae.Status >= 500 && !errors.Is(ae, domain.ErrNotConfigured))
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

type okResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// ---- admin writes (never retried) ----

func (c *Client) UpsertSection(ctx context.Context, sec domain.Section) (string, error) {
	var out okResponse
	err := c.send(ctx, http.MethodPost, "/api/admin/"+sec.Kind().Slug()+"/upsert", c.token, sec, &out)
	return out.ID, err
}

func (c *Client) CreateItem(ctx context.Context, f domain.Editable) (string, error) {
	var out okResponse
	err := c.send(ctx, http.MethodPost, "/api/admin/"+string(f.Collection())+"/create", c.token, f, &out)
	return out.ID, err
}

func (c *Client) UpdateItem(ctx context.Context, id string, f domain.Editable) error {
	body := map[string]any{"id": id, "payload": f}
	return c.send(ctx, http.MethodPost, "/api/admin/"+string(f.Collection())+"/update", c.token, body, nil)
}

func (c *Client) DeleteItem(ctx context.Context, coll domain.Collection, id string) error {
	return c.send(ctx, http.MethodPost, "/api/admin/"+string(coll)+"/delete", c.token, map[string]string{"id": id}, nil)
}

func (c *Client) Reorder(ctx context.Context, coll domain.Collection, order []domain.RankAssignment) error {
	body := map[string]any{"order": order}
	return c.send(ctx, http.MethodPost, "/api/admin/"+string(coll)+"/reorder", c.token, body, nil)
}

// Dedupe runs the maintenance job remotely; it needs the maintenance token.
func (c *Client) Dedupe(ctx context.Context) (app.DedupeReport, error) {
	var out struct {
		Removed app.DedupeReport `json:"removed"`
	}
	err := c.send(ctx, http.MethodPost, "/api/admin/maintenance/dedupe", c.maint, nil, &out)
	return out.Removed, err
}

// ---- reads (retried once) ----

func (c *Client) Submissions(ctx context.Context, kind domain.SubmissionKind, limit int) ([]domain.Submission, error) {
	q := url.Values{"kind": {string(kind)}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Data []domain.Submission `json:"data"`
	}
	err := c.read(ctx, "/api/admin/submissions?"+q.Encode(), c.token, &out)
	return out.Data, err
}

func (c *Client) Health(ctx context.Context) (app.HealthReport, error) {
	var out app.HealthReport
	return out, c.read(ctx, "/api/admin/health", c.token, &out)
}

// Page is a public read: the data and where it was served from.
type Page[T any] struct {
	Data   T          `json:"data"`
	Source app.Source `json:"source"`
}

// Collection reads the public, ordered view of a collection.
func Collection[T any](ctx context.Context, c *Client, coll domain.Collection) (Page[[]T], error) {
	var out Page[[]T]
	return out, c.read(ctx, "/v1/"+string(coll), "", &out)
}

// Section reads the public view of one section.
func Section[T domain.Section](ctx context.Context, c *Client, k domain.SectionKind) (Page[T], error) {
	var out Page[T]
	return out, c.read(ctx, "/v1/sections/"+k.Slug(), "", &out)
}

// ---- internals ----

func (c *Client) read(ctx context.Context, path, auth string, out any) error {
	return retry.Do(
		func() error { return c.send(ctx, http.MethodGet, path, auth, nil, out) },
		retry.Context(ctx),
		retry.Attempts(2),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			var ae *Error
			if errors.As(err, &ae) && ae.retryAfter > 0 {
				return ae.retryAfter
			}
			return httpretry.Backoff(c.delay, int(n))
		}),
	)
}

func (c *Client) send(ctx context.Context, method, path, auth string, body, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "lodgectl/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("adminapi", method, resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
	// read a small error body for diagnostics
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	ae := &Error{Status: resp.StatusCode, retryAfter: httpretry.RetryAfter(resp)}
	var eb struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &eb) == nil && eb.Error != "" {
		ae.Message = eb.Error
	} else {
		ae.Message = strings.TrimSpace(string(b))
	}
	return ae
}
