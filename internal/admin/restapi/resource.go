package restapi

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
)

// TotalCountHeader is the optional response header carrying the unpaginated collection size.
const TotalCountHeader = "X-Total-Count"

// ErrNotFound is matched by errors.Is when the backend responds with 404.
var ErrNotFound = errors.New("restapi: resource not found")

// HTTPClient matches the subset of http.Client used by Resource.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// StatusError reports a response whose status code the resource does not accept for the verb.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("restapi: %s %s: backend error (%d): %s", e.Method, e.URL, e.StatusCode, msg)
}

// Is allows errors.Is(err, ErrNotFound).
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// PageQuery carries the server-side pagination and ordering parameters.
type PageQuery struct {
	Page   int
	Limit  int
	SortBy string
	Order  string
}

// PageResult holds one page of items plus the size of the whole collection.
type PageResult[T any] struct {
	Items      []T
	TotalItems int
}

// Resource is a typed CRUD client for a single REST collection rooted at a fixed base URL.
type Resource[T any] struct {
	base   *url.URL
	client HTTPClient
	token  string
}

type tokenKey struct{}

// ContextWithToken attaches a per-request bearer token that overrides WithBearerToken.
func ContextWithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(token)
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Option customises a Resource.
type Option func(*options)

type options struct {
	token string
}

// WithBearerToken sends an Authorization header on every request.
func WithBearerToken(token string) Option {
	return func(o *options) {
		o.token = strings.TrimSpace(token)
	}
}

// New constructs a Resource for the collection at baseURL.
func New[T any](baseURL string, client HTTPClient, opts ...Option) (*Resource[T], error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("restapi: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("restapi: parse base URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Resource[T]{base: parsed, client: client, token: o.token}, nil
}

// BaseURL returns the collection URL.
func (r *Resource[T]) BaseURL() string {
	return r.base.String()
}

// All fetches the entire collection.
func (r *Resource[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	if _, err := r.getJSON(ctx, "", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a single item by id.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var item T
	if _, err := r.getJSON(ctx, escapeID(id), nil, &item); err != nil {
		return item, err
	}
	return item, nil
}

// Create posts a new item and returns the backend representation.
func (r *Resource[T]) Create(ctx context.Context, item T) (T, error) {
	var created T
	err := r.sendJSON(ctx, http.MethodPost, "", item, &created, http.StatusOK, http.StatusCreated)
	return created, err
}

// Update replaces the item with the given id.
func (r *Resource[T]) Update(ctx context.Context, id string, item T) (T, error) {
	var updated T
	err := r.sendJSON(ctx, http.MethodPut, escapeID(id), item, &updated, http.StatusOK, http.StatusNoContent)
	return updated, err
}

// Delete removes the item with the given id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	req, err := r.newRequest(ctx, http.MethodDelete, escapeID(id), nil, nil)
	if err != nil {
		return err
	}
	resp, err := r.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return errorFromResponse(req, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Page fetches one server-paginated page. TotalItems comes from the X-Total-Count header when the
// backend sends one; otherwise it is derived from a single unpaginated fetch.
func (r *Resource[T]) Page(ctx context.Context, q PageQuery) (PageResult[T], error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if s := strings.TrimSpace(q.SortBy); s != "" {
		params.Set("sortBy", s)
		if o := strings.TrimSpace(q.Order); o != "" {
			params.Set("order", o)
		}
	}

	var items []T
	header, err := r.getJSON(ctx, "", params, &items)
	if err != nil {
		return PageResult[T]{}, err
	}

	if total, ok := parseTotal(header.Get(TotalCountHeader)); ok {
		return PageResult[T]{Items: items, TotalItems: total}, nil
	}

	all, err := r.All(ctx)
	if err != nil {
		return PageResult[T]{}, fmt.Errorf("restapi: count collection: %w", err)
	}
	return PageResult[T]{Items: items, TotalItems: len(all)}, nil
}

// Search returns every item the backend matches for query.
func (r *Resource[T]) Search(ctx context.Context, query string) ([]T, error) {
	params := url.Values{}
	params.Set("search", strings.TrimSpace(query))
	var items []T
	if _, err := r.getJSON(ctx, "", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Resource[T]) getJSON(ctx context.Context, endpoint string, params url.Values, out any) (http.Header, error) {
	req, err := r.newRequest(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(req, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("restapi: decode %s: %w", req.URL.Path, err)
	}
	return resp.Header, nil
}

func (r *Resource[T]) sendJSON(ctx context.Context, method, endpoint string, payload, out any, accepted ...int) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("restapi: encode payload: %w", err)
	}

	req, err := r.newRequest(ctx, method, endpoint, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !statusAccepted(resp.StatusCode, accepted) {
		return errorFromResponse(req, resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("restapi: read %s response: %w", method, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("restapi: decode %s response: %w", method, err)
	}
	return nil
}

func (r *Resource[T]) newRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) (*http.Request, error) {
	target := r.resolve(endpoint)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("restapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	token := tokenFromContext(ctx)
	if token == "" {
		token = r.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (r *Resource[T]) do(req *http.Request) (*http.Response, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("restapi: %s %s: request failed: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func (r *Resource[T]) resolve(endpoint string) string {
	base := strings.TrimRight(r.base.String(), "/")
	if endpoint == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(endpoint, "/")
}

func escapeID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}

func statusAccepted(code int, accepted []int) bool {
	for _, c := range accepted {
		if c == code {
			return true
		}
	}
	return false
}

func parseTotal(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func errorFromResponse(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	statusErr := &StatusError{
		Method:     req.Method,
		URL:        req.URL.Path,
		StatusCode: resp.StatusCode,
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil {
			statusErr.Message = firstNonEmpty(payload.Message, payload.Error)
		}
		if statusErr.Message == "" {
			statusErr.Message = strings.TrimSpace(string(body))
		}
	}
	return statusErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
