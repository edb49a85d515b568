package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"tododeck/internal/failure"
	"tododeck/internal/todo"
)

const (
	DefaultBaseURL    = "https://jsonplaceholder.typicode.com/todos"
	DefaultPageParam  = "_page"
	DefaultLimitParam = "_limit"
	DefaultTimeout    = 10 * time.Second

	maxBodyBytes = 4 << 20
)

type Options struct {
	BaseURL    string
	PageParam  string
	LimitParam string
	Timeout    time.Duration
	HTTPClient *http.Client
	Clock      func() time.Time
}

// Client fetches pages of todos from the remote collection resource.
type Client struct {
	base       *url.URL
	pageParam  string
	limitParam string
	http       *http.Client
	schema     *jsonschema.Schema
	now        func() time.Time
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	if opts.PageParam == "" {
		opts.PageParam = DefaultPageParam
	}
	if opts.LimitParam == "" {
		opts.LimitParam = DefaultLimitParam
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	schema, err := compilePageSchema()
	if err != nil {
		return nil, err
	}
	return &Client{
		base:       base,
		pageParam:  opts.PageParam,
		limitParam: opts.LimitParam,
		http:       opts.HTTPClient,
		schema:     schema,
		now:        opts.Clock,
	}, nil
}

type wireTodo struct {
	ID        int        `json:"id"`
	UserID    int        `json:"userId"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// FetchPage retrieves one page and maps it to records. Either the whole page
// is returned or an error of kind network or parse.
func (c *Client) FetchPage(ctx context.Context, page, size int) ([]todo.Record, error) {
	if page < 1 || size < 1 {
		return nil, fmt.Errorf("invalid page %d or size %d", page, size)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(page, size), nil)
	if err != nil {
		return nil, failure.Network(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, failure.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure.Networkf("GET page %d: unexpected status %s", page, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, failure.Network(fmt.Errorf("read body: %w", err))
	}
	return c.decode(body)
}

func (c *Client) pageURL(page, size int) string {
	u := *c.base
	q := u.Query()
	q.Set(c.pageParam, strconv.Itoa(page))
	q.Set(c.limitParam, strconv.Itoa(size))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) decode(body []byte) ([]todo.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, failure.Parse(fmt.Errorf("decode payload: %w", err))
	}
	if err := c.schema.Validate(doc); err != nil {
		return nil, failure.Parse(schemaError(err))
	}

	var items []wireTodo
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, failure.Parse(fmt.Errorf("decode todos: %w", err))
	}

	now := c.now()
	records := make([]todo.Record, 0, len(items))
	for _, it := range items {
		r := todo.Record{
			ID:        it.ID,
			UserID:    it.UserID,
			Title:     it.Title,
			Completed: it.Completed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if it.CreatedAt != nil {
			r.CreatedAt = *it.CreatedAt
			r.UpdatedAt = *it.CreatedAt
		}
		if it.UpdatedAt != nil && !it.UpdatedAt.Before(r.CreatedAt) {
			r.UpdatedAt = *it.UpdatedAt
		}
		records = append(records, r)
	}
	return records, nil
}
