package schemaregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hamba/avro/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/avro-model/errors"
)

// ContentType is the media type of registry request bodies.
const ContentType = "application/vnd.schemaregistry.v1+json"

// Client talks to a Confluent-compatible schema registry over REST.
//
// Fetched schemas and registered ids are cached for the lifetime of the
// client; ids are immutable in a registry so the caches never expire.
// Concurrent fetches of the same id share one request.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	fetches singleflight.Group

	mu   sync.RWMutex
	byID map[int]avro.Schema
	ids  map[subjectKey]int
}

// subjectKey is a subject and the hash of a full schema document.
type subjectKey struct {
	subject string
	schema  [32]byte
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the registry at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
		byID:    make(map[int]avro.Schema),
		ids:     make(map[subjectKey]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type schemaRequest struct {
	Schema string `json:"schema"`
}

type schemaResponse struct {
	Subject string `json:"subject,omitempty"`
	Version int    `json:"version,omitempty"`
	ID      int    `json:"id,omitempty"`
	Schema  string `json:"schema,omitempty"`
}

// ResponseError is a non-2xx answer from the registry.
type ResponseError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"error_code"`
	Message    string `json:"message"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("schema registry: %d %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Register stores schema under subject and returns its id.
func (c *Client) Register(ctx context.Context, subject string, schema avro.Schema) (int, error) {
	sum, text, err := identity(schema)
	if err != nil {
		return 0, err
	}
	key := subjectKey{subject: subject, schema: sum}

	c.mu.RLock()
	id, ok := c.ids[key]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	var resp schemaResponse
	path := "/subjects/" + url.PathEscape(subject) + "/versions"
	if err := c.do(ctx, http.MethodPost, path, schemaRequest{Schema: text}, &resp); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.ids[key] = resp.ID
	c.byID[resp.ID] = schema
	c.mu.Unlock()

	c.logger.Debug("schema registered",
		zap.String("subject", subject),
		zap.Int("id", resp.ID),
	)
	return resp.ID, nil
}

// Lookup returns the id of schema if it is registered under subject.
func (c *Client) Lookup(ctx context.Context, subject string, schema avro.Schema) (int, error) {
	sum, text, err := identity(schema)
	if err != nil {
		return 0, err
	}
	key := subjectKey{subject: subject, schema: sum}

	c.mu.RLock()
	id, ok := c.ids[key]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	var resp schemaResponse
	if err := c.do(ctx, http.MethodPost, "/subjects/"+url.PathEscape(subject), schemaRequest{Schema: text}, &resp); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.ids[key] = resp.ID
	c.mu.Unlock()
	return resp.ID, nil
}

// Fetch returns the schema registered under id.
func (c *Client) Fetch(ctx context.Context, id int) (avro.Schema, error) {
	c.mu.RLock()
	s, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, shared := c.fetches.Do(strconv.Itoa(id), func() (any, error) {
		var resp schemaResponse
		if err := c.do(ctx, http.MethodGet, "/schemas/ids/"+strconv.Itoa(id), nil, &resp); err != nil {
			return nil, err
		}
		schema, err := avro.ParseWithCache(resp.Schema, "", &avro.SchemaCache{})
		if err != nil {
			return nil, errors.Wrap(errors.PhaseRegistry, errors.KindInvalidSchema, err,
				fmt.Sprintf("schema id %d does not parse", id))
		}

		c.mu.Lock()
		c.byID[id] = schema
		c.mu.Unlock()
		return schema, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("schema fetched",
		zap.Int("id", id),
		zap.Bool("shared", shared),
	)
	return v.(avro.Schema), nil
}

// Subjects lists the subjects known to the registry.
func (c *Client) Subjects(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/subjects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(errors.PhaseRegistry, errors.KindInvalidData, err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(errors.PhaseRegistry, errors.KindRemote, err, "build request")
	}
	req.Header.Set("Accept", ContentType)
	if in != nil {
		req.Header.Set("Content-Type", ContentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.PhaseRegistry, errors.KindRemote, err, method+" "+path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		re := &ResponseError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(re)
		if re.Message == "" {
			re.Message = http.StatusText(resp.StatusCode)
		}
		kind := errors.KindRemote
		if resp.StatusCode == http.StatusNotFound {
			kind = errors.KindNotFound
		}
		return errors.Wrap(errors.PhaseRegistry, kind, re, method+" "+path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.PhaseRegistry, errors.KindInvalidData, err, "decode response")
	}
	return nil
}
