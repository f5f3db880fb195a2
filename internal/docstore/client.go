// Package docstore queries a remote shipment document store through an
// Atlas Data API compatible findOne endpoint.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotConnected = errors.New("docstore: not connected")
	ErrNoDocument   = errors.New("docstore: no document matched")
	ErrInsecureURL  = errors.New("docstore: API URL must use HTTPS to protect credentials")
	ErrInvalidField = errors.New("docstore: field must be blNo, bookingNo or containerNo")
)

// Fields that Query accepts.
var Fields = []string{"blNo", "bookingNo", "containerNo"}

type Config struct {
	URL        string `json:"url" yaml:"url"`
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"-" yaml:"password"`
}

// Enabled reports whether a URL is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.URL) != "" }

// CheckURL accepts https URLs and plain http only for loopback hosts.
func CheckURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return fmt.Errorf("docstore: invalid API URL %q", raw)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
	}
	return ErrInsecureURL
}

// HTTPError is a non-2xx answer from the document store.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("docstore: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("docstore: HTTP %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	HTTP *http.Client

	mu        sync.RWMutex
	cfg       Config
	connected bool
}

func NewClient(cfg Config) (*Client, error) {
	if err := CheckURL(cfg.URL); err != nil {
		return nil, err
	}
	cfg.URL = strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	return &Client{HTTP: &http.Client{Timeout: 15 * time.Second}, cfg: cfg}, nil
}

// Connect checks credentials with an empty findOne. A failed attempt leaves
// the client disconnected.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.findOne(ctx, map[string]string{})
	c.mu.Lock()
	c.connected = err == nil
	c.mu.Unlock()
	return err
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Query fetches the first document whose field equals value. The Data API
// {document: ...} wrapper is removed.
func (c *Client) Query(ctx context.Context, field, value string) (json.RawMessage, error) {
	if !validField(field) {
		return nil, ErrInvalidField
	}
	if !c.Connected() {
		return nil, ErrNotConnected
	}
	body, err := c.findOne(ctx, map[string]string{field: value})
	if err != nil {
		return nil, err
	}
	var wrapped map[string]json.RawMessage
	if json.Unmarshal(body, &wrapped) == nil {
		if doc, ok := wrapped["document"]; ok {
			if string(bytes.TrimSpace(doc)) == "null" {
				return nil, ErrNoDocument
			}
			return doc, nil
		}
	}
	if string(bytes.TrimSpace(body)) == "null" {
		return nil, ErrNoDocument
	}
	return body, nil
}

type findOneRequest struct {
	DataSource string            `json:"dataSource"`
	Database   string            `json:"database"`
	Collection string            `json:"collection"`
	Filter     map[string]string `json:"filter"`
}

func (c *Client) findOne(ctx context.Context, filter map[string]string) ([]byte, error) {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	payload, err := json.Marshal(findOneRequest{
		DataSource: "default",
		Database:   cfg.Database,
		Collection: cfg.Collection,
		Filter:     filter,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL+"/action/findOne", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(cfg.Username, cfg.Password)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("docstore: findOne: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("docstore: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		return e.Error
	}
	return ""
}

func validField(f string) bool {
	for _, v := range Fields {
		if v == f {
			return true
		}
	}
	return false
}
