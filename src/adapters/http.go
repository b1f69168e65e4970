package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andreasronge/neo4j-core/src/session"
)

// HTTPSession talks to the transactional HTTP endpoint
// (POST /db/{database}/tx/commit). Every Query is a single auto-committed
// transaction.
type HTTPSession struct {
	endpoint string
	username string
	password string
	client   *http.Client
}

// HTTPOption customizes an HTTPSession.
type HTTPOption func(*HTTPSession)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSession) { s.client = c }
}

// WithBasicAuth sets credentials for HTTP basic authentication.
func WithBasicAuth(username, password string) HTTPOption {
	return func(s *HTTPSession) {
		s.username = username
		s.password = password
	}
}

// NewHTTPSession builds a session against a server base URL such as
// http://localhost:7474. Credentials embedded in the URL take effect unless
// overridden by WithBasicAuth. The database defaults to "neo4j".
func NewHTTPSession(baseURL, database string, opts ...HTTPOption) (*HTTPSession, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %s: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q, want http or https", u.Scheme)
	}
	if database == "" {
		database = "neo4j"
	}

	s := &HTTPSession{
		endpoint: strings.TrimRight(u.Scheme+"://"+u.Host, "/") + "/db/" + database + "/tx/commit",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	if u.User != nil {
		s.username = u.User.Username()
		s.password, _ = u.User.Password()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type txStatement struct {
	Statement  string                 `json:"statement"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type txRequest struct {
	Statements []txStatement `json:"statements"`
}

type txResponse struct {
	Results []struct {
		Columns []string `json:"columns"`
		Data    []struct {
			Row []interface{} `json:"row"`
		} `json:"data"`
	} `json:"results"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (s *HTTPSession) Query(ctx context.Context, cypher string, params map[string]interface{}, tag string) (session.Result, error) {
	body, err := json.Marshal(txRequest{
		Statements: []txStatement{{Statement: cypher, Parameters: params}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode statement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tag != "" {
		req.Header.Set("X-Query-Context", tag)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed txResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return &session.Failure{E: &session.QueryError{
				Message: http.StatusText(resp.StatusCode),
				Status:  resp.StatusCode,
			}}, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		first := parsed.Errors[0]
		return &session.Failure{E: &session.QueryError{
			Message: first.Message,
			Code:    first.Code,
			Status:  resp.StatusCode,
		}}, nil
	}

	if len(parsed.Results) == 0 {
		return session.NewServerResult(nil, nil), nil
	}

	res := parsed.Results[0]
	rows := make([]map[string]interface{}, 0, len(res.Data))
	for _, d := range res.Data {
		record := make(map[string]interface{}, len(res.Columns))
		for i, col := range res.Columns {
			if i < len(d.Row) {
				record[col] = d.Row[i]
			}
		}
		rows = append(rows, record)
	}
	return session.NewServerResult(res.Columns, rows), nil
}

func (s *HTTPSession) Close() error { return nil }
