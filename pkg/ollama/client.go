// Package ollama is a minimal client for an Ollama compatible generation backend
//
// Only the non-streaming generate endpoint and the running model listing are supported.
// Every request is made over https with certificate verification enforced.
package ollama

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	DefaultHost  = "https://localhost:11434"
	DefaultModel = "codellama"
)

// maxErrorBody caps how much of a non-2xx body is kept for the error message
const maxErrorBody = 4096

// Generator is the capability the guide session needs from a backend
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelLister reports the models currently loaded by the backend
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithModel sets the model name sent with each generate request
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithRootCAs replaces the trusted root pool used to verify the backend certificate
func WithRootCAs(pool *x509.CertPool) ClientOption {
	return func(c *Client) {
		c.rootCAs = pool
	}
}

// WithTimeout sets an overall request timeout, zero means no timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header on every request
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// Client talks to the generation backend
type Client struct {
	baseURL    *url.URL
	model      string
	rootCAs    *x509.CertPool
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
}

// NewClient validates the host and builds a verifying https client
//
// A host without a scheme is treated as https, any other scheme is rejected.
func NewClient(host string, opts ...ClientOption) (*Client, error) {
	baseURL, err := parseHost(host)
	if err != nil {
		return nil, err
	}

	c := &Client{baseURL: baseURL, model: DefaultModel, userAgent: "bootc-guide"}
	for _, opt := range opts {
		opt(c)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		RootCAs:    c.rootCAs,
		MinVersion: tls.VersionTLS12,
	}

	c.httpClient = &http.Client{Transport: transport, Timeout: c.timeout}

	return c, nil
}

// Model is the model name sent with generate requests
func (c *Client) Model() string {
	return c.model
}

// Host is the normalized backend address
func (c *Client) Host() string {
	return c.baseURL.String()
}

func parseHost(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid backend host %q: %w", host, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: got %q", ErrInsecureHost, u.Scheme+"://"+u.Host)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid backend host %q: missing host", host)
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

// LoadRootCAs returns the system roots extended with every certificate in the PEM bundle
func LoadRootCAs(bundleFilename string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		slog.Debug("system cert pool unavailable, starting empty", "error", err)
		pool = x509.NewCertPool()
	}

	if bundleFilename == "" {
		return pool, nil
	}

	pemBytes, err := os.ReadFile(bundleFilename)
	if err != nil {
		return nil, fmt.Errorf("read ca bundle: %w", err)
	}

	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("ca bundle %s: no PEM encoded certificates found", bundleFilename)
	}

	return pool, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response *string `json:"response"`
}

// Generate sends a single non-streaming generate request and returns the response text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	slog.Debug("generate request", "host", c.baseURL.Host, "model", c.model, "prompt_bytes", len(prompt))

	respBody, err := c.do(ctx, http.MethodPost, "/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var resp generateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &GenerationError{Kind: MalformedResponse, Err: fmt.Errorf("decode generate response: %w", err)}
	}
	if resp.Response == nil {
		return "", &GenerationError{Kind: MalformedResponse, Err: errors.New("response field is missing")}
	}

	slog.Debug("generate response", "response_bytes", len(*resp.Response))
	return *resp.Response, nil
}

type processResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ListModels returns the names of the running models without their tag suffix
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/api/ps", nil)
	if err != nil {
		return nil, err
	}

	var resp processResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &GenerationError{Kind: MalformedResponse, Err: fmt.Errorf("decode model list: %w", err)}
	}

	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		name, _, _ = strings.Cut(name, ":")
		if name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

func (c *Client) do(ctx context.Context, method string, path string, body io.Reader) ([]byte, error) {
	endpoint := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, &GenerationError{Kind: TransportFailure, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &GenerationError{
			Kind:       TransportFailure,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s %s: %s", method, path, strings.TrimSpace(string(msg))),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenerationError{Kind: TransportFailure, Err: fmt.Errorf("read response body: %w", err)}
	}

	return respBody, nil
}
