package restclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Request timeout is fixed at construction time; there is no per-call override.
const defaultTimeout = 30 * time.Second

// Authenticator mutates an outgoing request with credentials, e.g. basic
// auth headers or a SigV4 signature. Implementations live in the auth package.
type Authenticator interface {
	Apply(ctx context.Context, req *http.Request) error
}

type Interface interface {
	Get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, int, error)
	Head(ctx context.Context, endpoint string) (int, error)
	Post(ctx context.Context, endpoint string, body any, headers map[string]string) ([]byte, int, error)
	PostRaw(ctx context.Context, endpoint string, body []byte, contentType string) ([]byte, int, error)
	Put(ctx context.Context, endpoint string, body any, headers map[string]string) ([]byte, int, error)
	Delete(ctx context.Context, endpoint string, headers map[string]string) ([]byte, int, error)
}

var _ Interface = &RestClient{}

type RestClient struct {
	baseURL    string
	headers    map[string]string
	auth       Authenticator
	httpClient *http.Client
}

func NewRestClient(baseURL string, headers map[string]string, auth Authenticator) *RestClient {
	return &RestClient{
		baseURL: baseURL,
		headers: headers,
		auth:    auth,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

func (c *RestClient) do(ctx context.Context, method, endpoint string, body []byte, contentType string, headers map[string]string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}
	for key, value := range c.headers {
		request.Header.Set(key, value)
	}
	// Auth goes last so signatures cover the final set of headers.
	if c.auth != nil {
		if err = c.auth.Apply(ctx, request); err != nil {
			return nil, 0, err
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, 0, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	return responseBody, response.StatusCode, err
}

func (c *RestClient) Get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, int, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, "", headers)
}

func (c *RestClient) Head(ctx context.Context, endpoint string) (int, error) {
	_, status, err := c.do(ctx, http.MethodHead, endpoint, nil, "", nil)
	return status, err
}

func (c *RestClient) Post(ctx context.Context, endpoint string, body any, headers map[string]string) ([]byte, int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	return c.do(ctx, http.MethodPost, endpoint, jsonBody, "application/json", headers)
}

// PostRaw sends a pre-encoded body, e.g. newline-delimited JSON for bulk writes.
func (c *RestClient) PostRaw(ctx context.Context, endpoint string, body []byte, contentType string) ([]byte, int, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, contentType, nil)
}

func (c *RestClient) Put(ctx context.Context, endpoint string, body any, headers map[string]string) ([]byte, int, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	return c.do(ctx, http.MethodPut, endpoint, jsonBody, "application/json", headers)
}

func (c *RestClient) Delete(ctx context.Context, endpoint string, headers map[string]string) ([]byte, int, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, "", headers)
}
