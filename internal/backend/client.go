package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/skybi/ticketdesk/internal/token"
	"golang.org/x/oauth2"
)

// DefaultTimeout is the timeout applied to every backend exchange unless configured otherwise
const DefaultTimeout = 10 * time.Second

// maxBodySize caps the amount of response body read from the backend
const maxBodySize = 4 << 20

// Client issues requests against the ticketing backend.
// A client is safe for concurrent use; bind it to a token store using WithTokens.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	oauth      *oauth2.Config
	tokens     token.Store
}

// Option configures a Client
type Option func(client *Client)

// WithTimeout overrides the default timeout of every backend exchange
func WithTimeout(timeout time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = timeout
	}
}

// New creates a new backend client using the given base URL
func New(baseURL string, options ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: missing host", baseURL)
	}

	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, option := range options {
		option(client)
	}
	client.httpClient.Transport = &transport{base: client.httpClient.Transport}
	client.oauth = &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  client.endpoint("token"),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return client, nil
}

// WithTokens returns a copy of the client reading the session token from the given store
func (client *Client) WithTokens(store token.Store) *Client {
	cpy := *client
	cpy.tokens = store
	return &cpy
}

// BaseURL returns the base URL of the backend
func (client *Client) BaseURL() string {
	return client.baseURL.String()
}

// Ping checks whether the backend answers HTTP requests at all
func (client *Client) Ping(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.endpoint(), nil)
	if err != nil {
		return err
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return requestError(err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxBodySize))
	response.Body.Close()
	if response.StatusCode >= http.StatusInternalServerError {
		return &Error{Kind: ErrRequest, Status: response.StatusCode, Message: statusMessage(response.StatusCode)}
	}
	return nil
}

func (client *Client) endpoint(segments ...string) string {
	return client.baseURL.JoinPath(segments...).String()
}

// newRequest builds a backend request, encoding body as JSON if given and attaching the current session token
func (client *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	if client.tokens != nil {
		raw, err := client.tokens.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not read the session token: %w", err)
		}
		if raw != "" {
			(&oauth2.Token{AccessToken: raw, TokenType: "Bearer"}).SetAuthHeader(request)
		}
	}
	return request, nil
}

// exchange performs a request and returns the response body if the status indicates success.
// Non-success statuses are classified using the given taxonomy.
func (client *Client) exchange(request *http.Request, taxonomy []error) ([]byte, error) {
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, requestError(err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil && response.StatusCode >= 200 && response.StatusCode <= 299 {
		return nil, requestError(err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, classify(response.StatusCode, body, taxonomy)
	}
	return body, nil
}

// fetch performs a request and decodes the JSON response body into a new T
func fetch[T any](client *Client, request *http.Request, taxonomy []error) (*T, error) {
	body, err := client.exchange(request, taxonomy)
	if err != nil {
		return nil, err
	}

	target := new(T)
	if err := json.Unmarshal(body, target); err != nil {
		return nil, &Error{
			Kind:    ErrRequest,
			Status:  http.StatusOK,
			Message: "The ticketing service sent an invalid response.",
			Cause:   err,
		}
	}
	return target, nil
}

// IsCanceled reports whether err stems from a canceled or timed out context
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
