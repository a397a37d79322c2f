// Package api implements the HTTP client for the storefront chat backend:
// the agent streaming endpoint and the session/history REST collaborators.
package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog"

	"github.com/diogo/shopchat/internal/config"
	"github.com/diogo/shopchat/internal/models"
)

// StoreClientInterface defines the operations the rest of the application
// needs from the backend client. Satisfied by StoreClient and MockStoreClient.
type StoreClientInterface interface {
	Stream(ctx context.Context, userID, message, sessionID string, cb StreamCallbacks)
	ListSessions(userID string) ([]models.Session, error)
	CreateSession(userID string) (string, error)
	DeleteSession(sessionID string) error
	GetHistory(sessionID string) ([]models.Message, error)
	ClearHistory(sessionID string) error
	UserID() string
	Close()
}

// StoreClient is the main client for the storefront chat backend
type StoreClient struct {
	httpClient tls_client.HttpClient
	baseURL    string
	creds      *config.Credentials
	logger     zerolog.Logger
	timeout    time.Duration
	mu         sync.RWMutex
	closed     bool
}

var _ StoreClientInterface = (*StoreClient)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*StoreClient)

// WithBaseURL overrides the backend base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *StoreClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *StoreClient) {
		c.timeout = timeout
	}
}

// WithLogger sets the structured logger used for stream diagnostics
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *StoreClient) {
		c.logger = logger
	}
}

// NewClient creates a new StoreClient
func NewClient(creds *config.Credentials, opts ...ClientOption) (*StoreClient, error) {
	if err := config.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	client := &StoreClient{
		baseURL: models.DefaultBaseURL,
		creds:   creds,
		logger:  zerolog.Nop(),
		timeout: 300 * time.Second,
	}

	for _, opt := range opts {
		opt(client)
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(client.timeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	client.httpClient = httpClient

	return client, nil
}

// Close marks the client closed. In-flight streams run to completion; new
// operations fail.
func (c *StoreClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// IsClosed returns whether the client is closed
func (c *StoreClient) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// UserID returns the authenticated shopper's id
func (c *StoreClient) UserID() string {
	return c.creds.UserID
}

// BaseURL returns the configured backend base URL
func (c *StoreClient) BaseURL() string {
	return c.baseURL
}

// endpoint joins the base URL with an API path
func (c *StoreClient) endpoint(path string, args ...interface{}) string {
	return c.baseURL + fmt.Sprintf(path, args...)
}

// setCommonHeaders applies the default and auth headers to a request
func (c *StoreClient) setCommonHeaders(setHeader func(key, value string)) {
	for key, value := range models.DefaultHeaders() {
		setHeader(key, value)
	}
	if c.creds.APIToken != "" {
		setHeader("Authorization", "Bearer "+c.creds.APIToken)
	}
}
