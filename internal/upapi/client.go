package upapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

const (
	// BaseURL is the production Up API endpoint.
	BaseURL = "https://api.up.com.au/api/v1"

	// DefaultPageSize is the transactions page size when callers pass a
	// non-positive value. Most recent first; one page is plenty for
	// dashboards and notifications.
	DefaultPageSize = 50

	webhookDescription = "up-bridge"
)

// ErrUnauthorized marks an HTTP 401 from the Up API: the configured token
// is invalid or revoked.
var ErrUnauthorized = errors.New("upapi: unauthorized, invalid API token")

// StatusError is a non-success HTTP response that was not a 401.
type StatusError struct {
	Method   string
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upapi: %s %s: status %d", e.Method, e.Endpoint, e.Code)
}

// IsNotFound reports whether err is an HTTP 404 from the Up API, which
// confirms a resource is gone as opposed to a failed probe.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// Client is a stateless wrapper over the Up REST API. It attaches the bearer
// token, decodes JSON:API envelopes, and normalizes every failure (transport
// error, 401, any other non-success status) into an error return after
// logging the cause. No retries here: retry policy belongs to the caller.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(token string, httpClient *http.Client, logger *logrus.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    BaseURL,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewClientWithBaseURL is NewClient against a non-production endpoint,
// used by tests.
func NewClientWithBaseURL(baseURL, token string, httpClient *http.Client, logger *logrus.Logger) *Client {
	client := NewClient(token, httpClient, logger)
	client.baseURL = baseURL
	return client
}

func (c *Client) call(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("upapi: encoding %s %s body: %w", method, endpoint, err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return fmt.Errorf("upapi: building %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugf("Client.call.%v %v", method, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Errorf("Client.call.network error on %v %v", method, endpoint)
		return fmt.Errorf("upapi: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	case http.StatusUnauthorized:
		c.logger.Errorf("Client.call.unauthorized on %v %v", method, endpoint)
		return ErrUnauthorized
	default:
		statusErr := &StatusError{Method: method, Endpoint: endpoint, Code: resp.StatusCode}
		c.logger.WithError(statusErr).Errorf("Client.call.unexpected status on %v %v", method, endpoint)
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.WithError(err).Errorf("Client.call.decode error on %v %v", method, endpoint)
		return fmt.Errorf("upapi: decoding %s %s response: %w", method, endpoint, err)
	}
	return nil
}

func (c *Client) GetAccounts(ctx context.Context) (*AccountsEnvelope, error) {
	envelope := &AccountsEnvelope{}
	if err := c.call(ctx, http.MethodGet, "/accounts", nil, nil, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*AccountEnvelope, error) {
	envelope := &AccountEnvelope{}
	if err := c.call(ctx, http.MethodGet, "/accounts/"+accountID, nil, nil, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// GetTransactions fetches a single page of transactions, most recent first.
func (c *Client) GetTransactions(ctx context.Context, pageSize int) (*TransactionsEnvelope, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	params := url.Values{}
	params.Set("page[size]", fmt.Sprintf("%d", pageSize))

	envelope := &TransactionsEnvelope{}
	if err := c.call(ctx, http.MethodGet, "/transactions", params, nil, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*TransactionEnvelope, error) {
	envelope := &TransactionEnvelope{}
	if err := c.call(ctx, http.MethodGet, "/transactions/"+transactionID, nil, nil, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func (c *Client) GetCategories(ctx context.Context) (*CategoriesEnvelope, error) {
	envelope := &CategoriesEnvelope{}
	if err := c.call(ctx, http.MethodGet, "/categories", nil, nil, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func (c *Client) GetTags(ctx context.Context) (*TagsEnvelope, error) {
	envelope := &TagsEnvelope{}
	if err := c.call(ctx, http.MethodGet, "/tags", nil, nil, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// CreateWebhook registers callbackURL with Up and returns the new webhook,
// whose attributes carry the shared secret. The secret is only ever
// returned on creation.
func (c *Client) CreateWebhook(ctx context.Context, callbackURL string) (*Webhook, error) {
	request := webhookCreateRequest{
		Data: webhookCreateData{
			Attributes: webhookCreateAttributes{
				URL:         callbackURL,
				Description: webhookDescription,
			},
		},
	}

	envelope := &WebhookEnvelope{}
	if err := c.call(ctx, http.MethodPost, "/webhooks", nil, request, envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// WebhookExists probes the remote webhook with a ping delivery. A 404 means
// confirmed absent (false, nil); any other failure is a probe error and is
// returned so callers can distinguish it from absence.
func (c *Client) WebhookExists(ctx context.Context, webhookID string) (bool, error) {
	err := c.call(ctx, http.MethodPost, "/webhooks/"+webhookID+"/ping", nil, nil, nil)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (c *Client) ListWebhooks(ctx context.Context) (*WebhooksEnvelope, error) {
	envelope := &WebhooksEnvelope{}
	if err := c.call(ctx, http.MethodGet, "/webhooks", nil, nil, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	return c.call(ctx, http.MethodDelete, "/webhooks/"+webhookID, nil, nil, nil)
}

// Ping validates the configured token against the API.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/util/ping", nil, nil, nil)
}
