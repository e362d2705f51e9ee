// Package mirror implements a read-only client for the ledger's public
// index service (the Hedera mirror node REST API).
//
// The client covers the three read surfaces the rest of agrod needs:
// transaction lists by account, topic detail by id, and topic messages
// with payload decoding. All calls honor the passed context and the
// configured client timeout; none retry.
package mirror

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotFound indicates the requested entity does not exist on the
	// mirror node.
	ErrNotFound = errors.New("mirror: not found")

	// ErrUnavailable indicates the mirror node could not be reached or
	// answered with a server error.
	ErrUnavailable = errors.New("mirror: index service unavailable")
)

// Client queries the mirror node REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a mirror node client. The timeout bounds every
// request issued through the embedded http.Client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// AccountTransactions lists recent transactions for an account. When
// typeFilter is non-empty it is passed as the mirror node's type query
// parameter, narrowing the result to one transaction kind.
func (c *Client) AccountTransactions(ctx context.Context, accountID, typeFilter string, limit int) ([]Transaction, error) {
	q := url.Values{}
	q.Set("account.id", accountID)
	q.Set("limit", fmt.Sprintf("%d", limit))
	if typeFilter != "" {
		q.Set("type", typeFilter)
	}

	var resp transactionsResponse
	if err := c.get(ctx, "/api/v1/transactions?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched account transactions",
		zap.String("account_id", accountID),
		zap.String("type", typeFilter),
		zap.Int("count", len(resp.Transactions)),
	)
	return resp.Transactions, nil
}

// Topic fetches detail for a single topic.
func (c *Client) Topic(ctx context.Context, topicID string) (*TopicDetail, error) {
	var detail TopicDetail
	if err := c.get(ctx, "/api/v1/topics/"+url.PathEscape(topicID), &detail); err != nil {
		return nil, err
	}
	if detail.TopicID == "" {
		detail.TopicID = topicID
	}
	return &detail, nil
}

// TopicExists reports whether a topic is known to the mirror node.
// Transport failures are reported as errors, not as absence.
func (c *Client) TopicExists(ctx context.Context, topicID string) (bool, error) {
	_, err := c.Topic(ctx, topicID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Account fetches account detail, used to verify that an account id
// resolves on the ledger.
func (c *Client) Account(ctx context.Context, accountID string) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.get(ctx, "/api/v1/accounts/"+url.PathEscape(accountID), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Messages lists consensus messages for a topic, oldest first, with
// payloads decoded from their base64 transport encoding. Messages whose
// payload fails to decode are skipped.
func (c *Client) Messages(ctx context.Context, topicID string, limit int) ([]Message, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))

	var resp messagesResponse
	path := "/api/v1/topics/" + url.PathEscape(topicID) + "/messages?" + q.Encode()
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		payload, err := base64.StdEncoding.DecodeString(m.Message)
		if err != nil {
			c.logger.Warn("skipping message with undecodable payload",
				zap.String("topic_id", topicID),
				zap.String("consensus_timestamp", m.ConsensusTimestamp),
			)
			continue
		}
		messages = append(messages, Message{
			ConsensusTimestamp: m.ConsensusTimestamp,
			Payload:            payload,
		})
	}

	c.logger.Debug("fetched topic messages",
		zap.String("topic_id", topicID),
		zap.Int("count", len(messages)),
	)
	return messages, nil
}

// get issues a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("mirror: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("mirror: failed to parse response: %w", err)
	}
	return nil
}
