package ledger

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

	"go.uber.org/zap"
)

// ErrSubmitUnavailable indicates the write path could not reach the
// ledger or the relay reported a failure. Callers must surface this as
// a service-unavailable condition, never as a silent no-op.
var ErrSubmitUnavailable = errors.New("ledger: submission unavailable")

// Submitter is the write-side collaborator contract: create an
// append-only topic and append a message to one. Both operations are
// signed with the supplied credentials.
type Submitter interface {
	// CreateTopic creates a topic with the given memo and returns its
	// identifier.
	CreateTopic(ctx context.Context, memo string, creds Credentials) (string, error)

	// SubmitMessage appends payload to the topic and returns the
	// delivery status reported by the network.
	SubmitMessage(ctx context.Context, topicID string, payload []byte, creds Credentials) (string, error)
}

// RelayClient implements Submitter against a transaction relay
// service that holds the ledger SDK and performs signing/submission on
// agrod's behalf.
type RelayClient struct {
	baseURL      string
	httpClient   *http.Client
	defaultCreds Credentials
	logger       *zap.Logger
}

// NewRelayClient creates a relay-backed submitter. defaultCreds may be
// empty; in that case every call must carry its own credentials.
func NewRelayClient(baseURL string, timeout time.Duration, defaultCreds Credentials, logger *zap.Logger) (*RelayClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("relay base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &RelayClient{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		defaultCreds: defaultCreds,
		logger:       logger,
	}, nil
}

type createTopicRequest struct {
	Memo        string      `json:"memo"`
	Credentials Credentials `json:"credentials"`
}

type createTopicResponse struct {
	TopicID string `json:"topicId"`
}

type submitMessageRequest struct {
	Payload     []byte      `json:"payload"`
	Credentials Credentials `json:"credentials"`
}

type submitMessageResponse struct {
	Status string `json:"status"`
}

type relayError struct {
	Error string `json:"error"`
}

// CreateTopic creates a topic via the relay and returns its id.
func (r *RelayClient) CreateTopic(ctx context.Context, memo string, creds Credentials) (string, error) {
	creds = creds.Or(r.defaultCreds)
	if creds.Empty() {
		return "", ErrMissingCredentials
	}

	var resp createTopicResponse
	if err := r.post(ctx, "/v1/topics", createTopicRequest{Memo: memo, Credentials: creds}, &resp); err != nil {
		return "", err
	}
	if resp.TopicID == "" {
		return "", fmt.Errorf("%w: relay returned no topic id", ErrSubmitUnavailable)
	}

	r.logger.Info("topic created",
		zap.String("topic_id", resp.TopicID),
		zap.String("memo", memo),
	)
	return resp.TopicID, nil
}

// SubmitMessage appends payload to a topic via the relay.
func (r *RelayClient) SubmitMessage(ctx context.Context, topicID string, payload []byte, creds Credentials) (string, error) {
	creds = creds.Or(r.defaultCreds)
	if creds.Empty() {
		return "", ErrMissingCredentials
	}

	var resp submitMessageResponse
	path := "/v1/topics/" + url.PathEscape(topicID) + "/messages"
	if err := r.post(ctx, path, submitMessageRequest{Payload: payload, Credentials: creds}, &resp); err != nil {
		return "", err
	}

	r.logger.Info("message submitted",
		zap.String("topic_id", topicID),
		zap.String("status", resp.Status),
		zap.Int("payload_bytes", len(payload)),
	)
	return resp.Status, nil
}

// post issues a JSON POST and decodes the response into out.
func (r *RelayClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmitUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrSubmitUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var relayErr relayError
		if err := json.Unmarshal(respBody, &relayErr); err == nil && relayErr.Error != "" {
			return fmt.Errorf("%w: status %d: %s", ErrSubmitUnavailable, resp.StatusCode, relayErr.Error)
		}
		return fmt.Errorf("%w: status %d", ErrSubmitUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", ErrSubmitUnavailable, err)
	}
	return nil
}

var _ Submitter = (*RelayClient)(nil)
