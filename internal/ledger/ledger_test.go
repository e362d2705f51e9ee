package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/agrod/internal/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testKey = strings.Repeat("ab", 48)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr error
	}{
		{"valid", Credentials{AccountID: "0.0.1001", PrivateKey: testKey}, nil},
		{"empty account", Credentials{PrivateKey: testKey}, ErrInvalidAccountID},
		{"malformed account", Credentials{AccountID: "abc", PrivateKey: testKey}, ErrInvalidAccountID},
		{"missing key", Credentials{AccountID: "0.0.1001"}, ErrInvalidPrivateKey},
		{"short key", Credentials{AccountID: "0.0.1001", PrivateKey: "abc"}, ErrInvalidPrivateKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCredentialsOr(t *testing.T) {
	def := Credentials{AccountID: "0.0.1", PrivateKey: testKey}
	assert.Equal(t, def, Credentials{}.Or(def))

	own := Credentials{AccountID: "0.0.2", PrivateKey: testKey}
	assert.Equal(t, own, own.Or(def))
}

func newRelay(t *testing.T, handler http.Handler, def Credentials) *RelayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewRelayClient(srv.URL, 5*time.Second, def, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestCreateTopic(t *testing.T) {
	creds := Credentials{AccountID: "0.0.1001", PrivateKey: testKey}
	relay := newRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/topics", r.URL.Path)

		var req createTopicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AgroConsultas", req.Memo)
		assert.Equal(t, creds.AccountID, req.Credentials.AccountID)

		fmt.Fprint(w, `{"topicId":"0.0.7001"}`)
	}), Credentials{})

	topicID, err := relay.CreateTopic(context.Background(), "AgroConsultas", creds)
	require.NoError(t, err)
	assert.Equal(t, "0.0.7001", topicID)
}

func TestCreateTopicUsesDefaultCredentials(t *testing.T) {
	def := Credentials{AccountID: "0.0.9", PrivateKey: testKey}
	relay := newRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createTopicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0.0.9", req.Credentials.AccountID)
		fmt.Fprint(w, `{"topicId":"0.0.7001"}`)
	}), def)

	_, err := relay.CreateTopic(context.Background(), "memo", Credentials{})
	require.NoError(t, err)
}

func TestCreateTopicNoCredentials(t *testing.T) {
	relay := newRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without credentials")
	}), Credentials{})

	_, err := relay.CreateTopic(context.Background(), "memo", Credentials{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSubmitMessage(t *testing.T) {
	relay := newRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/topics/0.0.7001/messages", r.URL.Path)

		var req submitMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, `{"type":"farm_query"}`, string(req.Payload))

		fmt.Fprint(w, `{"status":"SUCCESS"}`)
	}), Credentials{})

	creds := Credentials{AccountID: "0.0.1001", PrivateKey: testKey}
	status, err := relay.SubmitMessage(context.Background(), "0.0.7001", []byte(`{"type":"farm_query"}`), creds)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", status)
}

func TestSubmitMessageRelayError(t *testing.T) {
	relay := newRelay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":"consensus node unreachable"}`)
	}), Credentials{})

	creds := Credentials{AccountID: "0.0.1001", PrivateKey: testKey}
	_, err := relay.SubmitMessage(context.Background(), "0.0.7001", []byte("x"), creds)
	require.ErrorIs(t, err, ErrSubmitUnavailable)
	assert.Contains(t, err.Error(), "consensus node unreachable")
}

func TestSubmitMessageTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	relay, err := NewRelayClient(srv.URL, 20*time.Millisecond, Credentials{}, zap.NewNop())
	require.NoError(t, err)

	creds := Credentials{AccountID: "0.0.1001", PrivateKey: testKey}
	_, err = relay.SubmitMessage(context.Background(), "0.0.7001", []byte("x"), creds)
	assert.ErrorIs(t, err, ErrSubmitUnavailable)
}

type fakeChecker struct {
	err error
}

func (f *fakeChecker) Account(ctx context.Context, accountID string) (*mirror.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &mirror.AccountInfo{Account: accountID}, nil
}

func TestVerifier(t *testing.T) {
	creds := Credentials{AccountID: "0.0.1001", PrivateKey: testKey}

	t.Run("accepts resolvable account", func(t *testing.T) {
		v := NewVerifier(&fakeChecker{}, time.Second, zap.NewNop())
		assert.NoError(t, v.Verify(context.Background(), creds))
	})

	t.Run("rejects malformed credentials without probing", func(t *testing.T) {
		v := NewVerifier(&fakeChecker{err: errors.New("should not be called")}, time.Second, zap.NewNop())
		err := v.Verify(context.Background(), Credentials{AccountID: "nope", PrivateKey: testKey})
		assert.ErrorIs(t, err, ErrInvalidAccountID)
	})

	t.Run("propagates probe failure", func(t *testing.T) {
		v := NewVerifier(&fakeChecker{err: mirror.ErrUnavailable}, time.Second, zap.NewNop())
		err := v.Verify(context.Background(), creds)
		assert.ErrorIs(t, err, mirror.ErrUnavailable)
	})
}
