package mirror

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestAccountTransactions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transactions", r.URL.Path)
		assert.Equal(t, "0.0.1001", r.URL.Query().Get("account.id"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"transactions":[
			{"name":"CONSENSUSCREATETOPIC","entity_id":"0.0.7001"},
			{"name":"CRYPTOTRANSFER","entity_id":""}
		]}`)
	}))

	txs, err := client.AccountTransactions(context.Background(), "0.0.1001", "", 100)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, KindTopicCreate, txs[0].Name)
	assert.Equal(t, "0.0.7001", txs[0].EntityID)
}

func TestAccountTransactionsTypeFilter(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, TypeFilterTopicCreate, r.URL.Query().Get("type"))
		fmt.Fprint(w, `{"transactions":[]}`)
	}))

	txs, err := client.AccountTransactions(context.Background(), "0.0.1001", TypeFilterTopicCreate, 25)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTopic(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/topics/0.0.7001", r.URL.Path)
		fmt.Fprint(w, `{"topic_id":"0.0.7001","memo":"AgroConsultas","created_timestamp":"1700000000.000000001"}`)
	}))

	detail, err := client.Topic(context.Background(), "0.0.7001")
	require.NoError(t, err)
	assert.Equal(t, "AgroConsultas", detail.Memo)
	assert.Equal(t, "1700000000.000000001", detail.CreatedTimestamp)
}

func TestTopicNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Topic(context.Background(), "0.0.9999")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := client.TopicExists(context.Background(), "0.0.9999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTopicExistsUnavailable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.TopicExists(context.Background(), "0.0.7001")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMessages(t *testing.T) {
	valid := base64.StdEncoding.EncodeToString([]byte(`{"query":"hola"}`))
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/topics/0.0.7001/messages", r.URL.Path)
		fmt.Fprintf(w, `{"messages":[
			{"consensus_timestamp":"1700000000.000000001","message":%q},
			{"consensus_timestamp":"1700000001.000000001","message":"%%%%not-base64"}
		]}`, valid)
	}))

	msgs, err := client.Messages(context.Background(), "0.0.7001", 100)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "undecodable payloads are skipped")
	assert.Equal(t, `{"query":"hola"}`, string(msgs[0].Payload))
}

func TestGetRespectsContext(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Account(ctx, "0.0.1001")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestParseConsensusTimestamp(t *testing.T) {
	ts := ParseConsensusTimestamp("1700000000.500000000")
	assert.Equal(t, int64(1700000000), ts.Unix())
	assert.Equal(t, 500000000, ts.Nanosecond())

	assert.True(t, ParseConsensusTimestamp("garbage").IsZero())
	assert.Equal(t, int64(1700000000), ParseConsensusTimestamp("1700000000").Unix())
}
