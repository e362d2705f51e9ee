package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fyrsmithlabs/agrod/internal/ledger"
	"github.com/fyrsmithlabs/agrod/internal/llm"
	"github.com/fyrsmithlabs/agrod/internal/mirror"
	"github.com/fyrsmithlabs/agrod/internal/record"
	"github.com/fyrsmithlabs/agrod/internal/topics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeReader struct {
	msgs []mirror.Message
	err  error
}

func (f *fakeReader) Messages(ctx context.Context, topicID string, limit int) ([]mirror.Message, error) {
	return f.msgs, f.err
}

type fakeSubmitter struct {
	err      error
	topicIDs []string
	payloads [][]byte
}

func (f *fakeSubmitter) CreateTopic(ctx context.Context, memo string, creds ledger.Credentials) (string, error) {
	return "0.0.7001", nil
}

func (f *fakeSubmitter) SubmitMessage(ctx context.Context, topicID string, payload []byte, creds ledger.Credentials) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.topicIDs = append(f.topicIDs, topicID)
	f.payloads = append(f.payloads, payload)
	return "SUCCESS", nil
}

type fixture struct {
	agent     *Agent
	completer *fakeCompleter
	reader    *fakeReader
	submitter *fakeSubmitter
	store     *topics.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		completer: &fakeCompleter{},
		reader:    &fakeReader{},
		submitter: &fakeSubmitter{},
		store:     topics.NewStore(),
	}
	f.agent = New(f.completer, f.reader, f.submitter, f.store, zap.NewNop())
	return f
}

func encodedRecord(t *testing.T, activity string) mirror.Message {
	t.Helper()
	payload, err := record.EncodeRecord(record.Record{
		ActivityType: activity,
		Description:  "d",
		Crops:        "maíz",
		Date:         "2026-08-01",
	}, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return mirror.Message{ConsensusTimestamp: "1754006400.000000001", Payload: payload}
}

func TestProcessQueryHelp(t *testing.T) {
	f := newFixture(t)

	result, err := f.agent.ProcessQuery(context.Background(), "ayuda", ledger.Credentials{})
	require.NoError(t, err)

	assert.True(t, result.IsHelp)
	assert.Contains(t, result.Answer, "AgroHedera")
	assert.Equal(t, 0, f.completer.calls, "help must not call the completion endpoint")
	assert.Empty(t, f.submitter.topicIDs, "help must not write to the ledger")
}

func TestProcessQueryCreationWithTopic(t *testing.T) {
	f := newFixture(t)
	f.store.Set("0.0.7001")
	f.completer.reply = "```json\n{\"activityType\":\"siembra\",\"description\":\"Sembré maíz\",\"crops\":\"maíz\",\"date\":\"2026-08-30\"}\n```"

	result, err := f.agent.ProcessQuery(context.Background(), "Quiero registrar que hoy sembré maíz", ledger.Credentials{})
	require.NoError(t, err)

	assert.True(t, result.CreateRecord)
	require.NotNil(t, result.FormattedRecord)
	assert.Equal(t, "siembra", result.FormattedRecord.ActivityType)
	assert.True(t, result.StoredInBlockchain)
	assert.Equal(t, "0.0.7001", result.TopicID)

	require.Len(t, f.submitter.payloads, 1)
	entry := record.Decode(f.submitter.payloads[0])
	require.Equal(t, record.KindRecord, entry.Kind)
	assert.Equal(t, "siembra", entry.Record.ActivityType)
}

func TestProcessQueryCreationNoTopic(t *testing.T) {
	f := newFixture(t)
	f.completer.reply = `{"activityType":"siembra","description":"Sembré maíz","crops":"maíz","date":"2026-08-30"}`

	result, err := f.agent.ProcessQuery(context.Background(), "Quiero registrar que hoy sembré maíz", ledger.Credentials{})
	require.NoError(t, err)

	assert.True(t, result.CreateRecord)
	assert.True(t, result.NoTopicAvailable)
	assert.False(t, result.StoredInBlockchain)
	assert.Empty(t, f.submitter.topicIDs, "no write may be attempted without a topic")
}

func TestProcessQueryCreationUnparsableReply(t *testing.T) {
	f := newFixture(t)
	f.store.Set("0.0.7001")
	f.completer.reply = "Claro, aquí tienes el registro que pediste."

	result, err := f.agent.ProcessQuery(context.Background(), "Quiero registrar la cosecha", ledger.Credentials{})
	require.NoError(t, err, "a parse failure must not surface as an error")

	assert.False(t, result.CreateRecord)
	assert.Contains(t, result.Answer, "No pude formatear")
	assert.False(t, result.StoredInBlockchain)
	assert.Empty(t, f.submitter.topicIDs)
}

func TestProcessQueryAnalysis(t *testing.T) {
	f := newFixture(t)
	f.store.Set("0.0.7001")
	f.reader.msgs = []mirror.Message{
		encodedRecord(t, "siembra"),
		encodedRecord(t, "riego"),
		encodedRecord(t, "cosecha"),
		{ConsensusTimestamp: "1754006400.000000002", Payload: []byte("corrupted {not json")},
	}
	f.completer.reply = "Tienes 3 actividades registradas."

	result, err := f.agent.ProcessQuery(context.Background(), "muestra un resumen de mis registros", ledger.Credentials{})
	require.NoError(t, err)

	assert.True(t, result.IsRecordAnalysis)
	assert.Equal(t, "Tienes 3 actividades registradas.", result.Answer)
	assert.Empty(t, f.submitter.topicIDs, "analysis never writes")
}

func TestProcessQueryAnalysisFetchFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.store.Set("0.0.7001")
	f.reader.err = mirror.ErrUnavailable
	f.completer.reply = "Consejo general."

	result, err := f.agent.ProcessQuery(context.Background(), "analiza mis registros", ledger.Credentials{})
	require.NoError(t, err)

	// Without records in context the analysis rule is skipped and the
	// query lands on the generic branch.
	assert.False(t, result.IsRecordAnalysis)
	assert.Equal(t, "Consejo general.", result.Answer)
}

func TestProcessQueryGenericStorageWorthy(t *testing.T) {
	f := newFixture(t)
	f.store.Set("0.0.7001")
	f.completer.reply = "La cosecha de café se hace así."

	result, err := f.agent.ProcessQuery(context.Background(), "¿cómo mejoro la cosecha de café?", ledger.Credentials{})
	require.NoError(t, err)

	assert.True(t, result.NeedsBlockchainStorage)
	assert.True(t, result.StoredInBlockchain)
	assert.Equal(t, "0.0.7001", result.TopicID)

	require.Len(t, f.submitter.payloads, 1)
	entry := record.Decode(f.submitter.payloads[0])
	require.Equal(t, record.KindQuery, entry.Kind)
	assert.Equal(t, "¿cómo mejoro la cosecha de café?", entry.Query.Query)
}

func TestProcessQueryGenericNotStorageWorthy(t *testing.T) {
	f := newFixture(t)
	f.store.Set("0.0.7001")
	f.completer.reply = "Hola, ¿en qué te ayudo?"

	result, err := f.agent.ProcessQuery(context.Background(), "hola", ledger.Credentials{})
	require.NoError(t, err)

	assert.False(t, result.NeedsBlockchainStorage)
	assert.False(t, result.StoredInBlockchain)
	assert.Empty(t, f.submitter.topicIDs)
}

func TestProcessQueryCompletionFailure(t *testing.T) {
	f := newFixture(t)
	f.completer.err = llm.ErrCompletionUnavailable

	_, err := f.agent.ProcessQuery(context.Background(), "¿cómo mejoro el suelo?", ledger.Credentials{})
	assert.ErrorIs(t, err, llm.ErrCompletionUnavailable)
}

func TestProcessQuerySubmitFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Set("0.0.7001")
	f.completer.reply = `{"activityType":"siembra","description":"d","crops":"maíz","date":"2026-08-30"}`
	f.submitter.err = ledger.ErrSubmitUnavailable

	_, err := f.agent.ProcessQuery(context.Background(), "registrar siembra de maíz", ledger.Credentials{})
	assert.ErrorIs(t, err, ledger.ErrSubmitUnavailable,
		"a failed write must surface, never a false storedInBlockchain")
}

func TestDigest(t *testing.T) {
	storedAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	entries := []record.Entry{
		{
			Kind: record.KindRecord,
			Record: &record.Record{
				ActivityType: "siembra",
				Description:  "Sembré maíz",
				Crops:        "maíz",
				Date:         "2026-08-01",
				Location:     "parcela norte",
			},
			StoredAt: storedAt,
		},
		{
			Kind:     record.KindQuery,
			Query:    &record.QueryLogEntry{Query: "¿cuándo riego?"},
			StoredAt: storedAt,
		},
	}

	digest := Digest(entries)
	assert.Contains(t, digest, "Registro #1 (2026-08-01):")
	assert.Contains(t, digest, "- Tipo: siembra")
	assert.Contains(t, digest, "- Ubicación: parcela norte")
	assert.Contains(t, digest, "Consulta #2 (2026-08-01):")
	assert.NotContains(t, digest, "- Hora:", "unset optional fields are omitted")
}

func TestDigestEmpty(t *testing.T) {
	assert.Equal(t, "No hay registros disponibles para analizar.", Digest(nil))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, "\n{\"a\":1}\n", stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "plain", stripCodeFences("plain"))
}

func TestProcessQueryErrorsAreWrappedUpstreamClasses(t *testing.T) {
	f := newFixture(t)
	f.completer.err = errors.New("transport exploded")

	_, err := f.agent.ProcessQuery(context.Background(), "consejo de cultivo", ledger.Credentials{})
	assert.Error(t, err)
}
