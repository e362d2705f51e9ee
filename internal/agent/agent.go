// Package agent processes farmer queries end to end: classify intent,
// assemble the right instruction for the completion endpoint, interpret
// the reply, and decide what (if anything) to persist to the ledger.
//
// A request flows sequentially: classification, optional record fetch,
// prompt assembly, completion call, optional submission. Help queries
// short-circuit before any network call.
package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fyrsmithlabs/agrod/internal/intent"
	"github.com/fyrsmithlabs/agrod/internal/ledger"
	"github.com/fyrsmithlabs/agrod/internal/mirror"
	"github.com/fyrsmithlabs/agrod/internal/record"
	"github.com/fyrsmithlabs/agrod/internal/topics"
	"go.uber.org/zap"
)

const messageFetchLimit = 100

// Completer is the completion endpoint contract.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// MessageReader lists stored messages for a topic. Satisfied by
// *mirror.Client.
type MessageReader interface {
	Messages(ctx context.Context, topicID string, limit int) ([]mirror.Message, error)
}

// Result is the processed outcome returned to the HTTP caller.
type Result struct {
	Answer                 string         `json:"answer"`
	IsHelp                 bool           `json:"isHelp,omitempty"`
	IsRecordAnalysis       bool           `json:"isRecordAnalysis,omitempty"`
	CreateRecord           bool           `json:"createRecord,omitempty"`
	NeedsBlockchainStorage bool           `json:"needsBlockchainStorage,omitempty"`
	FormattedRecord        *record.Record `json:"formattedRecord,omitempty"`
	StoredInBlockchain     bool           `json:"storedInBlockchain,omitempty"`
	TopicID                string         `json:"topicId,omitempty"`
	NoTopicAvailable       bool           `json:"noTopicAvailable,omitempty"`
}

// Agent orchestrates query processing.
type Agent struct {
	completer Completer
	reader    MessageReader
	submitter ledger.Submitter
	store     *topics.Store
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an Agent.
func New(completer Completer, reader MessageReader, submitter ledger.Submitter, store *topics.Store, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		completer: completer,
		reader:    reader,
		submitter: submitter,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessQuery runs the full pipeline for one query. Credentials are
// passed through to the ledger write path and never cached.
//
// Errors are returned only for the two upstream-unavailable cases the
// caller must report distinctly: a failed completion call and a failed
// ledger submission. Everything else degrades into the Result.
func (a *Agent) ProcessQuery(ctx context.Context, query string, creds ledger.Credentials) (*Result, error) {
	topicID, topicKnown := a.store.Get()

	// Analysis-shaped queries get their stored records fetched up
	// front; a failed fetch degrades to processing without records.
	var entries []record.Entry
	if topicKnown && intent.IsAnalysisQuery(query) {
		msgs, err := a.reader.Messages(ctx, topicID, messageFetchLimit)
		if err != nil {
			a.logger.Warn("failed to fetch records for analysis, continuing without",
				zap.String("topic_id", topicID),
				zap.Error(err),
			)
		} else {
			payloads := make([][]byte, len(msgs))
			for i, m := range msgs {
				payloads[i] = m.Payload
			}
			entries = record.DecodeAll(payloads)
		}
	}

	result, err := a.respond(ctx, query, entries)
	if err != nil {
		return nil, err
	}

	if err := a.persist(ctx, query, result, topicID, topicKnown, creds); err != nil {
		return nil, err
	}
	return result, nil
}

// respond classifies the query and produces the answer for its branch.
func (a *Agent) respond(ctx context.Context, query string, entries []record.Entry) (*Result, error) {
	classification := intent.Classify(query, len(entries) > 0)
	a.logger.Info("query classified",
		zap.String("classification", classification.String()),
		zap.Int("records_in_context", len(entries)),
	)

	switch classification {
	case intent.Help:
		return &Result{Answer: helpAnswer, IsHelp: true}, nil

	case intent.RecordCreation:
		reply, err := a.completer.Complete(ctx, creationPrompt(query), query)
		if err != nil {
			return nil, err
		}
		return a.parseCreationReply(reply), nil

	case intent.RecordAnalysis:
		reply, err := a.completer.Complete(ctx, analysisPrompt(query, entries), query)
		if err != nil {
			return nil, err
		}
		return &Result{Answer: reply, IsRecordAnalysis: true}, nil

	default:
		reply, err := a.completer.Complete(ctx, genericPrompt(len(entries) > 0), query)
		if err != nil {
			return nil, err
		}
		return &Result{
			Answer:                 reply,
			NeedsBlockchainStorage: intent.StorageWorthy(query),
		}, nil
	}
}

// parseCreationReply extracts the structured record from the model's
// reply. A reply that cannot be parsed yields a retry-prompting result
// instead of an error.
func (a *Agent) parseCreationReply(reply string) *Result {
	cleaned := strings.TrimSpace(stripCodeFences(reply))

	var rec record.Record
	if err := json.Unmarshal([]byte(cleaned), &rec); err != nil {
		a.logger.Warn("completion reply is not a parseable record", zap.Error(err))
		return &Result{Answer: creationRetryAnswer, CreateRecord: false}
	}

	return &Result{
		Answer:          creationSuccessAnswer(rec),
		CreateRecord:    true,
		FormattedRecord: &rec,
	}
}

// persist applies the write-back state machine over
// (classification flags, topic known).
func (a *Agent) persist(ctx context.Context, query string, result *Result, topicID string, topicKnown bool, creds ledger.Credentials) error {
	switch {
	case result.CreateRecord && topicKnown:
		payload, err := record.EncodeRecord(*result.FormattedRecord, a.now())
		if err != nil {
			return err
		}
		if _, err := a.submitter.SubmitMessage(ctx, topicID, payload, creds); err != nil {
			return err
		}
		result.StoredInBlockchain = true
		result.TopicID = topicID

	case result.NeedsBlockchainStorage && topicKnown:
		payload, err := record.EncodeQuery(query, a.now())
		if err != nil {
			return err
		}
		if _, err := a.submitter.SubmitMessage(ctx, topicID, payload, creds); err != nil {
			return err
		}
		result.StoredInBlockchain = true
		result.TopicID = topicID

	case (result.CreateRecord || result.NeedsBlockchainStorage) && !topicKnown:
		result.NoTopicAvailable = true
	}
	return nil
}

// stripCodeFences removes markdown code fence wrapping from a model
// reply.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	return strings.ReplaceAll(s, "```", "")
}
