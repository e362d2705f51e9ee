package topics

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/agrod/internal/mirror"
	"go.uber.org/zap"
)

// Page sizes per probe stage. Stage two is deliberately narrower than
// stage one: it asks a more specific question, so a smaller page is
// enough. These values are part of the discovery contract.
const (
	broadScanLimit    = 100
	createsScanLimit  = 25
	currentTopicLabel = "Current topic"
)

// IndexReader is the read-side ledger surface reconciliation needs.
// Satisfied by *mirror.Client.
type IndexReader interface {
	AccountTransactions(ctx context.Context, accountID, typeFilter string, limit int) ([]mirror.Transaction, error)
	Topic(ctx context.Context, topicID string) (*mirror.TopicDetail, error)
	TopicExists(ctx context.Context, topicID string) (bool, error)
}

// FallbackResolver maps an account to a configured last-resort topic.
// Used as the final probe stage for legacy deployments whose topic
// predates transaction history retention.
type FallbackResolver func(accountID string) (topicID string, ok bool)

// Engine discovers the topics associated with an account.
type Engine struct {
	index         IndexReader
	fallback      FallbackResolver
	verifyTimeout time.Duration
	logger        *zap.Logger
}

// NewEngine creates a reconciliation engine. fallback may be nil to
// disable the legacy stage. verifyTimeout bounds each single
// verification or enrichment call; an expired call degrades that item,
// never the whole discovery.
func NewEngine(index IndexReader, fallback FallbackResolver, verifyTimeout time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if verifyTimeout <= 0 {
		verifyTimeout = 15 * time.Second
	}
	return &Engine{
		index:         index,
		fallback:      fallback,
		verifyTimeout: verifyTimeout,
		logger:        logger,
	}
}

// Discover returns the topics plausibly owned or used by accountID,
// in discovery order. When currentTopic is non-empty it appears
// exactly once and first in the result, flagged IsCurrent, whether or
// not it was independently discovered.
//
// Discover never returns an error: on total failure the result is
// empty, or holds only a placeholder for currentTopic when one was
// supplied. Probe stages run in order and each only runs when the
// prior stages found nothing.
func (e *Engine) Discover(ctx context.Context, accountID, currentTopic string) []Topic {
	start := time.Now()
	defer func() {
		DiscoveryDuration.Observe(time.Since(start).Seconds())
	}()

	ids := e.collectTopicIDs(ctx, accountID)

	e.logger.Info("topic reconciliation finished scanning",
		zap.String("account_id", accountID),
		zap.Int("candidates", len(ids)),
	)

	result := make([]Topic, 0, len(ids)+1)
	for _, id := range ids {
		result = append(result, e.enrich(ctx, id))
	}

	if currentTopic != "" {
		result = promoteCurrent(result, currentTopic, func() Topic {
			t := e.enrich(ctx, currentTopic)
			if t.Memo == "Topic #"+currentTopic {
				t.Memo = currentTopicLabel
			}
			t.IsCreatedByYou = false
			return t
		})
	}

	return result
}

// collectTopicIDs runs the staged probes and returns deduplicated
// topic ids in first-seen order.
func (e *Engine) collectTopicIDs(ctx context.Context, accountID string) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	// Stage 1: broad scan of recent account transactions for topic
	// creations and message submissions.
	txs, err := e.index.AccountTransactions(ctx, accountID, "", broadScanLimit)
	if err != nil {
		e.logger.Warn("broad transaction scan failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
	for _, tx := range txs {
		if tx.Name == mirror.KindTopicCreate || tx.Name == mirror.KindSubmitMessage {
			add(tx.EntityID)
		}
	}
	if len(ids) > 0 {
		recordDiscoveryStage("broad")
		return ids
	}

	// Stage 2: narrow scan restricted to topic-creation transactions.
	txs, err = e.index.AccountTransactions(ctx, accountID, mirror.TypeFilterTopicCreate, createsScanLimit)
	if err != nil {
		e.logger.Warn("topic-creation scan failed",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
	for _, tx := range txs {
		add(tx.EntityID)
	}
	if len(ids) > 0 {
		recordDiscoveryStage("creates")
		return ids
	}

	// Stage 3: configured legacy fallback. Compatibility shim for
	// accounts whose topic predates retained history.
	if e.fallback != nil {
		if topicID, ok := e.fallback(accountID); ok {
			probeCtx, cancel := context.WithTimeout(ctx, e.verifyTimeout)
			exists, err := e.index.TopicExists(probeCtx, topicID)
			cancel()
			if err != nil {
				e.logger.Warn("fallback topic probe failed",
					zap.String("topic_id", topicID),
					zap.Error(err),
				)
			} else if exists {
				e.logger.Info("fallback topic resolved",
					zap.String("account_id", accountID),
					zap.String("topic_id", topicID),
				)
				add(topicID)
			}
		}
	}

	if len(ids) > 0 {
		recordDiscoveryStage("fallback")
	} else {
		recordDiscoveryStage("none")
	}
	return ids
}

// enrich fetches topic detail, degrading to a placeholder when the
// detail call fails or times out.
func (e *Engine) enrich(ctx context.Context, topicID string) Topic {
	detailCtx, cancel := context.WithTimeout(ctx, e.verifyTimeout)
	defer cancel()

	detail, err := e.index.Topic(detailCtx, topicID)
	if err != nil {
		e.logger.Debug("topic detail unavailable, using placeholder",
			zap.String("topic_id", topicID),
			zap.Error(err),
		)
		PlaceholderTotal.Inc()
		t := placeholder(topicID)
		t.IsCreatedByYou = true
		return t
	}

	memo := detail.Memo
	if memo == "" {
		memo = "Topic #" + topicID
	}
	created := detail.CreatedTimestamp
	if ts := mirror.ParseConsensusTimestamp(created); !ts.IsZero() {
		created = ts.Format(time.RFC3339)
	} else if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}

	return Topic{
		TopicID:        topicID,
		Memo:           memo,
		Created:        created,
		IsCreatedByYou: true,
	}
}

// promoteCurrent ensures the current topic is first and unique in the
// result. When absent it is synthesized via synth.
func promoteCurrent(result []Topic, currentTopic string, synth func() Topic) []Topic {
	for i, t := range result {
		if t.TopicID == currentTopic {
			t.IsCurrent = true
			rest := append(append([]Topic{}, result[:i]...), result[i+1:]...)
			return append([]Topic{t}, rest...)
		}
	}

	t := synth()
	t.IsCurrent = true
	return append([]Topic{t}, result...)
}
