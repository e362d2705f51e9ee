// Package topics implements best-effort discovery of the ledger topics
// an account owns or has used, plus the process-wide current topic
// store.
//
// No authoritative owner index exists on the ledger, so discovery scans
// the account's transaction history through a staged fallback pipeline.
// The result is heuristic by design: stages degrade to partial results
// and enrichment failures degrade to placeholder entries instead of
// dropping topics.
package topics

import "time"

// Topic is a discovered or explicitly selected ledger topic.
type Topic struct {
	TopicID        string `json:"topicId"`
	Memo           string `json:"memo"`
	Created        string `json:"created"`
	IsCreatedByYou bool   `json:"isCreatedByYou,omitempty"`
	IsCurrent      bool   `json:"isCurrent,omitempty"`
}

// placeholder synthesizes a minimal Topic when detail enrichment is
// unavailable.
func placeholder(topicID string) Topic {
	return Topic{
		TopicID: topicID,
		Memo:    "Topic #" + topicID,
		Created: time.Now().UTC().Format(time.RFC3339),
	}
}
