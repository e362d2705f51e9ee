package mirror

import (
	"strconv"
	"strings"
	"time"
)

// Transaction kinds surfaced by the mirror node that involve consensus
// topics. The list endpoint reports kinds in upper case; the type query
// parameter wants lower case.
const (
	KindTopicCreate   = "CONSENSUSCREATETOPIC"
	KindSubmitMessage = "CONSENSUSSUBMITMESSAGE"

	TypeFilterTopicCreate = "consensuscreatetopic"
)

// Transaction is a single entry from the transaction list endpoint.
// EntityID carries the topic id for consensus transactions.
type Transaction struct {
	Name     string `json:"name"`
	EntityID string `json:"entity_id"`
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// TopicDetail is the detail record for a single topic.
type TopicDetail struct {
	TopicID          string `json:"topic_id"`
	Memo             string `json:"memo"`
	CreatedTimestamp string `json:"created_timestamp"`
}

// Message is a single consensus message with its payload decoded from
// the transport encoding.
type Message struct {
	ConsensusTimestamp string
	Payload            []byte
}

type mirrorMessage struct {
	ConsensusTimestamp string `json:"consensus_timestamp"`
	Message            string `json:"message"`
}

type messagesResponse struct {
	Messages []mirrorMessage `json:"messages"`
}

// AccountInfo is the subset of the account detail endpoint used for
// credential verification.
type AccountInfo struct {
	Account string `json:"account"`
	Balance struct {
		Balance   int64  `json:"balance"`
		Timestamp string `json:"timestamp"`
	} `json:"balance"`
}

// ParseConsensusTimestamp converts a mirror node consensus timestamp
// ("seconds.nanos") into a time.Time. Returns the zero time when the
// value is malformed.
func ParseConsensusTimestamp(ts string) time.Time {
	secPart, nsecPart, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nsec int64
	if nsecPart != "" {
		// Pad to nanosecond precision; mirror nodes emit 9 digits but
		// accept fewer.
		for len(nsecPart) < 9 {
			nsecPart += "0"
		}
		nsec, err = strconv.ParseInt(nsecPart[:9], 10, 64)
		if err != nil {
			return time.Time{}
		}
	}
	return time.Unix(sec, nsec).UTC()
}
