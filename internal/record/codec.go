package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelope is the wire shape shared by both payload variants.
type envelope struct {
	Record    *Record `json:"record,omitempty"`
	Query     string  `json:"query,omitempty"`
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type,omitempty"`
}

// Decode parses a raw ledger message payload into a tagged Entry.
// Malformed payloads and unknown shapes yield KindUnrecognized; Decode
// never returns an error because callers skip what they cannot read.
func Decode(payload []byte) Entry {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Entry{Kind: KindUnrecognized}
	}

	storedAt, _ := time.Parse(time.RFC3339, env.Timestamp)

	// The type tag is authoritative; older messages without one are
	// classified by which variant field they carry.
	switch env.Type {
	case TypeFarmRecord:
		if env.Record == nil {
			return Entry{Kind: KindUnrecognized}
		}
		return Entry{Kind: KindRecord, Record: env.Record, StoredAt: storedAt}
	case TypeFarmQuery:
		if env.Query == "" {
			return Entry{Kind: KindUnrecognized}
		}
		return Entry{
			Kind:     KindQuery,
			Query:    &QueryLogEntry{Query: env.Query, Timestamp: env.Timestamp, Type: env.Type},
			StoredAt: storedAt,
		}
	case "":
		switch {
		case env.Record != nil:
			return Entry{Kind: KindRecord, Record: env.Record, StoredAt: storedAt}
		case env.Query != "":
			return Entry{
				Kind:     KindQuery,
				Query:    &QueryLogEntry{Query: env.Query, Timestamp: env.Timestamp},
				StoredAt: storedAt,
			}
		}
	}

	return Entry{Kind: KindUnrecognized}
}

// DecodeAll decodes a batch of payloads, dropping unrecognized
// entries.
func DecodeAll(payloads [][]byte) []Entry {
	entries := make([]Entry, 0, len(payloads))
	for _, p := range payloads {
		if e := Decode(p); e.Kind != KindUnrecognized {
			entries = append(entries, e)
		}
	}
	return entries
}

// EncodeRecord serializes a Record into the canonical envelope with
// the given storage timestamp.
func EncodeRecord(r Record, storedAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(envelope{
		Record:    &r,
		Timestamp: storedAt.UTC().Format(time.RFC3339),
		Type:      TypeFarmRecord,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode record envelope: %w", err)
	}
	return payload, nil
}

// EncodeQuery serializes a query log entry into the canonical envelope
// with the given storage timestamp.
func EncodeQuery(query string, storedAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(envelope{
		Query:     query,
		Timestamp: storedAt.UTC().Format(time.RFC3339),
		Type:      TypeFarmQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query envelope: %w", err)
	}
	return payload, nil
}
