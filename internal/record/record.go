// Package record defines the message envelope stored on ledger topics
// and its codec.
//
// Two payload variants share one envelope shape: a structured farm
// record and a logged query. The envelope's type tag discriminates
// them; messages carrying neither variant decode as Unrecognized and
// are skipped by callers.
package record

import "time"

// Envelope type tags.
const (
	TypeFarmRecord = "farm_record"
	TypeFarmQuery  = "farm_query"
)

// Record is a structured farm activity entry extracted from a natural
// language description.
type Record struct {
	ActivityType string `json:"activityType"`
	Description  string `json:"description"`
	Location     string `json:"location,omitempty"`
	Crops        string `json:"crops"`
	Date         string `json:"date"`
	Time         string `json:"time,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// QueryLogEntry is a stored copy of a query worth keeping on the
// ledger.
type QueryLogEntry struct {
	Query     string `json:"query"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// Kind discriminates decoded envelope variants.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindRecord
	KindQuery
)

// Entry is a decoded ledger message: exactly one of Record or Query is
// set, according to Kind. StoredAt is the envelope timestamp (when the
// entry was written), distinct from any activity date inside the
// record itself.
type Entry struct {
	Kind     Kind
	Record   *Record
	Query    *QueryLogEntry
	StoredAt time.Time
}
