package searchclient

import "encoding/json"

// SearchStatus is the lifecycle state reported for a search job.
type SearchStatus string

const (
	StatusSuspended SearchStatus = "suspended"
	StatusPending   SearchStatus = "pending"
	StatusComplete  SearchStatus = "complete"
	StatusFailed    SearchStatus = "failed"
)

// SearchType is how the service scheduled a search.
type SearchType string

const (
	SearchTypeBatch       SearchType = "batch"
	SearchTypeInteractive SearchType = "interactive"
	SearchTypeReport      SearchType = "report"
)

// SearchJob is the handle returned when a search is submitted
type SearchJob struct {
	SearchUUID    string       `json:"search_uuid"`
	SearchStatus  SearchStatus `json:"search_status"`
	StartTS       int64        `json:"start_ts"`
	UpdateTS      int64        `json:"update_ts"`
	StatusDetails string       `json:"status_details"`
	Progress      float64      `json:"progress"`
}

// FetchSearchResponse is one page of search results.
type FetchSearchResponse struct {
	SearchJob
	// Only log messages are returned today; other message types may follow.
	Results   []LogMessageSearchResult `json:"results"`
	NextToken *string                  `json:"next_token,omitempty"`
	Estimated *int                     `json:"estimated,omitempty"`
	Remaining *int                     `json:"remaining,omitempty"`
}

// RawSearchResponse is a results page whose records are left exactly as the service sent them.
type RawSearchResponse struct {
	SearchJob
	Results   []json.RawMessage `json:"results"`
	NextToken *string           `json:"next_token,omitempty"`
	Estimated *int              `json:"estimated,omitempty"`
	Remaining *int              `json:"remaining,omitempty"`
}

// SearchStatusResponse is the job handle plus the query it is running.
type SearchStatusResponse struct {
	SearchJob
	Query      string     `json:"query"`
	SearchType SearchType `json:"search_type"`
}

type LogMessageMetadata struct {
	CreateTS int64  `json:"create_ts"`
	Data     string `json:"data"`
	MetaID   string `json:"meta_id"`
	UUID     string `json:"uuid"`
}

type LogMessageFields struct {
	IngestID string               `json:"ingest_id"`
	Message  string               `json:"message"`
	Metadata []LogMessageMetadata `json:"metadata"`
	PID      int64                `json:"pid"`
	Priority int64                `json:"priority"`
	TimeRecv int64                `json:"time_recv"`
	SourceID string               `json:"source_id"`
	HostName string               `json:"host_name"`
	Facility string               `json:"facility"`
	Program  string               `json:"program"`
}

type LogMessageID struct {
	Account int64  `json:"account"`
	AID     int64  `json:"aid"`
	MsgID   string `json:"msgid"`
}

// LogMessageSearchResult is a stored log message as returned by a fetch.
type LogMessageSearchResult struct {
	Fields LogMessageFields `json:"fields"`
	ID     LogMessageID     `json:"id"`
}

// ResultsQuery shapes a results fetch. Nil fields are not sent.
type ResultsQuery struct {
	Limit         *int
	Offset        *int
	StartingToken *string
}

type readMessagesRequest struct {
	IDs    []string  `json:"ids"`
	Fields *[]string `json:"fields,omitempty"`
}

// Int returns a pointer to v, for ResultsQuery fields.
func Int(v int) *int { return &v }

// String returns a pointer to v, for ResultsQuery fields.
func String(v string) *string { return &v }
