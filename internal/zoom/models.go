// Package zoom defines data structures for the Zoom API endpoints used by zoom-to-drive
package zoom

import (
	"time"
)

// Member represents an account member returned by the user list endpoint
type Member struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ListUsersResponse represents the response from the user list API endpoint
type ListUsersResponse struct {
	PageCount    int      `json:"page_count"`
	PageNumber   int      `json:"page_number"`
	PageSize     int      `json:"page_size"`
	TotalRecords int      `json:"total_records"`
	Users        []Member `json:"users"`
}

// RecordingFile represents a single recording file within a meeting recording
type RecordingFile struct {
	ID            string `json:"id"`
	MeetingID     string `json:"meeting_id"`
	FileType      string `json:"file_type"`
	FileExtension string `json:"file_extension,omitempty"`
	FileSize      int64  `json:"file_size"`
	DownloadURL   string `json:"download_url"`
	RecordingType string `json:"recording_type,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Recording represents a meeting recording with all associated files.
// UUID is the opaque session key, distinct from the numeric meeting ID.
type Recording struct {
	UUID           string          `json:"uuid"`
	ID             int64           `json:"id"`
	HostID         string          `json:"host_id"`
	HostEmail      string          `json:"host_email"`
	Topic          string          `json:"topic"`
	StartTime      time.Time       `json:"start_time"`
	Duration       int             `json:"duration"`
	TotalSize      int64           `json:"total_size"`
	RecordingCount int             `json:"recording_count"`
	RecordingFiles []RecordingFile `json:"recording_files"`
}

// ListRecordingsResponse represents the response from the recording list API endpoint
type ListRecordingsResponse struct {
	From         string      `json:"from"`
	To           string      `json:"to"`
	PageCount    int         `json:"page_count"`
	PageSize     int         `json:"page_size"`
	TotalRecords int         `json:"total_records"`
	Meetings     []Recording `json:"meetings"`
}

// SummaryItem is a lightweight reference to an AI meeting summary. Full
// content is fetched lazily through the summary detail endpoint.
type SummaryItem struct {
	MeetingUUID        string `json:"meeting_uuid"`
	MeetingID          int64  `json:"meeting_id"`
	MeetingTopic       string `json:"meeting_topic"`
	MeetingHostEmail   string `json:"meeting_host_email"`
	SummaryCreatedTime string `json:"summary_created_time"`
}

// ListSummariesResponse represents the response from the summary list API endpoint
type ListSummariesResponse struct {
	PageSize      int           `json:"page_size"`
	NextPageToken string        `json:"next_page_token,omitempty"`
	Summaries     []SummaryItem `json:"summaries"`
}

// SummarySection is one labeled section of an AI meeting summary
type SummarySection struct {
	Label   string `json:"label"`
	Summary string `json:"summary"`
}

// SummaryDetail represents the full content of an AI meeting summary
type SummaryDetail struct {
	MeetingUUID        string           `json:"meeting_uuid"`
	MeetingID          int64            `json:"meeting_id"`
	MeetingTopic       string           `json:"meeting_topic"`
	SummaryOverview    string           `json:"summary_overview"`
	SummaryDetails     []SummarySection `json:"summary_details"`
	SummaryCreatedTime string           `json:"summary_created_time"`
}

// RecordingsResult carries the outcome of a windowed recordings fetch.
// Partial is set when one or more windows were truncated by request errors;
// the collected recordings remain valid and safe to process.
type RecordingsResult struct {
	Recordings []Recording
	Partial    bool
	Errors     []error
}

// SummariesResult carries the outcome of a windowed summaries fetch
type SummariesResult struct {
	Summaries []SummaryItem
	Partial   bool
	Errors    []error
}
