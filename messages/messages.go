// Package messages holds the retained-message model and its storage
// contract. A message is created by the triage pipeline when it arrives,
// mutated at most once when a classifier verdict comes back, and deleted when
// the verdict (or the retention policy) says it should not be kept.
package messages

import (
	"encoding/json"
	"time"
)

// Kind discriminates text messages from media messages.
type Kind string

const (
	KindText  Kind = "text"
	KindMedia Kind = "media"
)

// Analysis is the classifier verdict attached to a message. IsRelevant is nil
// until a verdict has been recorded; an unsupported or failed classification
// leaves it unset rather than false.
type Analysis struct {
	IsRelevant *bool
	Summary    string
	Raw        json.RawMessage
}

// Analyzed reports whether a verdict has been recorded.
func (a *Analysis) Analyzed() bool {
	return a != nil && a.IsRelevant != nil
}

// Message is one ingested message. Media messages carry FileName/MimeType/
// Path/FileSize; text messages carry Body. A media message's stored file and
// its record are created together and deleted together.
type Message struct {
	ID       string
	TenantID string
	SenderID string
	Kind     Kind
	Body     string
	FileName string
	MimeType string
	Path     string
	FileSize int64
	Tags     []string
	Date     time.Time
	Analysis *Analysis
}

// DateRange names the relative date windows the search API accepts.
type DateRange string

const (
	DateRangeAll   DateRange = "alltime"
	DateRangeToday DateRange = "today"
	DateRangeWeek  DateRange = "thisweek"
	DateRangeMonth DateRange = "thismonth"
	DateRangeYear  DateRange = "thisyear"
)

// Since resolves the range to an absolute cutoff. The zero time means no
// cutoff.
func (r DateRange) Since(now time.Time) time.Time {
	switch r {
	case DateRangeToday:
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	case DateRangeWeek:
		return now.AddDate(0, 0, -7)
	case DateRangeMonth:
		return now.AddDate(0, -1, 0)
	case DateRangeYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}

// Filter selects messages in Repo.List. Zero-value fields are ignored.
type Filter struct {
	TenantID     string
	Kind         Kind
	Search       string    // substring match on body, summary and file name
	MimeContains string    // substring match on mime type
	Since        time.Time // only messages at or after this instant
	Relevant     *bool     // match a recorded verdict
	Unanalyzed   bool      // only messages without a recorded verdict
}
