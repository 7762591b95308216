package messages_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-message-triage/internal/utils"
	"github.com/jrsteele09/go-message-triage/messages"
)

func TestDateRangeSince(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 45, 30, 0, time.UTC)

	tests := []struct {
		name  string
		r     messages.DateRange
		since time.Time
	}{
		{"all time has no cutoff", messages.DateRangeAll, time.Time{}},
		{"today starts at midnight", messages.DateRangeToday, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"this week is seven days back", messages.DateRangeWeek, now.AddDate(0, 0, -7)},
		{"this month is one month back", messages.DateRangeMonth, now.AddDate(0, -1, 0)},
		{"this year is one year back", messages.DateRangeYear, now.AddDate(-1, 0, 0)},
		{"unknown range has no cutoff", messages.DateRange("fortnight"), time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.since, tt.r.Since(now))
		})
	}
}

func TestAnalysisAnalyzed(t *testing.T) {
	var analysis *messages.Analysis
	require.False(t, analysis.Analyzed())

	require.False(t, (&messages.Analysis{Summary: "pending"}).Analyzed())
	require.True(t, (&messages.Analysis{IsRelevant: utils.Ptr(false)}).Analyzed())
}
