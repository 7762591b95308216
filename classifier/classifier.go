// Package classifier calls the external relevance analyzer and normalizes
// its responses into one canonical Verdict. The service has exposed two wire
// shapes over time: a file-analysis endpoint returning
// {"is_relevant": bool, "summary": string} and a text-prediction endpoint
// returning {"data": [label, summary, ...]}. Both are adapted here at the
// boundary so the rest of the system only ever sees a Verdict.
package classifier

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrUnavailable is returned when the analyzer cannot be reached or answers
// with a transport, timeout or server error.
var ErrUnavailable = errors.New("classifier unavailable")

// Verdict is the canonical classification result.
type Verdict struct {
	IsRelevant bool
	Summary    string
	Raw        json.RawMessage
}

// Client classifies message payloads.
type Client interface {
	// ClassifyFile sends the file at path for analysis.
	ClassifyFile(ctx context.Context, path string) (*Verdict, error)

	// ClassifyText sends a text body for analysis.
	ClassifyText(ctx context.Context, text string) (*Verdict, error)
}
