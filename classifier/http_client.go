package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/internal/utils"
)

const defaultTimeout = 30 * time.Second

// relevantLabel is the positional label the prediction endpoint uses to mark
// a relevant document.
const relevantLabel = "Relevant"

var _ Client = (*HTTPClient)(nil)

// Config configures the HTTP classifier client.
type Config struct {
	// AnalyzeURL is the multipart file-analysis endpoint.
	AnalyzeURL string
	// PredictURL is the JSON text-prediction endpoint.
	PredictURL string
	// Timeout bounds each classification call. A slow analyzer is treated
	// as unavailable rather than stalling message processing.
	Timeout time.Duration
}

// HTTPClient implements Client against the hosted analyzer endpoints.
type HTTPClient struct {
	config     Config
	httpClient *http.Client
}

// NewHTTPClient creates a classifier client.
func NewHTTPClient(config Config) *HTTPClient {
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// analyzeResponse is the file endpoint's wire shape.
type analyzeResponse struct {
	IsRelevant *bool  `json:"is_relevant"`
	Summary    string `json:"summary"`
}

func (c *HTTPClient) ClassifyFile(ctx context.Context, path string) (*Verdict, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "[ClassifyFile] opening file")
	}
	defer func() { _ = file.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, errors.Wrap(err, "[ClassifyFile] creating form file")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, errors.Wrap(err, "[ClassifyFile] copying file")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "[ClassifyFile] closing form")
	}

	raw, err := c.post(ctx, c.config.AnalyzeURL, writer.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}

	var resp analyzeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "[ClassifyFile] decoding response")
	}

	return &Verdict{
		IsRelevant: utils.Value(resp.IsRelevant),
		Summary:    resp.Summary,
		Raw:        raw,
	}, nil
}

// predictResponse is the text endpoint's positional-array wire shape.
type predictResponse struct {
	Data []any `json:"data"`
}

func (c *HTTPClient) ClassifyText(ctx context.Context, text string) (*Verdict, error) {
	payload, err := json.Marshal(map[string]any{"data": []string{text}})
	if err != nil {
		return nil, errors.Wrap(err, "[ClassifyText] encoding request")
	}

	raw, err := c.post(ctx, c.config.PredictURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var resp predictResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "[ClassifyText] decoding response")
	}

	verdict := &Verdict{Raw: raw}
	fields := utils.ToStringSlice(resp.Data)
	for _, field := range fields {
		if strings.EqualFold(field, relevantLabel) {
			verdict.IsRelevant = true
			break
		}
	}
	if len(fields) > 1 {
		verdict.Summary = fields[1]
	}
	return verdict, nil
}

func (c *HTTPClient) post(ctx context.Context, url, contentType string, body io.Reader) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "[post] building request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "[post] %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "[post] reading response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrUnavailable, "[post] status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
