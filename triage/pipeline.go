// Package triage decides, message by message, what the system keeps. Media
// payloads are materialized to tenant-scoped storage and sent to the external
// classifier; irrelevant material is removed, file and record together. Text
// messages follow the configured retention policy.
package triage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-message-triage/automation"
	"github.com/jrsteele09/go-message-triage/classifier"
	"github.com/jrsteele09/go-message-triage/internal/config"
	"github.com/jrsteele09/go-message-triage/internal/utils"
	"github.com/jrsteele09/go-message-triage/messages"
)

// supportedExtensions are the file types the classifier can analyze. Media
// outside this set is retained unanalyzed.
var supportedExtensions = map[string]struct{}{
	"pdf":  {},
	"txt":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

// Pipeline is the message triage pipeline. One message is one isolated unit
// of work: an error handling it never affects the session or other messages.
type Pipeline struct {
	repo       messages.Repo
	classifier classifier.Client
	uploadDir  string
	retention  config.TextRetentionPolicy
	logger     zerolog.Logger
	nowTime    func() time.Time
	newID      func() string
}

// PipelineOption modifies a Pipeline at construction time.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.nowTime = nowFunc
	}
}

// WithIDGenerator sets the record ID generator (primarily for testing).
func WithIDGenerator(newID func() string) PipelineOption {
	return func(p *Pipeline) {
		p.newID = newID
	}
}

// New creates a Pipeline with required dependencies.
func New(repo messages.Repo, classifierClient classifier.Client, uploadDir string, retention config.TextRetentionPolicy, options ...PipelineOption) (*Pipeline, error) {
	if repo == nil {
		return nil, errors.New("[triage.New] message repo is required")
	}
	if classifierClient == nil {
		return nil, errors.New("[triage.New] classifier client is required")
	}
	if uploadDir == "" {
		return nil, errors.New("[triage.New] upload dir is required")
	}

	p := &Pipeline{
		repo:       repo,
		classifier: classifierClient,
		uploadDir:  uploadDir,
		retention:  retention,
		logger:     zerolog.Nop(),
		nowTime:    time.Now,
		newID:      func() string { return uuid.New().String() },
	}

	for _, opt := range options {
		opt(p)
	}

	return p, nil
}

// HandleMessage ingests one inbound message for a tenant. It satisfies
// clientmanager.MessageHandler.
func (p *Pipeline) HandleMessage(ctx context.Context, tenantID string, msg automation.InboundMessage) error {
	if msg.Media != nil {
		return p.handleMedia(ctx, tenantID, msg)
	}
	if msg.Body != "" {
		return p.handleText(ctx, tenantID, msg)
	}
	return nil
}

func (p *Pipeline) handleMedia(ctx context.Context, tenantID string, msg automation.InboundMessage) error {
	arrival := msg.ReceivedAt
	if arrival.IsZero() {
		arrival = p.nowTime()
	}

	ext := extensionForMIME(msg.Media.MimeType)
	fileName := fmt.Sprintf("%d-%s.%s", arrival.UnixNano(), p.newID(), ext)

	tenantDir := filepath.Join(p.uploadDir, tenantID)
	if err := os.MkdirAll(tenantDir, 0o755); err != nil {
		return errors.Wrap(err, "[handleMedia] creating tenant upload dir")
	}

	path := filepath.Join(tenantDir, fileName)
	if err := os.WriteFile(path, msg.Media.Data, 0o644); err != nil {
		return errors.Wrap(err, "[handleMedia] writing media file")
	}

	record := &messages.Message{
		ID:       p.newID(),
		TenantID: tenantID,
		SenderID: msg.SenderID,
		Kind:     messages.KindMedia,
		FileName: fileName,
		MimeType: msg.Media.MimeType,
		Path:     path,
		FileSize: int64(len(msg.Media.Data)),
		Date:     arrival,
	}

	if err := p.repo.Create(ctx, record); err != nil {
		// File and record exist together or not at all.
		if removeErr := os.Remove(path); removeErr != nil {
			p.logger.Error().Err(removeErr).Str("path", path).Msg("removing file after failed record create")
		}
		return errors.Wrap(err, "[handleMedia] creating message record")
	}

	if _, supported := supportedExtensions[ext]; !supported {
		p.logger.Debug().Str("tenant", tenantID).Str("ext", ext).Msg("media type not supported for analysis")
		return nil
	}

	verdict, err := p.classifier.ClassifyFile(ctx, path)
	if err != nil {
		// Fire-once: the message stays persisted and unanalyzed.
		p.logger.Warn().Err(err).Str("tenant", tenantID).Str("message", record.ID).Msg("classification failed")
		return nil
	}

	analysis := messages.Analysis{
		IsRelevant: utils.Ptr(verdict.IsRelevant),
		Summary:    verdict.Summary,
		Raw:        verdict.Raw,
	}
	if err := p.repo.UpdateAnalysis(ctx, record.ID, analysis); err != nil {
		// An unrecorded irrelevant verdict is invisible to the sweep, so
		// deletion still goes ahead below.
		p.logger.Error().Err(err).Str("message", record.ID).Msg("recording analysis")
	}

	if !verdict.IsRelevant {
		p.removeMessage(ctx, record.ID, path)
		p.logger.Info().Str("tenant", tenantID).Str("file", fileName).Msg("irrelevant media deleted")
	}
	return nil
}

func (p *Pipeline) handleText(ctx context.Context, tenantID string, msg automation.InboundMessage) error {
	arrival := msg.ReceivedAt
	if arrival.IsZero() {
		arrival = p.nowTime()
	}

	record := &messages.Message{
		ID:       p.newID(),
		TenantID: tenantID,
		SenderID: msg.SenderID,
		Kind:     messages.KindText,
		Body:     msg.Body,
		Date:     arrival,
	}

	if err := p.repo.Create(ctx, record); err != nil {
		return errors.Wrap(err, "[handleText] creating message record")
	}

	if p.retention == config.TextDiscard {
		if err := p.repo.Delete(ctx, record.ID); err != nil {
			return errors.Wrap(err, "[handleText] discarding text message")
		}
	}
	return nil
}

// removeMessage deletes a message's file and record together. Both deletions
// are always attempted; a partial failure breaks the no-orphans invariant and
// is logged loudly enough for an operator to act on.
func (p *Pipeline) removeMessage(ctx context.Context, id, path string) {
	var fileErr error
	if path != "" {
		fileErr = os.Remove(path)
		if fileErr != nil && os.IsNotExist(fileErr) {
			fileErr = nil
		}
	}

	recordErr := p.repo.Delete(ctx, id)

	if fileErr != nil || recordErr != nil {
		p.logger.Error().
			Str("message", id).
			Str("path", path).
			AnErr("file_error", fileErr).
			AnErr("record_error", recordErr).
			Msg("storage invariant violated: partial message cleanup")
	}
}

// extensionForMIME derives a file extension from a declared MIME type, e.g.
// "application/pdf" -> "pdf". Unknown shapes fall back to "bin".
func extensionForMIME(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}
	parts := strings.SplitN(strings.TrimSpace(mimeType), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "bin"
	}
	return strings.ToLower(parts[1])
}
