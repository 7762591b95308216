package triage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/internal/utils"
	"github.com/jrsteele09/go-message-triage/messages"
)

// AnalyzeTexts classifies the tenant's retained text messages that do not
// yet carry a verdict and returns every text message with its (possibly
// pre-existing) analysis. A classifier failure on one message skips it and
// moves on; it can be retried on the next call.
func (p *Pipeline) AnalyzeTexts(ctx context.Context, tenantID string) ([]*messages.Message, error) {
	texts, err := p.repo.List(ctx, messages.Filter{TenantID: tenantID, Kind: messages.KindText})
	if err != nil {
		return nil, errors.Wrap(err, "[AnalyzeTexts] listing text messages")
	}

	for _, msg := range texts {
		if msg.Analysis.Analyzed() {
			continue
		}

		verdict, err := p.classifier.ClassifyText(ctx, msg.Body)
		if err != nil {
			p.logger.Warn().Err(err).Str("message", msg.ID).Msg("text classification failed")
			continue
		}

		analysis := messages.Analysis{
			IsRelevant: utils.Ptr(verdict.IsRelevant),
			Summary:    verdict.Summary,
			Raw:        verdict.Raw,
		}
		if err := p.repo.UpdateAnalysis(ctx, msg.ID, analysis); err != nil {
			p.logger.Error().Err(err).Str("message", msg.ID).Msg("recording text analysis")
			continue
		}
		msg.Analysis = &analysis
	}

	return texts, nil
}
