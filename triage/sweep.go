package triage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/internal/utils"
	"github.com/jrsteele09/go-message-triage/messages"
)

// Sweep removes every message that has been classified irrelevant, deleting
// file and record together. It is the backstop for cleanups that partially
// failed inline. Returns the number of messages removed.
func (p *Pipeline) Sweep(ctx context.Context) (int, error) {
	irrelevant, err := p.repo.List(ctx, messages.Filter{Relevant: utils.Ptr(false)})
	if err != nil {
		return 0, errors.Wrap(err, "[Sweep] listing irrelevant messages")
	}

	for _, msg := range irrelevant {
		p.removeMessage(ctx, msg.ID, msg.Path)
	}

	if len(irrelevant) > 0 {
		p.logger.Info().Int("count", len(irrelevant)).Msg("swept irrelevant messages")
	}
	return len(irrelevant), nil
}
