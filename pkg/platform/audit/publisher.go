package audit

import (
	"context"
	"fmt"
	"log/slog"

	"civic/pkg/requestcontext"
)

// Publisher writes events synchronously. Emit fails when persistence fails so
// callers running inside a transaction roll the change back with it.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

// NewPublisher creates a publisher over store. A nil logger disables log mirroring.
func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Emit stamps the event with request-scoped time and id, mirrors it to the
// log and appends it to the store.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}

	if p.logger != nil {
		p.logger.InfoContext(ctx, string(event.Action),
			"log_type", "audit",
			"category", string(event.Action.Category()),
			"actor_id", event.ActorID,
			"subject_id", event.SubjectID,
			"target_id", event.TargetID,
			"request_id", event.RequestID,
			"user_agent", event.UserAgent,
		)
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", string(event.Action),
				"subject_id", event.SubjectID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}
