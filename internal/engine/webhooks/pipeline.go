package webhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"callflow/internal/engine/notify"
	"callflow/internal/engine/scoring"
	"callflow/internal/engine/subscriptions"
	"callflow/internal/pkg/metrics"
	"callflow/internal/platform/models"
	"callflow/internal/platform/repositories"
)

// ErrScoring marks recoverable enrichment failures: the event is durably
// stored, the attempt is recorded as failed, and the sender may replay.
var ErrScoring = errors.New("scoring failed")

// ErrStore marks genuine storage I/O failures, as opposed to the
// constraint-violation-as-duplicate path the repository absorbs.
var ErrStore = errors.New("event store failure")

// Outcome is what the ingestion handler reports back to the sender.
type Outcome struct {
	EventID   string
	Duplicate bool
}

// Pipeline orchestrates one delivery end to end:
// received -> verified -> stored(new|duplicate) -> scored -> notified? -> completed.
// Rejections (signature, malformed envelope) happen before anything is
// stored; failures after storage leave the event eligible for replay.
type Pipeline struct {
	registry     *subscriptions.Registry
	events       *repositories.EventRepository
	engine       *scoring.Engine
	generator    *notify.Generator
	storeTimeout time.Duration
}

func NewPipeline(registry *subscriptions.Registry, events *repositories.EventRepository, engine *scoring.Engine, generator *notify.Generator, storeTimeout time.Duration) *Pipeline {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Pipeline{
		registry:     registry,
		events:       events,
		engine:       engine,
		generator:    generator,
		storeTimeout: storeTimeout,
	}
}

func (p *Pipeline) Process(ctx context.Context, provider string, rawBody []byte, signature string) (*Outcome, error) {
	metrics.EventsReceived.WithLabelValues(provider).Inc()

	// The envelope's routing fields are trusted only enough to find the
	// secret; the payload itself is untrusted until the signature checks.
	workspaceID := PeekWorkspace(rawBody)
	if workspaceID == "" {
		metrics.EventsRejected.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("%w: workspace_id is required", ErrMalformedEvent)
	}

	secret, err := p.registry.ResolveSecret(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, subscriptions.ErrNotFound) {
			metrics.EventsRejected.WithLabelValues("unknown_workspace").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if err := VerifySignature(rawBody, signature, secret); err != nil {
		metrics.EventsRejected.WithLabelValues("signature").Inc()
		return nil, err
	}

	event, err := Normalize(rawBody, time.Now().UTC())
	if err != nil {
		metrics.EventsRejected.WithLabelValues("malformed").Inc()
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()

	stored, err := p.events.InsertIfAbsent(storeCtx, event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if !stored {
		existing, err := p.events.GetByID(storeCtx, event.EventID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		if existing == nil || existing.ProcessingStatus == models.StatusCompleted {
			// Duplicate delivery of a completed event: success-of-intent,
			// no re-scoring.
			metrics.EventsDuplicate.Inc()
			log.Debug().Str("event_id", event.EventID).Msg("duplicate delivery ignored")
			return &Outcome{EventID: event.EventID, Duplicate: true}, nil
		}
		// The prior attempt never completed (failed scoring, or stored but
		// interrupted before scoring). Sender retries re-attempt processing.
		log.Info().
			Str("event_id", event.EventID).
			Str("prior_status", existing.ProcessingStatus).
			Msg("re-attempting stored event")
	}

	result, err := p.engine.Score(event)
	if err != nil {
		if markErr := p.events.MarkProcessed(storeCtx, event.EventID, nil, models.StatusFailed); markErr != nil {
			log.Error().Err(markErr).Str("event_id", event.EventID).Msg("failed to mark event failed")
		}
		metrics.EventsProcessed.WithLabelValues(string(event.EventType), models.StatusFailed).Inc()
		return nil, fmt.Errorf("%w: %v", ErrScoring, err)
	}

	if err := p.events.MarkProcessed(storeCtx, event.EventID, result, models.StatusCompleted); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	metrics.EventsProcessed.WithLabelValues(string(event.EventType), models.StatusCompleted).Inc()

	// Notification failures are absorbed: the event is durably stored and
	// acknowledged regardless of fan-out.
	if result.Relevant {
		if _, err := p.generator.Generate(ctx, event, result); err != nil {
			log.Warn().Err(err).Str("event_id", event.EventID).Msg("notification generation failed")
		}
	}

	log.Info().
		Str("event_id", event.EventID).
		Str("event_type", string(event.EventType)).
		Str("workspace_id", event.WorkspaceID).
		Float64("relevance_score", result.RelevanceScore).
		Bool("relevant", result.Relevant).
		Msg("event processed")

	return &Outcome{EventID: event.EventID}, nil
}
