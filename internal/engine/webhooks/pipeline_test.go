package webhooks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"callflow/internal/engine/notify"
	"callflow/internal/engine/scoring"
	"callflow/internal/engine/subscriptions"
	"callflow/internal/platform/database"
	"callflow/internal/platform/models"
	"callflow/internal/platform/repositories"
)

type pipelineFixture struct {
	pipeline      *Pipeline
	events        *repositories.EventRepository
	notifications *repositories.NotificationRepository
	secret        string
}

func setupPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	// :memory: databases are per-connection; keep the pool to one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(database.Schema); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	eventRepo := repositories.NewEventRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	subscriptionRepo := repositories.NewSubscriptionRepository(db)

	registry := subscriptions.NewRegistry(subscriptionRepo, "test-signing-key", time.Minute)
	sub, err := registry.Register(context.Background(), "cust_1", "ws_1",
		[]string{"call.recorded", "call.transcribed", "call.analyzed"}, "https://example.com/hook")
	if err != nil {
		t.Fatalf("Failed to register subscription: %v", err)
	}

	generator := notify.NewGenerator(notificationRepo, notify.NewQueue(16))
	pipeline := NewPipeline(registry, eventRepo, scoring.NewEngine(scoring.Config{}), generator, time.Second)

	return &pipelineFixture{
		pipeline:      pipeline,
		events:        eventRepo,
		notifications: notificationRepo,
		secret:        sub.Secret,
	}
}

const relevantTranscript = `{
	"event_id": "evt_100",
	"event_type": "call.transcribed",
	"workspace_id": "ws_1",
	"payload": {},
	"transcript": {"text": "We manage 500 apartment units and compare Pay Ready to AppFolio"}
}`

func TestPipeline_ProcessRelevantEvent(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	body := []byte(relevantTranscript)
	outcome, err := f.pipeline.Process(ctx, "callplatform", body, Sign(f.secret, body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if outcome.Duplicate {
		t.Error("First delivery must not be a duplicate")
	}
	if outcome.EventID != "evt_100" {
		t.Errorf("Expected evt_100, got %s", outcome.EventID)
	}

	event, err := f.events.GetByID(ctx, "evt_100")
	if err != nil || event == nil {
		t.Fatalf("Expected stored event, got %v, %v", event, err)
	}
	if event.ProcessingStatus != models.StatusCompleted {
		t.Errorf("Expected completed, got %s", event.ProcessingStatus)
	}
	if event.RelevanceScore == nil || *event.RelevanceScore <= scoring.RelevanceThreshold {
		t.Errorf("Expected score above threshold, got %v", event.RelevanceScore)
	}

	count, err := f.notifications.CountByEvent(ctx, "evt_100")
	if err != nil {
		t.Fatalf("CountByEvent failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one notification, got %d", count)
	}

	list, err := f.notifications.ListByCustomer(ctx, "cust_1", 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("Expected one listed notification, got %v, %v", list, err)
	}
	n := list[0]
	if n.Priority != models.PriorityMedium && n.Priority != models.PriorityHigh {
		t.Errorf("Expected medium or high priority, got %s", n.Priority)
	}
	if !n.ActionRequired {
		t.Error("Expected action_required for a high-scoring transcript")
	}
	if !strings.Contains(n.Message, "AppFolio") {
		t.Errorf("Expected competitor mention in message, got %q", n.Message)
	}
}

func TestPipeline_Idempotency(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	body := []byte(relevantTranscript)
	signature := Sign(f.secret, body)

	first, err := f.pipeline.Process(ctx, "callplatform", body, signature)
	if err != nil {
		t.Fatalf("First process failed: %v", err)
	}

	second, err := f.pipeline.Process(ctx, "callplatform", body, signature)
	if err != nil {
		t.Fatalf("Replay must succeed: %v", err)
	}
	if !second.Duplicate {
		t.Error("Replay must be reported as duplicate")
	}
	if first.EventID != second.EventID {
		t.Errorf("Replay changed event id: %s != %s", first.EventID, second.EventID)
	}

	count, err := f.notifications.CountByEvent(ctx, first.EventID)
	if err != nil {
		t.Fatalf("CountByEvent failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Replay must not create another notification, got %d", count)
	}
}

func TestPipeline_BadSignatureNeverStored(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	body := []byte(relevantTranscript)

	_, err := f.pipeline.Process(ctx, "callplatform", body, Sign("wrong-secret", body))
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("Expected ErrBadSignature, got %v", err)
	}

	event, err := f.events.GetByID(ctx, "evt_100")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if event != nil {
		t.Error("Rejected payload must never be persisted")
	}

	_, err = f.pipeline.Process(ctx, "callplatform", body, "")
	if !errors.Is(err, ErrMissingSignature) {
		t.Errorf("Expected ErrMissingSignature, got %v", err)
	}
}

func TestPipeline_UnscoredEventTypes(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	// workspace.updated has no analyzer; an unrecognized type behaves the
	// same way. Both store and complete at score zero.
	tests := []struct {
		name      string
		body      string
		eventType models.EventType
	}{
		{
			"workspace updated",
			`{"event_id":"evt_200","event_type":"workspace.updated","workspace_id":"ws_1"}`,
			models.EventWorkspaceUpdated,
		},
		{
			"unrecognized type",
			`{"event_id":"evt_201","event_type":"call.deleted","workspace_id":"ws_1"}`,
			models.EventType("call.deleted"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(tt.body)
			outcome, err := f.pipeline.Process(ctx, "callplatform", body, Sign(f.secret, body))
			if err != nil {
				t.Fatalf("Unscored event types must not fail processing: %v", err)
			}

			event, err := f.events.GetByID(ctx, outcome.EventID)
			if err != nil || event == nil {
				t.Fatalf("Expected stored event, got %v, %v", event, err)
			}
			if event.EventType != tt.eventType {
				t.Errorf("Expected %s, got %s", tt.eventType, event.EventType)
			}
			if event.ProcessingStatus != models.StatusCompleted {
				t.Errorf("Expected completed, got %s", event.ProcessingStatus)
			}
			if event.RelevanceScore == nil || *event.RelevanceScore != 0 {
				t.Errorf("Expected score 0, got %v", event.RelevanceScore)
			}

			count, _ := f.notifications.CountByEvent(ctx, outcome.EventID)
			if count != 0 {
				t.Errorf("Unscored types must not notify, got %d notifications", count)
			}
		})
	}
}

// A failed scoring attempt is not terminal: re-delivering the event runs
// the analyzer again instead of acknowledging a duplicate.
func TestPipeline_FailedEventReplayIsRescored(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	// parties must be an array; the recorded analyzer rejects this payload.
	body := []byte(`{"event_id":"evt_600","event_type":"call.recorded","workspace_id":"ws_1","parties":"notanarray"}`)
	signature := Sign(f.secret, body)

	_, err := f.pipeline.Process(ctx, "callplatform", body, signature)
	if !errors.Is(err, ErrScoring) {
		t.Fatalf("Expected ErrScoring, got %v", err)
	}

	event, err := f.events.GetByID(ctx, "evt_600")
	if err != nil || event == nil {
		t.Fatalf("Expected stored event, got %v, %v", event, err)
	}
	if event.ProcessingStatus != models.StatusFailed {
		t.Fatalf("Expected failed, got %s", event.ProcessingStatus)
	}

	// The replay must reach the analyzer again, not short-circuit as a
	// completed duplicate.
	_, err = f.pipeline.Process(ctx, "callplatform", body, signature)
	if !errors.Is(err, ErrScoring) {
		t.Errorf("Replay of a failed event must re-attempt scoring, got %v", err)
	}
}

// An event stored but never scored (interrupted between insert and
// analysis) is picked up by the sender's retry and completed.
func TestPipeline_PendingEventReplayCompletes(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	body := []byte(relevantTranscript)
	pending, err := Normalize(body, time.Now().UTC())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if _, err := f.events.InsertIfAbsent(ctx, pending); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}

	outcome, err := f.pipeline.Process(ctx, "callplatform", body, Sign(f.secret, body))
	if err != nil {
		t.Fatalf("Retry of a pending event must succeed: %v", err)
	}
	if outcome.Duplicate {
		t.Error("A re-attempted event is processed, not acknowledged as duplicate")
	}

	event, err := f.events.GetByID(ctx, "evt_100")
	if err != nil || event == nil {
		t.Fatalf("Expected stored event, got %v, %v", event, err)
	}
	if event.ProcessingStatus != models.StatusCompleted {
		t.Errorf("Expected completed after retry, got %s", event.ProcessingStatus)
	}

	count, err := f.notifications.CountByEvent(ctx, "evt_100")
	if err != nil {
		t.Fatalf("CountByEvent failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one notification after retry, got %d", count)
	}
}

func TestPipeline_LowScoreSuppressesNotification(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	// One keyword in three hundred words: scores well under the threshold.
	words := make([]string, 299)
	for i := range words {
		words[i] = "hello"
	}
	transcript := strings.Join(append(words, "apartment"), " ")
	body := []byte(`{"event_id":"evt_300","event_type":"call.transcribed","workspace_id":"ws_1","transcript":{"text":"` + transcript + `"}}`)

	_, err := f.pipeline.Process(ctx, "callplatform", body, Sign(f.secret, body))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	event, err := f.events.GetByID(ctx, "evt_300")
	if err != nil || event == nil {
		t.Fatalf("Expected stored event, got %v, %v", event, err)
	}
	if event.ProcessingStatus != models.StatusCompleted {
		t.Errorf("Expected completed, got %s", event.ProcessingStatus)
	}

	count, _ := f.notifications.CountByEvent(ctx, "evt_300")
	if count != 0 {
		t.Errorf("Sub-threshold events must not notify, got %d notifications", count)
	}
}

func TestPipeline_UnknownWorkspace(t *testing.T) {
	f := setupPipeline(t)

	body := []byte(`{"event_id":"evt_400","event_type":"call.recorded","workspace_id":"ws_other"}`)
	_, err := f.pipeline.Process(context.Background(), "callplatform", body, Sign(f.secret, body))
	if !errors.Is(err, subscriptions.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unregistered workspace, got %v", err)
	}
}

func TestPipeline_MissingWorkspaceRejected(t *testing.T) {
	f := setupPipeline(t)

	body := []byte(`{"event_id":"evt_500","event_type":"call.recorded"}`)
	_, err := f.pipeline.Process(context.Background(), "callplatform", body, "sig")
	if !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("Expected ErrMalformedEvent, got %v", err)
	}
}
