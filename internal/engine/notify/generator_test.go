package notify

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"callflow/internal/platform/database"
	"callflow/internal/platform/models"
	"callflow/internal/platform/repositories"
)

func setupNotifyDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(database.Schema); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return db
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, models.PriorityHigh},
		{0.81, models.PriorityHigh},
		{0.8, models.PriorityMedium},
		{0.7, models.PriorityMedium},
		{0.61, models.PriorityMedium},
		{0.6, models.PriorityNormal},
		{0.5, models.PriorityNormal},
		{0, models.PriorityNormal},
	}

	for _, tt := range tests {
		if got := PriorityFor(tt.score); got != tt.want {
			t.Errorf("PriorityFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		name   string
		result *models.ProcessingResult
		want   string
	}{
		{
			"insights and actions",
			&models.ProcessingResult{
				Insights:    []string{"A", "B"},
				ActionItems: []string{"do x", "do y"},
			},
			"A. B. Next steps: do x; do y",
		},
		{
			"insights truncated to three",
			&models.ProcessingResult{
				Insights: []string{"A", "B", "C", "D", "E"},
			},
			"A. B. C",
		},
		{
			"actions truncated to two",
			&models.ProcessingResult{
				ActionItems: []string{"do x", "do y", "do z"},
			},
			"Next steps: do x; do y",
		},
		{
			"empty result falls back",
			&models.ProcessingResult{},
			defaultMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildMessage(tt.result); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	db := setupNotifyDB(t)
	repo := repositories.NewNotificationRepository(db)
	queue := NewQueue(4)
	gen := NewGenerator(repo, queue)
	ctx := context.Background()

	event := &models.WebhookEvent{
		EventID:     "evt_1",
		EventType:   models.EventCallTranscribed,
		WorkspaceID: "ws_1",
	}
	result := &models.ProcessingResult{
		Relevant:       true,
		RelevanceScore: 0.9,
		Insights:       []string{"Strong prospect signals"},
		ActionItems:    []string{"Prepare customized proposal"},
	}

	n, err := gen.Generate(ctx, event, result)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n == nil {
		t.Fatal("Expected a notification for a relevant result")
	}
	if !strings.HasPrefix(n.ID, "ntf_") {
		t.Errorf("Expected ntf_ id prefix, got %s", n.ID)
	}
	if n.Priority != models.PriorityHigh {
		t.Errorf("Expected high priority at 0.9, got %s", n.Priority)
	}
	if !n.ActionRequired {
		t.Error("Expected action_required when action items exist")
	}
	if n.DeliveryStatus != models.DeliveryPending {
		t.Errorf("Expected pending delivery status, got %s", n.DeliveryStatus)
	}

	count, err := repo.CountByEvent(ctx, "evt_1")
	if err != nil || count != 1 {
		t.Errorf("Expected one persisted notification, got %d, %v", count, err)
	}

	select {
	case queued := <-queue.Dequeue():
		if queued.ID != n.ID {
			t.Errorf("Queued wrong notification: %s", queued.ID)
		}
	default:
		t.Error("Expected notification on the delivery queue")
	}
}

func TestGenerator_IrrelevantResult(t *testing.T) {
	db := setupNotifyDB(t)
	repo := repositories.NewNotificationRepository(db)
	gen := NewGenerator(repo, NewQueue(4))

	event := &models.WebhookEvent{EventID: "evt_2", WorkspaceID: "ws_1"}
	result := &models.ProcessingResult{Relevant: false, RelevanceScore: 0.3}

	n, err := gen.Generate(context.Background(), event, result)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n != nil {
		t.Error("Irrelevant results must not produce notifications")
	}

	count, _ := repo.CountByEvent(context.Background(), "evt_2")
	if count != 0 {
		t.Errorf("Expected no persisted notification, got %d", count)
	}
}

func TestGenerator_NilQueue(t *testing.T) {
	db := setupNotifyDB(t)
	repo := repositories.NewNotificationRepository(db)
	gen := NewGenerator(repo, nil)

	event := &models.WebhookEvent{EventID: "evt_3", WorkspaceID: "ws_1"}
	result := &models.ProcessingResult{Relevant: true, RelevanceScore: 0.7}

	n, err := gen.Generate(context.Background(), event, result)
	if err != nil {
		t.Fatalf("Generate without a queue must still persist: %v", err)
	}
	if n == nil {
		t.Fatal("Expected a notification")
	}
}
