package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"

	"callflow/internal/platform/database"
	"callflow/internal/platform/models"
)

func setupTestDB(t *testing.T) *sql.DB {
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

func sampleEvent(id string) *models.WebhookEvent {
	return &models.WebhookEvent{
		EventID:          id,
		EventType:        models.EventCallRecorded,
		WorkspaceID:      "ws_1",
		CallID:           "call_1",
		ReceivedAt:       time.Now().Unix(),
		Payload:          json.RawMessage(`{"event_type":"call.recorded"}`),
		ProcessingStatus: models.StatusPending,
	}
}

func TestEventRepository_InsertIfAbsent(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	stored, err := repo.InsertIfAbsent(ctx, sampleEvent("evt_1"))
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if !stored {
		t.Error("First insert must report stored")
	}

	stored, err = repo.InsertIfAbsent(ctx, sampleEvent("evt_1"))
	if err != nil {
		t.Fatalf("Duplicate insert must not error: %v", err)
	}
	if stored {
		t.Error("Duplicate insert must report not stored")
	}

	got, err := repo.GetByID(ctx, "evt_1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored event")
	}
	if got.EventType != models.EventCallRecorded || got.WorkspaceID != "ws_1" || got.CallID != "call_1" {
		t.Errorf("Round trip lost fields: %+v", got)
	}
	if got.UserID != "" {
		t.Errorf("Absent user_id must stay empty, got %q", got.UserID)
	}
	if got.RelevanceScore != nil {
		t.Errorf("Unprocessed event must have no score, got %v", *got.RelevanceScore)
	}
}

func TestEventRepository_MarkProcessed(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.InsertIfAbsent(ctx, sampleEvent("evt_1")); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}

	result := &models.ProcessingResult{
		Relevant:       true,
		RelevanceScore: 0.8,
		Insights:       []string{"Competitor mentioned: AppFolio"},
	}
	if err := repo.MarkProcessed(ctx, "evt_1", result, models.StatusCompleted); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "evt_1")
	if err != nil || got == nil {
		t.Fatalf("GetByID failed: %v, %v", got, err)
	}
	if got.ProcessingStatus != models.StatusCompleted {
		t.Errorf("Expected completed, got %s", got.ProcessingStatus)
	}
	if got.RelevanceScore == nil || *got.RelevanceScore != 0.8 {
		t.Errorf("Expected score 0.8, got %v", got.RelevanceScore)
	}
	if len(got.Insights) != 1 || got.Insights[0] != "Competitor mentioned: AppFolio" {
		t.Errorf("Insights not persisted: %v", got.Insights)
	}
}

func TestEventRepository_MarkProcessed_StatusOnly(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.InsertIfAbsent(ctx, sampleEvent("evt_1")); err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}

	if err := repo.MarkProcessed(ctx, "evt_1", nil, models.StatusFailed); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	got, _ := repo.GetByID(ctx, "evt_1")
	if got.ProcessingStatus != models.StatusFailed {
		t.Errorf("Expected failed, got %s", got.ProcessingStatus)
	}
	if got.RelevanceScore != nil {
		t.Errorf("Status-only update must not write a score, got %v", *got.RelevanceScore)
	}
}

func TestEventRepository_GetByID_Missing(t *testing.T) {
	repo := NewEventRepository(setupTestDB(t))

	got, err := repo.GetByID(context.Background(), "evt_missing")
	if err != nil {
		t.Fatalf("Missing event must not error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing event, got %+v", got)
	}
}

func TestEventRepository_InsertIfAbsent_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT OR IGNORE INTO events").
		WillReturnError(errors.New("disk I/O error"))

	repo := NewEventRepository(db)
	_, err = repo.InsertIfAbsent(context.Background(), sampleEvent("evt_1"))
	if err == nil {
		t.Fatal("Expected I/O error to propagate")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

// A primary-key constraint violation is the duplicate path, never a failure.
func TestEventRepository_InsertIfAbsent_ConstraintViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT OR IGNORE INTO events").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})

	repo := NewEventRepository(db)
	stored, err := repo.InsertIfAbsent(context.Background(), sampleEvent("evt_1"))
	if err != nil {
		t.Fatalf("Constraint violation must map to duplicate, got error: %v", err)
	}
	if stored {
		t.Error("Constraint violation must report not stored")
	}
}
