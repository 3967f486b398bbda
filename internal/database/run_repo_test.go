package database

import (
	"context"
	"errors"
	"testing"

	"github.com/survi-edge/clipscan/internal/detect"
	"github.com/survi-edge/clipscan/internal/report"
)

func TestRunRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository(db)
	ctx := context.Background()

	rep := report.NewOK("evt-100", 5, 0.5,
		detect.Summary{"people": 2, "cars": 1},
		[]detect.Detection{
			{Label: "person", Confidence: 0.91, X: 10, Y: 12, Width: 30, Height: 44, FrameIndex: 3},
			{Label: "car", Confidence: 0.63, X: 80, Y: 90, Width: 40, Height: 20, FrameIndex: 7},
		}, 850)

	id, err := repo.Save(ctx, rep)
	if err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}
	if id == "" {
		t.Fatal("Expected generated run ID")
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got == nil {
		t.Fatal("Run not found after save")
	}

	if got.EventID != "evt-100" || got.Status != report.StatusOK {
		t.Errorf("Unexpected run header: %+v", got)
	}
	if got.FramesAnalyzed != 5 || got.Threshold != 0.5 || got.LatencyMS != 850 {
		t.Errorf("Unexpected run fields: %+v", got)
	}
	if got.Summary["people"] != 2 || got.Summary["cars"] != 1 {
		t.Errorf("Unexpected summary: %v", got.Summary)
	}
	if len(got.Detections) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(got.Detections))
	}
	if got.Detections[0].Confidence < got.Detections[1].Confidence {
		t.Error("Detections not ordered by confidence")
	}
	if got.Detections[0].BBox != [4]int{10, 12, 30, 44} {
		t.Errorf("Unexpected bbox: %v", got.Detections[0].BBox)
	}
}

func TestRunRepository_SaveErrorRun(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository(db)
	ctx := context.Background()

	rep := report.NewError("evt-err", errors.New("failed to open mp4"))
	id, err := repo.Save(ctx, rep)
	if err != nil {
		t.Fatalf("Failed to save error run: %v", err)
	}

	got, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.Status != report.StatusError {
		t.Errorf("Status = %s, want error", got.Status)
	}
	if got.Error != "failed to open mp4" {
		t.Errorf("Error = %q, want failure detail", got.Error)
	}
	if len(got.Detections) != 0 {
		t.Errorf("Error run should have no detections, got %d", len(got.Detections))
	}
}

func TestRunRepository_GetByEventID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository(db)
	ctx := context.Background()

	if _, err := repo.Save(ctx, report.NewOK("evt-a", 1, 0.5, detect.Summary{"people": 0, "cars": 0}, nil, 5)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	got, err := repo.GetByEventID(ctx, "evt-a")
	if err != nil {
		t.Fatalf("Failed to get by event ID: %v", err)
	}
	if got == nil || got.EventID != "evt-a" {
		t.Errorf("Expected run for evt-a, got %+v", got)
	}

	missing, err := repo.GetByEventID(ctx, "evt-missing")
	if err != nil {
		t.Fatalf("Unexpected error for missing event: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing event, got %+v", missing)
	}
}

func TestRunRepository_List(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewRunRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.Save(ctx, report.NewOK("evt-list", 1, 0.5, detect.Summary{"people": 0, "cars": 0}, nil, 5)); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
	}

	records, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 runs with limit 2, got %d", len(records))
	}
}
