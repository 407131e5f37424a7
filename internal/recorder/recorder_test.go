package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "kestrel.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordDecisionAndPerformance(t *testing.T) {
	s := newTestStore(t)

	decision := models.Decision{
		ID:         "dec-1",
		Task:       "fix the login bug",
		Goal:       models.OptimizeBalanced,
		Tools:      []string{"error-tracer", "test-coverage-checker"},
		Confidence: 0.65,
		Heuristic:  true,
		CreatedAt:  time.Now(),
	}
	if err := s.RecordDecision(decision); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}

	if err := s.RecordPerformance(models.PerformanceRecord{
		Subject:        "error-tracer",
		ResponseTimeMs: 850,
		Success:        true,
		Relevance:      0.8,
		RecordedAt:     time.Now(),
	}); err != nil {
		t.Fatalf("RecordPerformance: %v", err)
	}

	history, err := s.History("error-tracer", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("History returned %d records, want 1", len(history))
	}
	if !history[0].Success || history[0].ResponseTimeMs != 850 {
		t.Errorf("record mismatch: %+v", history[0])
	}
}

func TestStore_History_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)

	for i, ms := range []int64{100, 200, 300} {
		if err := s.RecordPerformance(models.PerformanceRecord{
			Subject:        "quality-analyzer",
			ResponseTimeMs: ms,
			Success:        i%2 == 0,
			RecordedAt:     time.Now(),
		}); err != nil {
			t.Fatalf("RecordPerformance: %v", err)
		}
	}

	history, err := s.History("quality-analyzer", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History returned %d records, want 2", len(history))
	}
	if history[0].ResponseTimeMs != 300 {
		t.Errorf("newest record first: got %d, want 300", history[0].ResponseTimeMs)
	}
}

func TestStore_Effectiveness(t *testing.T) {
	s := newTestStore(t)

	ratio, n, err := s.Effectiveness("unknown-tool")
	if err != nil {
		t.Fatalf("Effectiveness: %v", err)
	}
	if n != 0 || ratio != 0 {
		t.Errorf("empty history = (%f, %d), want (0, 0)", ratio, n)
	}

	outcomes := []bool{true, true, true, false}
	for _, ok := range outcomes {
		if err := s.RecordPerformance(models.PerformanceRecord{
			Subject:    "security-auditor",
			Success:    ok,
			RecordedAt: time.Now(),
		}); err != nil {
			t.Fatalf("RecordPerformance: %v", err)
		}
	}

	ratio, n, err = s.Effectiveness("security-auditor")
	if err != nil {
		t.Fatalf("Effectiveness: %v", err)
	}
	if n != 4 {
		t.Errorf("sample count = %d, want 4", n)
	}
	if ratio != 0.75 {
		t.Errorf("effectiveness = %f, want 0.75", ratio)
	}
}

func TestStore_DeadLetterRoundTrip(t *testing.T) {
	s := newTestStore(t)

	msg := models.WorkflowMessage{
		WorkflowID: "wf-42",
		Role:       models.RoleSecurity,
		Step:       2,
		TotalSteps: 3,
		Input:      models.WorkflowInput{Query: "audit auth"},
		RetryCount: 3,
		MaxRetries: 3,
	}
	if err := s.DeadLetter(msg, "retries exhausted"); err != nil {
		t.Fatalf("DeadLetter: %v", err)
	}

	entries, err := s.DeadLetters(models.RoleSecurity)
	if err != nil {
		t.Fatalf("DeadLetters: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("DeadLetters returned %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.WorkflowID != "wf-42" || got.Reason != "retries exhausted" {
		t.Errorf("entry mismatch: %+v", got)
	}
	if got.Message.Input.Query != "audit auth" {
		t.Errorf("message payload not preserved: %+v", got.Message)
	}

	other, err := s.DeadLetters(models.RoleQuality)
	if err != nil {
		t.Fatalf("DeadLetters(quality): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("DeadLetters(quality) = %d entries, want 0", len(other))
	}
}
