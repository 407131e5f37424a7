package recorder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// RecordDecision appends a selection decision.
func (s *Store) RecordDecision(d models.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	toolsJSON, err := json.Marshal(d.Tools)
	if err != nil {
		return fmt.Errorf("marshal tools: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO decisions (id, task, goal, tools, confidence, heuristic, orchestrated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Task, string(d.Goal), string(toolsJSON), d.Confidence,
		boolInt(d.Heuristic), boolInt(d.Orchestrated), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// RecordPerformance appends one performance observation for a tool or role.
func (s *Store) RecordPerformance(r models.PerformanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO performance_records (subject, response_time_ms, success, relevance, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.Subject, r.ResponseTimeMs, boolInt(r.Success), r.Relevance, formatTime(r.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert performance record: %w", err)
	}
	return nil
}

// History returns the performance records for a tool or role, newest first,
// capped at limit (0 means all).
func (s *Store) History(subject string, limit int) ([]models.PerformanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT subject, response_time_ms, success, relevance, recorded_at
		FROM performance_records
		WHERE subject = ?
		ORDER BY id DESC
	`
	args := []interface{}{subject}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []models.PerformanceRecord
	for rows.Next() {
		var r models.PerformanceRecord
		var success int
		var recordedAt string
		if err := rows.Scan(&r.Subject, &r.ResponseTimeMs, &success, &r.Relevance, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Success = success != 0
		if t, err := parseTime(recordedAt); err == nil {
			r.RecordedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Decisions returns recorded decisions, newest first, capped at limit
// (0 means all).
func (s *Store) Decisions(limit int) ([]models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, task, goal, tools, confidence, heuristic, orchestrated, created_at
		FROM decisions
		ORDER BY created_at DESC, id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var d models.Decision
		var goal, toolsJSON, createdAt string
		var heuristic, orchestrated int
		if err := rows.Scan(&d.ID, &d.Task, &goal, &toolsJSON, &d.Confidence, &heuristic, &orchestrated, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Goal = models.OptimizationGoal(goal)
		if err := json.Unmarshal([]byte(toolsJSON), &d.Tools); err != nil {
			return nil, fmt.Errorf("unmarshal tools: %w", err)
		}
		d.Heuristic = heuristic != 0
		d.Orchestrated = orchestrated != 0
		if t, err := parseTime(createdAt); err == nil {
			d.CreatedAt = t
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// Effectiveness returns the success ratio for a subject over its recorded
// history, and the sample count. A subject with no history returns (0, 0);
// callers treat that as "no prior" rather than "always fails".
func (s *Store) Effectiveness(subject string) (float64, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total, succeeded int
	row := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(success), 0)
		FROM performance_records
		WHERE subject = ?
	`, subject)
	if err := row.Scan(&total, &succeeded); err != nil {
		return 0, 0, fmt.Errorf("scan effectiveness: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(succeeded) / float64(total), total, nil
}

// DeadLetter persists a workflow message that exhausted its retry budget.
func (s *Store) DeadLetter(msg models.WorkflowMessage, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO dead_letters (workflow_id, role, message, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.WorkflowID, string(msg.Role), string(payload), reason, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// DeadLetters returns the dead-lettered messages for a role, oldest first.
// An empty role returns all of them.
func (s *Store) DeadLetters(role models.RoleID) ([]DeadLetterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT workflow_id, role, message, reason, created_at FROM dead_letters`
	var args []interface{}
	if role != "" {
		query += " WHERE role = ?"
		args = append(args, string(role))
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dead letters: %w", err)
	}
	defer rows.Close()

	var entries []DeadLetterEntry
	for rows.Next() {
		var e DeadLetterEntry
		var role, payload, createdAt string
		if err := rows.Scan(&e.WorkflowID, &role, &payload, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		e.Role = models.RoleID(role)
		if err := json.Unmarshal([]byte(payload), &e.Message); err != nil {
			return nil, fmt.Errorf("unmarshal dead letter message: %w", err)
		}
		if t, err := parseTime(createdAt); err == nil {
			e.CreatedAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeadLetterEntry is one preserved, retry-exhausted workflow message.
type DeadLetterEntry struct {
	WorkflowID string
	Role       models.RoleID
	Message    models.WorkflowMessage
	Reason     string
	CreatedAt  time.Time
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
