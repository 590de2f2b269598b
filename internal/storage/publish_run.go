package storage

import (
	"time"

	"github.com/google/uuid"
)

// PublishRun records one attempt to publish a configuration.
type PublishRun struct {
	ID              string     `json:"id"`
	ConfigurationID string     `json:"configurationId"`
	Target          string     `json:"target"`
	Status          string     `json:"status"` // "running", "success", "error"
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
}

// PublishRunStore persists publish history.
type PublishRunStore struct {
	db *DB
}

func NewPublishRunStore(db *DB) *PublishRunStore {
	return &PublishRunStore{db: db}
}

func (s *PublishRunStore) Start(configurationID, target string) (*PublishRun, error) {
	run := &PublishRun{
		ID:              uuid.New().String(),
		ConfigurationID: configurationID,
		Target:          target,
		Status:          "running",
		StartedAt:       time.Now(),
	}
	_, err := s.db.conn.Exec(
		`INSERT INTO publish_runs (id, configuration_id, target, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.ConfigurationID, run.Target, run.Status, run.StartedAt,
	)
	return run, err
}

func (s *PublishRunStore) Finish(run *PublishRun, runErr error) error {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = "success"
	if runErr != nil {
		run.Status = "error"
		run.Error = runErr.Error()
	}
	_, err := s.db.conn.Exec(
		`UPDATE publish_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		run.Status, run.Error, run.FinishedAt, run.ID,
	)
	return err
}

func (s *PublishRunStore) List(configurationID string, limit int) ([]PublishRun, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, configuration_id, target, status, error, started_at, finished_at
		 FROM publish_runs WHERE configuration_id = ? ORDER BY started_at DESC LIMIT ?`,
		configurationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []PublishRun
	for rows.Next() {
		var r PublishRun
		if err := rows.Scan(&r.ID, &r.ConfigurationID, &r.Target, &r.Status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
