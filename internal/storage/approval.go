package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Approval is a destructive agent action waiting for a decision. Standalone
// MCP processes write these rows and poll them until they are resolved.
type Approval struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Metadata    string    `json:"metadata"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ApprovalStore reads and resolves rows of the mcp_approvals table.
type ApprovalStore struct {
	db *DB
}

func NewApprovalStore(db *DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

// ListPending returns pending approvals, oldest first.
func (s *ApprovalStore) ListPending() ([]Approval, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, tool, description, status, metadata, created_at FROM mcp_approvals WHERE status = 'pending' ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []Approval
	for rows.Next() {
		var a Approval
		if err := rows.Scan(&a.ID, &a.Tool, &a.Description, &a.Status, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Resolve records a decision for a pending approval. Approvals that are no
// longer pending return sql.ErrNoRows.
func (s *ApprovalStore) Resolve(id string, approved bool) error {
	status := "rejected"
	if approved {
		status = "approved"
	}
	res, err := s.db.conn.Exec(`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = 'pending'`, status, id)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("approval %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// IsPending reports whether an approval row is still waiting.
func (s *ApprovalStore) IsPending(id string) (bool, error) {
	var status string
	err := s.db.conn.QueryRow(`SELECT status FROM mcp_approvals WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load approval: %w", err)
	}
	return status == "pending", nil
}
