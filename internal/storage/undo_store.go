package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// maxUndoNodes bounds the layout history kept per page.
const maxUndoNodes = 40

// UndoNode is one layout snapshot in a page's history.
type UndoNode struct {
	ID           string    `json:"id"`
	PageID       string    `json:"pageId"`
	ParentID     *string   `json:"parentId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UndoTree is the full history of a page.
type UndoTree struct {
	Nodes     []UndoNode `json:"nodes"`
	CurrentID string     `json:"currentId"`
	RootID    string     `json:"rootId"`
}

// UndoStore keeps a branching layout history per page in SQLite. Pushing a
// snapshot after an undo starts a new branch; redo follows the newest branch.
type UndoStore struct {
	db *DB
}

func NewUndoStore(db *DB) *UndoStore {
	return &UndoStore{db: db}
}

const undoColumns = `id, page_id, parent_id, label, snapshot_json, created_at`

func scanUndoNode(row rowScanner) (*UndoNode, error) {
	n := &UndoNode{}
	if err := row.Scan(&n.ID, &n.PageID, &n.ParentID, &n.Label, &n.SnapshotJSON, &n.CreatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

// LoadTree returns the full history for a page, or nil when there is none.
func (s *UndoStore) LoadTree(pageID string) (*UndoTree, error) {
	rows, err := s.db.Conn().Query(
		`SELECT `+undoColumns+` FROM undo_nodes WHERE page_id = ? ORDER BY created_at ASC`, pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("load undo nodes: %w", err)
	}
	defer rows.Close()

	var nodes []UndoNode
	var rootID string
	for rows.Next() {
		n, err := scanUndoNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan undo node: %w", err)
		}
		if n.ParentID == nil {
			rootID = n.ID
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	currentID, err := s.currentID(pageID)
	if err != nil || currentID == "" {
		currentID = rootID
	}
	return &UndoTree{Nodes: nodes, CurrentID: currentID, RootID: rootID}, nil
}

// Current returns the node the page is positioned at, or nil when the page
// has no history.
func (s *UndoStore) Current(pageID string) (*UndoNode, error) {
	id, err := s.currentID(pageID)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return s.node(id)
}

// Push records snapshotJSON as a child of the current node and moves the
// current pointer to it.
func (s *UndoStore) Push(pageID, label, snapshotJSON string) (*UndoNode, error) {
	parentID, err := s.currentID(pageID)
	if err != nil {
		return nil, err
	}

	var pID *string
	if parentID != "" {
		pID = &parentID
	}
	node := &UndoNode{
		ID:           uuid.New().String(),
		PageID:       pageID,
		ParentID:     pID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		CreatedAt:    time.Now(),
	}

	_, err = s.db.Conn().Exec(
		`INSERT INTO undo_nodes (`+undoColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		node.ID, node.PageID, node.ParentID, node.Label, node.SnapshotJSON, node.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert undo node: %w", err)
	}
	if err := s.GoTo(pageID, node.ID); err != nil {
		return nil, fmt.Errorf("update undo state: %w", err)
	}

	s.pruneIfNeeded(pageID, maxUndoNodes)
	return node, nil
}

// Back moves the pointer to the parent of the current node and returns it.
// It returns nil when the current node is the root.
func (s *UndoStore) Back(pageID string) (*UndoNode, error) {
	cur, err := s.Current(pageID)
	if err != nil || cur == nil || cur.ParentID == nil {
		return nil, err
	}
	parent, err := s.node(*cur.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.GoTo(pageID, parent.ID); err != nil {
		return nil, err
	}
	return parent, nil
}

// Forward moves the pointer to the newest child of the current node and
// returns it. It returns nil when the current node has no children.
func (s *UndoStore) Forward(pageID string) (*UndoNode, error) {
	cur, err := s.Current(pageID)
	if err != nil || cur == nil {
		return nil, err
	}
	child, err := scanUndoNode(s.db.Conn().QueryRow(
		`SELECT `+undoColumns+` FROM undo_nodes WHERE parent_id = ? ORDER BY created_at DESC LIMIT 1`, cur.ID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load undo child: %w", err)
	}
	if err := s.GoTo(pageID, child.ID); err != nil {
		return nil, err
	}
	return child, nil
}

// GoTo updates the current position pointer.
func (s *UndoStore) GoTo(pageID, nodeID string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO undo_state (page_id, current_node_id) VALUES (?, ?)
		 ON CONFLICT(page_id) DO UPDATE SET current_node_id = excluded.current_node_id`,
		pageID, nodeID,
	)
	return err
}

// ClearPage removes all history for a page.
func (s *UndoStore) ClearPage(pageID string) error {
	_, _ = s.db.Conn().Exec(`DELETE FROM undo_state WHERE page_id = ?`, pageID)
	_, err := s.db.Conn().Exec(`DELETE FROM undo_nodes WHERE page_id = ?`, pageID)
	return err
}

func (s *UndoStore) currentID(pageID string) (string, error) {
	var id string
	err := s.db.Conn().QueryRow(`SELECT current_node_id FROM undo_state WHERE page_id = ?`, pageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load undo state: %w", err)
	}
	return id, nil
}

func (s *UndoStore) node(id string) (*UndoNode, error) {
	n, err := scanUndoNode(s.db.Conn().QueryRow(`SELECT `+undoColumns+` FROM undo_nodes WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get undo node: %w", err)
	}
	return n, nil
}

// pruneIfNeeded removes the oldest nodes when count exceeds maxNodes,
// re-parenting their children so the tree stays connected.
func (s *UndoStore) pruneIfNeeded(pageID string, maxNodes int) {
	var count int
	s.db.Conn().QueryRow(`SELECT COUNT(*) FROM undo_nodes WHERE page_id = ?`, pageID).Scan(&count)
	if count <= maxNodes {
		return
	}

	currentID, _ := s.currentID(pageID)

	// Collect ids first and close the cursor before writing.
	rows, err := s.db.Conn().Query(
		`SELECT id FROM undo_nodes WHERE page_id = ? ORDER BY created_at ASC LIMIT ?`, pageID, count-maxNodes,
	)
	if err != nil {
		return
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		if id != currentID {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for _, id := range ids {
		var parentID sql.NullString
		s.db.Conn().QueryRow(`SELECT parent_id FROM undo_nodes WHERE id = ?`, id).Scan(&parentID)
		if parentID.Valid {
			s.db.Conn().Exec(`UPDATE undo_nodes SET parent_id = ? WHERE parent_id = ?`, parentID.String, id)
		} else {
			s.db.Conn().Exec(`UPDATE undo_nodes SET parent_id = NULL WHERE parent_id = ?`, id)
		}
		s.db.Conn().Exec(`DELETE FROM undo_nodes WHERE id = ?`, id)
	}
}
