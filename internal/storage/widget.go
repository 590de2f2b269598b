package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sitebuilder/internal/domain"
)

// WidgetStore implements domain.WidgetStore using SQLite.
type WidgetStore struct {
	db *DB
}

func NewWidgetStore(db *DB) *WidgetStore {
	return &WidgetStore{db: db}
}

const widgetColumns = `id, page_id, type, title, grid_column, grid_row, width, height, config_json, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWidget(row rowScanner) (domain.Widget, error) {
	var w domain.Widget
	var configJSON string
	if err := row.Scan(&w.ID, &w.PageID, &w.Type, &w.Title, &w.GridColumn, &w.GridRow, &w.Width, &w.Height, &configJSON, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return w, err
	}
	if configJSON != "" && configJSON != "{}" {
		if err := json.Unmarshal([]byte(configJSON), &w.Config); err != nil {
			return w, fmt.Errorf("decode widget %s config: %w", w.ID, err)
		}
	}
	return w, nil
}

func encodeConfig(cfg map[string]any) (string, error) {
	if len(cfg) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode widget config: %w", err)
	}
	return string(b), nil
}

func (s *WidgetStore) CreateWidget(w *domain.Widget) error {
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	cfg, err := encodeConfig(w.Config)
	if err != nil {
		return err
	}
	_, err = s.db.Conn().Exec(
		`INSERT INTO widgets (`+widgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.PageID, w.Type, w.Title, w.GridColumn, w.GridRow, w.Width, w.Height, cfg, w.CreatedAt, w.UpdatedAt,
	)
	return err
}

func (s *WidgetStore) GetWidget(id string) (*domain.Widget, error) {
	w, err := scanWidget(s.db.Conn().QueryRow(`SELECT `+widgetColumns+` FROM widgets WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get widget: %w", err)
	}
	return &w, nil
}

func (s *WidgetStore) ListWidgets(pageID string) ([]domain.Widget, error) {
	rows, err := s.db.Conn().Query(
		`SELECT `+widgetColumns+` FROM widgets WHERE page_id = ? ORDER BY created_at ASC, id ASC`,
		pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var widgets []domain.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widgets, rows.Err()
}

func (s *WidgetStore) UpdateWidget(w *domain.Widget) error {
	w.UpdatedAt = time.Now()
	cfg, err := encodeConfig(w.Config)
	if err != nil {
		return err
	}
	res, err := s.db.Conn().Exec(
		`UPDATE widgets SET type = ?, title = ?, grid_column = ?, grid_row = ?, width = ?, height = ?, config_json = ?, updated_at = ? WHERE id = ?`,
		w.Type, w.Title, w.GridColumn, w.GridRow, w.Width, w.Height, cfg, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update widget %s: %w", w.ID, sql.ErrNoRows)
	}
	return nil
}

func (s *WidgetStore) DeleteWidget(id string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM widgets WHERE id = ?`, id)
	return err
}

func (s *WidgetStore) DeleteWidgetsByPage(pageID string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM widgets WHERE page_id = ?`, pageID)
	return err
}

// ReplacePageWidgets atomically replaces all widgets for a page.
// Used by undo/redo and document import to sync the DB with a snapshot.
func (s *WidgetStore) ReplacePageWidgets(pageID string, widgets []domain.Widget) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM widgets WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("delete widgets: %w", err)
	}

	now := time.Now()
	for _, w := range widgets {
		cfg, err := encodeConfig(w.Config)
		if err != nil {
			return err
		}
		created := w.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err = tx.Exec(
			`INSERT INTO widgets (`+widgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, pageID, w.Type, w.Title, w.GridColumn, w.GridRow, w.Width, w.Height, cfg, created, now,
		)
		if err != nil {
			return fmt.Errorf("insert widget %s: %w", w.ID, err)
		}
	}

	return tx.Commit()
}
