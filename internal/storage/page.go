package storage

import (
	"fmt"
	"time"

	"sitebuilder/internal/domain"
)

// PageStore implements domain.PageStore using SQLite.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

func (s *PageStore) CreatePage(p *domain.Page) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO pages (id, configuration_id, title, slug, is_homepage, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ConfigurationID, p.Title, p.Slug, p.IsHomepage, p.Order, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (s *PageStore) GetPage(id string) (*domain.Page, error) {
	p := &domain.Page{}
	err := s.db.conn.QueryRow(
		`SELECT id, configuration_id, title, slug, is_homepage, sort_order, created_at, updated_at FROM pages WHERE id = ?`, id,
	).Scan(&p.ID, &p.ConfigurationID, &p.Title, &p.Slug, &p.IsHomepage, &p.Order, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

func (s *PageStore) ListPages(configurationID string) ([]domain.Page, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, configuration_id, title, slug, is_homepage, sort_order, created_at, updated_at FROM pages WHERE configuration_id = ? ORDER BY sort_order ASC, created_at ASC`,
		configurationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var p domain.Page
		if err := rows.Scan(&p.ID, &p.ConfigurationID, &p.Title, &p.Slug, &p.IsHomepage, &p.Order, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (s *PageStore) UpdatePage(p *domain.Page) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE pages SET title = ?, slug = ?, is_homepage = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.IsHomepage, p.Order, p.UpdatedAt, p.ID,
	)
	return err
}

func (s *PageStore) DeletePage(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM pages WHERE id = ?`, id)
	return err
}

func (s *PageStore) DeletePagesByConfiguration(configurationID string) error {
	_, err := s.db.conn.Exec(`DELETE FROM pages WHERE configuration_id = ?`, configurationID)
	return err
}
