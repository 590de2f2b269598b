package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"sitebuilder/internal/domain"
)

// ConfigurationStore implements domain.ConfigurationStore using SQLite.
// Template and color scheme are stored as JSON columns.
type ConfigurationStore struct {
	db *DB
}

func NewConfigurationStore(db *DB) *ConfigurationStore {
	return &ConfigurationStore{db: db}
}

const configurationColumns = `id, name, description, current_page_id, template_json, color_scheme_json, use_javascript, created_at, updated_at`

func scanConfiguration(row rowScanner) (domain.Configuration, error) {
	var c domain.Configuration
	var tmpl, colors string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CurrentPageID, &tmpl, &colors, &c.UseJavascript, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(tmpl), &c.Template); err != nil {
		return c, fmt.Errorf("decode template: %w", err)
	}
	if err := json.Unmarshal([]byte(colors), &c.ColorScheme); err != nil {
		return c, fmt.Errorf("decode color scheme: %w", err)
	}
	return c, nil
}

func (s *ConfigurationStore) CreateConfiguration(c *domain.Configuration) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	tmpl, _ := json.Marshal(c.Template)
	colors, _ := json.Marshal(c.ColorScheme)
	_, err := s.db.conn.Exec(
		`INSERT INTO configurations (`+configurationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.CurrentPageID, string(tmpl), string(colors), c.UseJavascript, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create configuration: %w", err)
	}
	return nil
}

func (s *ConfigurationStore) GetConfiguration(id string) (*domain.Configuration, error) {
	c, err := scanConfiguration(s.db.conn.QueryRow(`SELECT `+configurationColumns+` FROM configurations WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get configuration: %w", err)
	}
	return &c, nil
}

func (s *ConfigurationStore) ListConfigurations() ([]domain.Configuration, error) {
	rows, err := s.db.conn.Query(`SELECT ` + configurationColumns + ` FROM configurations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.Configuration
	for rows.Next() {
		c, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (s *ConfigurationStore) UpdateConfiguration(c *domain.Configuration) error {
	c.UpdatedAt = time.Now()
	tmpl, _ := json.Marshal(c.Template)
	colors, _ := json.Marshal(c.ColorScheme)
	_, err := s.db.conn.Exec(
		`UPDATE configurations SET name = ?, description = ?, current_page_id = ?, template_json = ?, color_scheme_json = ?, use_javascript = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Description, c.CurrentPageID, string(tmpl), string(colors), c.UseJavascript, c.UpdatedAt, c.ID,
	)
	return err
}

func (s *ConfigurationStore) DeleteConfiguration(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM configurations WHERE id = ?`, id)
	return err
}
