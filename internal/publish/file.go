package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sitebuilder/internal/domain"

	"gopkg.in/yaml.v3"
)

// filePublisher writes one document per configuration into a directory.
type filePublisher struct {
	dir    string
	format string
}

func newFilePublisher(t Target) (*filePublisher, error) {
	if t.Path == "" {
		return nil, fmt.Errorf("file target: path is required")
	}
	format := t.Format
	if format == "" {
		format = "yaml"
	}
	if format != "yaml" && format != "json" {
		return nil, fmt.Errorf("file target: unsupported format %q", format)
	}
	if err := os.MkdirAll(t.Path, 0755); err != nil {
		return nil, fmt.Errorf("create publish directory: %w", err)
	}
	return &filePublisher{dir: t.Path, format: format}, nil
}

func (p *filePublisher) Name() string { return "file:" + p.dir }

// Path returns the file a configuration is published to.
func (p *filePublisher) Path(configID string) string {
	return filepath.Join(p.dir, configID+"."+p.format)
}

func (p *filePublisher) Publish(ctx context.Context, doc *domain.SiteDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(doc, p.format)
	if err != nil {
		return err
	}
	return WriteFileAtomic(p.Path(doc.Configuration.ID), data)
}

func (p *filePublisher) Close() error { return nil }

// Encode renders doc as "yaml" or "json".
func Encode(doc *domain.SiteDocument, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml", "":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Decode parses a document, picking the format from the file extension.
func Decode(path string, data []byte) (*domain.SiteDocument, error) {
	var doc domain.SiteDocument
	if filepath.Ext(path) == ".json" {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return &doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &doc, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".publish-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
