package domain

import "time"

// Template is a visual theme a configuration renders with.
type Template struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	ClassName   string `json:"className" yaml:"className"`
	JSRequired  bool   `json:"jsRequired" yaml:"jsRequired"`
	IsCustom    bool   `json:"isCustom" yaml:"isCustom"`
}

// BuiltinTemplates returns the templates shipped with the builder.
func BuiltinTemplates() []Template {
	return []Template{
		{ID: "minimal", Name: "Minimal", Description: "A clean, minimalist design with focus on content", ClassName: "template-minimal"},
		{ID: "crypto", Name: "Crypto Modern", Description: "A modern design for cryptocurrency exchanges", ClassName: "template-crypto", JSRequired: true},
		{ID: "classic", Name: "Classic Exchange", Description: "Traditional exchange layout with detailed information", ClassName: "template-classic", JSRequired: true},
	}
}

// TemplateByID looks up a built-in template.
func TemplateByID(id string) (Template, bool) {
	for _, t := range BuiltinTemplates() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

type ColorScheme struct {
	Primary    string `json:"primary" yaml:"primary"`
	Secondary  string `json:"secondary" yaml:"secondary"`
	Accent     string `json:"accent" yaml:"accent"`
	Background string `json:"background" yaml:"background"`
	Text       string `json:"text" yaml:"text"`
}

func DefaultColorScheme() ColorScheme {
	return ColorScheme{
		Primary:    "#3B82F6",
		Secondary:  "#1F2937",
		Accent:     "#10B981",
		Background: "#111827",
		Text:       "#F9FAFB",
	}
}

// Merge overlays the non-empty fields of patch onto c.
func (c ColorScheme) Merge(patch ColorScheme) ColorScheme {
	if patch.Primary != "" {
		c.Primary = patch.Primary
	}
	if patch.Secondary != "" {
		c.Secondary = patch.Secondary
	}
	if patch.Accent != "" {
		c.Accent = patch.Accent
	}
	if patch.Background != "" {
		c.Background = patch.Background
	}
	if patch.Text != "" {
		c.Text = patch.Text
	}
	return c
}

// Configuration is one saved site: its pages, theme and settings. The API
// key is held in the secret store and only carried here on import.
type Configuration struct {
	ID            string      `json:"id" yaml:"id"`
	Name          string      `json:"name" yaml:"name"`
	Description   string      `json:"description" yaml:"description"`
	CurrentPageID string      `json:"currentPageId" yaml:"currentPageId"`
	Template      Template    `json:"template" yaml:"template"`
	ColorScheme   ColorScheme `json:"colorScheme" yaml:"colorScheme"`
	UseJavascript bool        `json:"useJavascript" yaml:"useJavascript"`
	APIKey        string      `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	CreatedAt     time.Time   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" yaml:"updatedAt"`
}

type Page struct {
	ID              string    `json:"id" yaml:"id"`
	ConfigurationID string    `json:"configurationId" yaml:"configurationId"`
	Title           string    `json:"title" yaml:"title"`
	Slug            string    `json:"slug" yaml:"slug"`
	IsHomepage      bool      `json:"isHomepage" yaml:"isHomepage"`
	Order           int       `json:"order" yaml:"order"`
	CreatedAt       time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" yaml:"updatedAt"`
}

type ConfigurationStore interface {
	CreateConfiguration(c *Configuration) error
	GetConfiguration(id string) (*Configuration, error)
	ListConfigurations() ([]Configuration, error)
	UpdateConfiguration(c *Configuration) error
	DeleteConfiguration(id string) error
}

type PageStore interface {
	CreatePage(p *Page) error
	GetPage(id string) (*Page, error)
	ListPages(configurationID string) ([]Page, error)
	UpdatePage(p *Page) error
	DeletePage(id string) error
	DeletePagesByConfiguration(configurationID string) error
}
