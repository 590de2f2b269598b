package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/grid"
	"sitebuilder/internal/secret"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// SiteService manages configurations and their pages.
type SiteService struct {
	configs domain.ConfigurationStore
	pages   domain.PageStore
	widgets domain.WidgetStore
	canvas  *CanvasService
	secrets secret.SecretStore
	emitter EventEmitter
}

func NewSiteService(
	configs domain.ConfigurationStore,
	pages domain.PageStore,
	widgets domain.WidgetStore,
	canvas *CanvasService,
	secrets secret.SecretStore,
	emitter EventEmitter,
) *SiteService {
	return &SiteService{
		configs: configs,
		pages:   pages,
		widgets: widgets,
		canvas:  canvas,
		secrets: secrets,
		emitter: emitter,
	}
}

// ── Configurations ─────────────────────────────────────────

// CreateConfiguration creates a configuration together with its homepage.
// An empty templateID selects the minimal template.
func (s *SiteService) CreateConfiguration(ctx context.Context, name, description, templateID string) (*domain.Configuration, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if templateID == "" {
		templateID = "minimal"
	}
	tmpl, ok := domain.TemplateByID(templateID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}

	c := &domain.Configuration{
		ID:            uuid.New().String(),
		Name:          name,
		Description:   description,
		Template:      tmpl,
		ColorScheme:   domain.DefaultColorScheme(),
		UseJavascript: tmpl.JSRequired,
	}
	home := &domain.Page{
		ID:              uuid.New().String(),
		ConfigurationID: c.ID,
		Title:           "Home",
		Slug:            "/",
		IsHomepage:      true,
	}
	c.CurrentPageID = home.ID

	if err := s.configs.CreateConfiguration(c); err != nil {
		return nil, err
	}
	if err := s.pages.CreatePage(home); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventConfigurationChanged, map[string]string{"configurationId": c.ID})
	return c, nil
}

func (s *SiteService) GetConfiguration(id string) (*domain.Configuration, error) {
	return s.configs.GetConfiguration(id)
}

func (s *SiteService) ListConfigurations() ([]domain.Configuration, error) {
	configs, err := s.configs.ListConfigurations()
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	if configs == nil {
		configs = []domain.Configuration{}
	}
	return configs, nil
}

// ConfigurationPatch carries a partial configuration update.
type ConfigurationPatch struct {
	Name          *string             `json:"name,omitempty"`
	Description   *string             `json:"description,omitempty"`
	TemplateID    *string             `json:"templateId,omitempty"`
	ColorScheme   *domain.ColorScheme `json:"colorScheme,omitempty"`
	UseJavascript *bool               `json:"useJavascript,omitempty"`
}

// UpdateConfiguration applies a patch. Color schemes merge field by field.
func (s *SiteService) UpdateConfiguration(ctx context.Context, id string, patch ConfigurationPatch) (*domain.Configuration, error) {
	c, err := s.configs.GetConfiguration(id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalid)
		}
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.TemplateID != nil {
		tmpl, ok := domain.TemplateByID(*patch.TemplateID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, *patch.TemplateID)
		}
		c.Template = tmpl
	}
	if patch.ColorScheme != nil {
		c.ColorScheme = c.ColorScheme.Merge(*patch.ColorScheme)
	}
	if patch.UseJavascript != nil {
		c.UseJavascript = *patch.UseJavascript
	}
	if err := s.configs.UpdateConfiguration(c); err != nil {
		return nil, fmt.Errorf("update configuration: %w", err)
	}
	s.emitter.Emit(ctx, EventConfigurationChanged, map[string]string{"configurationId": c.ID})
	return c, nil
}

// SetTemplate switches a configuration to a built-in template.
func (s *SiteService) SetTemplate(ctx context.Context, id, templateID string) (*domain.Configuration, error) {
	return s.UpdateConfiguration(ctx, id, ConfigurationPatch{TemplateID: &templateID})
}

// SetColorScheme merges the non-empty colors of scheme into the configuration.
func (s *SiteService) SetColorScheme(ctx context.Context, id string, scheme domain.ColorScheme) (*domain.Configuration, error) {
	return s.UpdateConfiguration(ctx, id, ConfigurationPatch{ColorScheme: &scheme})
}

func (s *SiteService) SetUseJavascript(ctx context.Context, id string, on bool) (*domain.Configuration, error) {
	return s.UpdateConfiguration(ctx, id, ConfigurationPatch{UseJavascript: &on})
}

// SetAPIKey stores the configuration's API key in the secret store. An empty
// key removes it.
func (s *SiteService) SetAPIKey(id, key string) error {
	if _, err := s.configs.GetConfiguration(id); err != nil {
		return err
	}
	if key == "" {
		return s.secrets.Delete(secret.APIKeyName(id))
	}
	return s.secrets.Set(secret.APIKeyName(id), []byte(key))
}

func (s *SiteService) APIKey(id string) (string, error) {
	v, err := s.secrets.Get(secret.APIKeyName(id))
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return string(v), nil
}

// DeleteConfiguration removes a configuration with all of its pages,
// widgets, layout history and API key.
func (s *SiteService) DeleteConfiguration(ctx context.Context, id string) error {
	if _, err := s.configs.GetConfiguration(id); err != nil {
		return err
	}
	if err := s.dropPages(id); err != nil {
		return err
	}
	if err := s.secrets.Delete(secret.APIKeyName(id)); err != nil {
		log.Warn("delete api key", "configuration", id, "err", err)
	}
	if err := s.configs.DeleteConfiguration(id); err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	s.emitter.Emit(ctx, EventConfigurationChanged, map[string]string{"configurationId": id, "deleted": "true"})
	return nil
}

func (s *SiteService) dropPages(configID string) error {
	pages, err := s.pages.ListPages(configID)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		if err := s.dropPage(p.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SiteService) dropPage(pageID string) error {
	if err := s.widgets.DeleteWidgetsByPage(pageID); err != nil {
		return fmt.Errorf("delete widgets: %w", err)
	}
	if err := s.canvas.ClearHistory(pageID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if err := s.pages.DeletePage(pageID); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}

// ── Pages ──────────────────────────────────────────────────

func (s *SiteService) ListPages(configID string) ([]domain.Page, error) {
	pages, err := s.pages.ListPages(configID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if pages == nil {
		pages = []domain.Page{}
	}
	return pages, nil
}

func (s *SiteService) GetPage(id string) (*domain.Page, error) {
	return s.pages.GetPage(id)
}

// normalizeSlug trims the slug and makes it start with "/".
func normalizeSlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if !strings.HasPrefix(slug, "/") {
		slug = "/" + slug
	}
	return slug
}

func (s *SiteService) slugTaken(configID, slug, exceptID string) (bool, error) {
	pages, err := s.pages.ListPages(configID)
	if err != nil {
		return false, err
	}
	for _, p := range pages {
		if p.Slug == slug && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// AddPage appends a page to a configuration. Slugs are unique per
// configuration.
func (s *SiteService) AddPage(ctx context.Context, configID, title, slug string) (*domain.Page, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if _, err := s.configs.GetConfiguration(configID); err != nil {
		return nil, err
	}
	slug = normalizeSlug(slug)
	taken, err := s.slugTaken(configID, slug, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSlug, slug)
	}
	existing, err := s.pages.ListPages(configID)
	if err != nil {
		return nil, err
	}

	p := &domain.Page{
		ID:              uuid.New().String(),
		ConfigurationID: configID,
		Title:           title,
		Slug:            slug,
		Order:           len(existing),
	}
	if err := s.pages.CreatePage(p); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventPagesChanged, map[string]string{"configurationId": configID})
	return p, nil
}

// PagePatch carries a partial page update.
type PagePatch struct {
	Title *string `json:"title,omitempty"`
	Slug  *string `json:"slug,omitempty"`
}

func (s *SiteService) UpdatePage(ctx context.Context, id string, patch PagePatch) (*domain.Page, error) {
	p, err := s.pages.GetPage(id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Slug != nil {
		slug := normalizeSlug(*patch.Slug)
		taken, err := s.slugTaken(p.ConfigurationID, slug, p.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlug, slug)
		}
		p.Slug = slug
	}
	if err := s.pages.UpdatePage(p); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	s.emitter.Emit(ctx, EventPagesChanged, map[string]string{"configurationId": p.ConfigurationID})
	return p, nil
}

// RemovePage deletes a page and its widgets. The homepage cannot be
// removed; removing the current page makes the homepage current.
func (s *SiteService) RemovePage(ctx context.Context, id string) error {
	p, err := s.pages.GetPage(id)
	if err != nil {
		return err
	}
	if p.IsHomepage {
		return ErrHomepageRemoval
	}
	c, err := s.configs.GetConfiguration(p.ConfigurationID)
	if err != nil {
		return err
	}
	if err := s.dropPage(id); err != nil {
		return err
	}
	if c.CurrentPageID == id {
		if home, err := s.homepage(c.ID); err == nil {
			c.CurrentPageID = home.ID
			if err := s.configs.UpdateConfiguration(c); err != nil {
				return fmt.Errorf("update configuration: %w", err)
			}
		}
	}
	s.emitter.Emit(ctx, EventPagesChanged, map[string]string{"configurationId": c.ID})
	return nil
}

func (s *SiteService) homepage(configID string) (*domain.Page, error) {
	pages, err := s.pages.ListPages(configID)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		if pages[i].IsHomepage {
			return &pages[i], nil
		}
	}
	return nil, fmt.Errorf("configuration %s has no homepage", configID)
}

// SetCurrentPage selects the page being edited.
func (s *SiteService) SetCurrentPage(ctx context.Context, configID, pageID string) (*domain.Configuration, error) {
	c, err := s.configs.GetConfiguration(configID)
	if err != nil {
		return nil, err
	}
	p, err := s.pages.GetPage(pageID)
	if err != nil {
		return nil, err
	}
	if p.ConfigurationID != configID {
		return nil, ErrForeignPage
	}
	c.CurrentPageID = pageID
	if err := s.configs.UpdateConfiguration(c); err != nil {
		return nil, fmt.Errorf("update configuration: %w", err)
	}
	s.emitter.Emit(ctx, EventConfigurationChanged, map[string]string{"configurationId": c.ID, "currentPageId": pageID})
	return c, nil
}

// PageBySlug finds a page of a configuration by slug.
func (s *SiteService) PageBySlug(configID, slug string) (*domain.Page, error) {
	pages, err := s.pages.ListPages(configID)
	if err != nil {
		return nil, err
	}
	slug = normalizeSlug(slug)
	for i := range pages {
		if pages[i].Slug == slug {
			return &pages[i], nil
		}
	}
	return nil, fmt.Errorf("page %s: %w", slug, sql.ErrNoRows)
}

// ── Documents ──────────────────────────────────────────────

// Document assembles the full site document of a configuration. The API key
// is never included.
func (s *SiteService) Document(configID string) (*domain.SiteDocument, error) {
	c, err := s.configs.GetConfiguration(configID)
	if err != nil {
		return nil, err
	}
	pages, err := s.ListPages(configID)
	if err != nil {
		return nil, err
	}
	doc := &domain.SiteDocument{Configuration: *c, Pages: make([]domain.PageState, 0, len(pages))}
	for _, p := range pages {
		widgets, err := s.canvas.ListWidgets(p.ID)
		if err != nil {
			return nil, err
		}
		doc.Pages = append(doc.Pages, domain.PageState{Page: p, Widgets: widgets})
	}
	return doc, nil
}

// ImportDocument validates a site document and stores it, replacing any
// configuration with the same id. Every page must fit the grid without
// overlapping widgets; nothing is written when validation fails.
func (s *SiteService) ImportDocument(ctx context.Context, doc *domain.SiteDocument) (*domain.Configuration, error) {
	if err := s.prepareDocument(doc); err != nil {
		return nil, err
	}
	c := doc.Configuration
	apiKey := c.APIKey
	c.APIKey = ""

	if _, err := s.configs.GetConfiguration(c.ID); err == nil {
		if err := s.dropPages(c.ID); err != nil {
			return nil, err
		}
		if err := s.configs.UpdateConfiguration(&c); err != nil {
			return nil, fmt.Errorf("update configuration: %w", err)
		}
	} else if err := s.configs.CreateConfiguration(&c); err != nil {
		return nil, err
	}

	for _, ps := range doc.Pages {
		page := ps.Page
		if err := s.pages.CreatePage(&page); err != nil {
			return nil, err
		}
		if err := s.widgets.ReplacePageWidgets(page.ID, ps.Widgets); err != nil {
			return nil, fmt.Errorf("import widgets: %w", err)
		}
	}
	if apiKey != "" {
		if err := s.secrets.Set(secret.APIKeyName(c.ID), []byte(apiKey)); err != nil {
			return nil, fmt.Errorf("store api key: %w", err)
		}
	}

	s.emitter.Emit(ctx, EventConfigurationChanged, map[string]string{"configurationId": c.ID})
	s.emitter.Emit(ctx, EventPagesChanged, map[string]string{"configurationId": c.ID})
	return &c, nil
}

// prepareDocument fills missing ids, canonicalizes widget positions and
// validates the document in place.
func (s *SiteService) prepareDocument(doc *domain.SiteDocument) error {
	c := &doc.Configuration
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: configuration name is required", ErrInvalid)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Template.ID == "" {
		c.Template, _ = domain.TemplateByID("minimal")
	}
	c.ColorScheme = domain.DefaultColorScheme().Merge(c.ColorScheme)
	if len(doc.Pages) == 0 {
		doc.Pages = []domain.PageState{{Page: domain.Page{Title: "Home", Slug: "/", IsHomepage: true}}}
	}

	var errs []error
	homepages := 0
	slugs := make(map[string]bool)
	for i := range doc.Pages {
		p := &doc.Pages[i].Page
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.ConfigurationID = c.ID
		p.Order = i
		p.Slug = normalizeSlug(p.Slug)
		if slugs[p.Slug] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateSlug, p.Slug))
		}
		slugs[p.Slug] = true
		if p.IsHomepage {
			homepages++
		}

		widgets := doc.Pages[i].Widgets
		items := make([]grid.Item, 0, len(widgets))
		for j := range widgets {
			w := &widgets[j]
			if !w.Type.Valid() {
				errs = append(errs, fmt.Errorf("page %s widget %s: %w: %q", p.Slug, w.ID, ErrInvalidWidgetType, w.Type))
			}
			if w.ID == "" {
				w.ID = "widget-" + uuid.New().String()
			}
			w.PageID = p.ID
			r := s.canvas.Footprint(*w)
			s.canvas.applyRect(w, r)
			items = append(items, grid.Item{ID: w.ID, Rect: r})
		}
		if err := grid.Validate(items, grid.Columns, grid.Rows); err != nil {
			errs = append(errs, fmt.Errorf("page %s: %w: %w", p.Slug, ErrInvalid, err))
		}
	}
	switch {
	case homepages == 0:
		doc.Pages[0].Page.IsHomepage = true
	case homepages > 1:
		errs = append(errs, fmt.Errorf("%w: %d homepages", ErrInvalid, homepages))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	current := false
	for _, ps := range doc.Pages {
		if ps.Page.ID == c.CurrentPageID {
			current = true
		}
	}
	if !current {
		for _, ps := range doc.Pages {
			if ps.Page.IsHomepage {
				c.CurrentPageID = ps.Page.ID
			}
		}
	}
	return nil
}
