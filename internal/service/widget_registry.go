package service

import (
	"fmt"
	"sync"

	"sitebuilder/internal/domain"
)

// WidgetPlugin validates and normalizes the configuration of one widget type.
type WidgetPlugin interface {
	WidgetType() domain.WidgetType
	// Normalize returns the cleaned configuration or an error describing why
	// it cannot be used.
	Normalize(config map[string]any) (map[string]any, error)
}

// WidgetRegistry dispatches widget configuration to the registered plugins.
type WidgetRegistry struct {
	mu      sync.RWMutex
	plugins map[domain.WidgetType]WidgetPlugin
}

func NewWidgetRegistry() *WidgetRegistry {
	return &WidgetRegistry{plugins: make(map[domain.WidgetType]WidgetPlugin)}
}

// Register adds a plugin to the registry. Panics on duplicate registration.
func (r *WidgetRegistry) Register(p WidgetPlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := p.WidgetType()
	if _, exists := r.plugins[t]; exists {
		panic(fmt.Sprintf("widget registry: duplicate registration for widget type %q", t))
	}
	r.plugins[t] = p
}

// Normalize runs the plugin for t, if any. Types without a plugin keep their
// configuration as is.
func (r *WidgetRegistry) Normalize(t domain.WidgetType, config map[string]any) (map[string]any, error) {
	if r == nil {
		return config, nil
	}
	r.mu.RLock()
	p, ok := r.plugins[t]
	r.mu.RUnlock()
	if !ok {
		return config, nil
	}
	out, err := p.Normalize(config)
	if err != nil {
		return nil, fmt.Errorf("%w: %s config: %v", ErrInvalid, t, err)
	}
	return out, nil
}

// Types lists the widget types that have a plugin.
func (r *WidgetRegistry) Types() []domain.WidgetType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.WidgetType, 0, len(r.plugins))
	for _, wt := range domain.WidgetTypes {
		if _, ok := r.plugins[wt]; ok {
			out = append(out, wt)
		}
	}
	return out
}
