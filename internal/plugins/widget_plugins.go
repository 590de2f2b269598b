package plugins

import (
	"fmt"
	"strings"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/service"
)

// Register adds the built-in widget plugins to r.
func Register(r *service.WidgetRegistry) {
	r.Register(exchangeRatesPlugin{})
	r.Register(converterPlugin{})
	r.Register(menuPlugin{})
}

// ─────────────────────────────────────────────────────────────
// Exchange rates: a non-empty list of currency codes
// ─────────────────────────────────────────────────────────────

type exchangeRatesPlugin struct{}

func (exchangeRatesPlugin) WidgetType() domain.WidgetType { return domain.WidgetTypeExchangeRates }

func (exchangeRatesPlugin) Normalize(cfg map[string]any) (map[string]any, error) {
	raw, ok := cfg["currencies"].([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("currencies must be a non-empty list")
	}
	seen := make(map[string]bool, len(raw))
	codes := make([]any, 0, len(raw))
	for _, v := range raw {
		code, err := currencyCode(v)
		if err != nil {
			return nil, err
		}
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	out := copyConfig(cfg)
	out["currencies"] = codes
	return out, nil
}

// ─────────────────────────────────────────────────────────────
// Converter: a from/to currency pair
// ─────────────────────────────────────────────────────────────

type converterPlugin struct{}

func (converterPlugin) WidgetType() domain.WidgetType { return domain.WidgetTypeConverter }

func (converterPlugin) Normalize(cfg map[string]any) (map[string]any, error) {
	from, err := currencyCode(cfg["fromCurrency"])
	if err != nil {
		return nil, fmt.Errorf("fromCurrency: %w", err)
	}
	to, err := currencyCode(cfg["toCurrency"])
	if err != nil {
		return nil, fmt.Errorf("toCurrency: %w", err)
	}
	out := copyConfig(cfg)
	out["fromCurrency"] = from
	out["toCurrency"] = to
	return out, nil
}

// ─────────────────────────────────────────────────────────────
// Menu: items with a label and a url
// ─────────────────────────────────────────────────────────────

type menuPlugin struct{}

func (menuPlugin) WidgetType() domain.WidgetType { return domain.WidgetTypeMenu }

func (menuPlugin) Normalize(cfg map[string]any) (map[string]any, error) {
	raw, ok := cfg["items"].([]any)
	if !ok {
		return nil, fmt.Errorf("items must be a list")
	}
	items := make([]any, 0, len(raw))
	for i, v := range raw {
		item, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		label, _ := item["label"].(string)
		url, _ := item["url"].(string)
		if strings.TrimSpace(label) == "" || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("item %d needs a label and a url", i)
		}
		items = append(items, map[string]any{"label": label, "url": url})
	}
	out := copyConfig(cfg)
	out["items"] = items
	return out, nil
}

func currencyCode(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("currency code must be a string, got %T", v)
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || len(s) > 10 {
		return "", fmt.Errorf("invalid currency code %q", s)
	}
	return s, nil
}

func copyConfig(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}
