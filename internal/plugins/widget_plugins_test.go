package plugins_test

import (
	"errors"
	"testing"

	"sitebuilder/internal/domain"
	"sitebuilder/internal/plugins"
	"sitebuilder/internal/service"

	"github.com/google/go-cmp/cmp"
)

func newRegistry() *service.WidgetRegistry {
	r := service.NewWidgetRegistry()
	plugins.Register(r)
	return r
}

func TestDefaultConfigsAreValid(t *testing.T) {
	r := newRegistry()
	for _, wt := range domain.WidgetTypes {
		if _, err := r.Normalize(wt, wt.DefaultConfig()); err != nil {
			t.Errorf("default config of %s rejected: %v", wt, err)
		}
	}
}

func TestExchangeRates_NormalizesCodes(t *testing.T) {
	r := newRegistry()
	got, err := r.Normalize(domain.WidgetTypeExchangeRates, map[string]any{
		"currencies": []any{"btc", " eth ", "BTC"},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := map[string]any{"currencies": []any{"BTC", "ETH"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConverter_RejectsMissingCurrency(t *testing.T) {
	r := newRegistry()
	_, err := r.Normalize(domain.WidgetTypeConverter, map[string]any{"fromCurrency": "BTC"})
	if !errors.Is(err, service.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestMenu_RequiresLabelAndURL(t *testing.T) {
	r := newRegistry()
	_, err := r.Normalize(domain.WidgetTypeMenu, map[string]any{
		"items": []any{map[string]any{"label": "Home"}},
	})
	if !errors.Is(err, service.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestFormHasNoPlugin(t *testing.T) {
	r := newRegistry()
	cfg := map[string]any{"anything": true}
	got, err := r.Normalize(domain.WidgetTypeForm, cfg)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("form config changed:\n%s", diff)
	}
	if diff := cmp.Diff([]domain.WidgetType{domain.WidgetTypeExchangeRates, domain.WidgetTypeConverter, domain.WidgetTypeMenu}, r.Types()); diff != "" {
		t.Errorf("Types mismatch:\n%s", diff)
	}
}
