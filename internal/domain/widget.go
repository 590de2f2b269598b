package domain

import "time"

type WidgetType string

const (
	WidgetTypeExchangeRates WidgetType = "exchangeRates"
	WidgetTypeConverter     WidgetType = "converter"
	WidgetTypeTransaction   WidgetType = "transaction"
	WidgetTypeMenu          WidgetType = "menu"
	WidgetTypeForm          WidgetType = "form"
)

// WidgetTypes lists every widget kind the builder can place.
var WidgetTypes = []WidgetType{
	WidgetTypeExchangeRates,
	WidgetTypeConverter,
	WidgetTypeTransaction,
	WidgetTypeMenu,
	WidgetTypeForm,
}

func (t WidgetType) Valid() bool {
	for _, wt := range WidgetTypes {
		if wt == t {
			return true
		}
	}
	return false
}

// DefaultTitle is the title given to a new widget when none is supplied.
func (t WidgetType) DefaultTitle() string {
	switch t {
	case WidgetTypeExchangeRates:
		return "Exchange Rates"
	case WidgetTypeConverter:
		return "Currency Converter"
	case WidgetTypeTransaction:
		return "Transaction Form"
	case WidgetTypeMenu:
		return "Navigation Menu"
	case WidgetTypeForm:
		return "Contact Form"
	default:
		return "New Widget"
	}
}

// DefaultConfig returns a fresh copy of the starting configuration for t.
func (t WidgetType) DefaultConfig() map[string]any {
	switch t {
	case WidgetTypeExchangeRates:
		return map[string]any{"currencies": []any{"BTC", "ETH", "XMR", "LTC"}}
	case WidgetTypeConverter:
		return map[string]any{"fromCurrency": "BTC", "toCurrency": "USD"}
	case WidgetTypeMenu:
		return map[string]any{"items": []any{
			map[string]any{"label": "Home", "url": "/"},
			map[string]any{"label": "Exchange", "url": "/exchange"},
			map[string]any{"label": "About", "url": "/about"},
			map[string]any{"label": "Contact", "url": "/contact"},
		}}
	default:
		return map[string]any{}
	}
}

// Widget is a component placed on a page. GridColumn and GridRow hold the
// stored "<start> / span <n>" positions; Width and Height mirror the spans.
type Widget struct {
	ID         string         `json:"id" yaml:"id"`
	PageID     string         `json:"pageId" yaml:"pageId"`
	Type       WidgetType     `json:"type" yaml:"type"`
	Title      string         `json:"title" yaml:"title"`
	GridColumn string         `json:"gridColumn" yaml:"gridColumn"`
	GridRow    string         `json:"gridRow" yaml:"gridRow"`
	Width      int            `json:"width" yaml:"width"`
	Height     int            `json:"height" yaml:"height"`
	Config     map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	CreatedAt  time.Time      `json:"createdAt" yaml:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt" yaml:"updatedAt"`
}

// WidgetPatch carries a partial widget update. Nil fields are left as they are.
type WidgetPatch struct {
	Title  *string        `json:"title,omitempty"`
	Config map[string]any `json:"config,omitempty"`
	Col    *int           `json:"col,omitempty"`
	Row    *int           `json:"row,omitempty"`
	Width  *int           `json:"width,omitempty"`
	Height *int           `json:"height,omitempty"`
}

// MovesGeometry reports whether the patch touches position or size.
func (p WidgetPatch) MovesGeometry() bool {
	return p.Col != nil || p.Row != nil || p.Width != nil || p.Height != nil
}

type WidgetStore interface {
	CreateWidget(w *Widget) error
	GetWidget(id string) (*Widget, error)
	ListWidgets(pageID string) ([]Widget, error)
	UpdateWidget(w *Widget) error
	DeleteWidget(id string) error
	DeleteWidgetsByPage(pageID string) error
	ReplacePageWidgets(pageID string, widgets []Widget) error
}
