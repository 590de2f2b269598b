package domain

// PageState is a page together with its widgets, as rendered by the canvas.
type PageState struct {
	Page    Page     `json:"page" yaml:"page"`
	Widgets []Widget `json:"widgets" yaml:"widgets"`
}

// SiteDocument is a full configuration with every page and widget. It is the
// unit exchanged by the template API, export/import and publishing.
type SiteDocument struct {
	Configuration Configuration `json:"configuration" yaml:"configuration"`
	Pages         []PageState   `json:"pages" yaml:"pages"`
}
