package domain

// ExtractionMode tells the strategy chain how a retailer must be read.
type ExtractionMode string

const (
	// ModeHTML reads the fetched page markup (default)
	ModeHTML ExtractionMode = "html"
	// ModeAPI reads a retailer product API addressed by a SKU taken from the URL
	ModeAPI ExtractionMode = "api"
	// ModeRender skips direct fetching; the page only exists after JavaScript runs
	ModeRender ExtractionMode = "render"
)

// SelectorSet holds ordered CSS selector lists per product field.
type SelectorSet struct {
	Name        []string `yaml:"name" json:"name"`
	Price       []string `yaml:"price" json:"price"`
	Color       []string `yaml:"color" json:"color"`
	Image       []string `yaml:"image" json:"image"`
	Brand       []string `yaml:"brand" json:"brand"`
	Description []string `yaml:"description" json:"description"`
}

// APIConfig describes a JSON product endpoint. Endpoint contains a {sku} placeholder;
// field values are dotted paths into the decoded JSON (numeric segments index arrays).
type APIConfig struct {
	SKUPattern  string            `yaml:"sku_pattern" json:"skuPattern"`
	Endpoint    string            `yaml:"endpoint" json:"endpoint"`
	Fields      map[string]string `yaml:"fields" json:"fields"`
	ImagePrefix string            `yaml:"image_prefix" json:"imagePrefix,omitempty"`
}

// RetailerProfile is static per-domain extraction configuration.
type RetailerProfile struct {
	Name            string            `yaml:"name" json:"name"`
	HostMatchers    []string          `yaml:"hosts" json:"hosts"`
	Selectors       SelectorSet       `yaml:"selectors" json:"selectors"`
	Headers         map[string]string `yaml:"headers" json:"headers,omitempty"`
	DefaultBrand    string            `yaml:"default_brand" json:"defaultBrand,omitempty"`
	DefaultCurrency string            `yaml:"default_currency" json:"defaultCurrency,omitempty"`
	URLTransform    string            `yaml:"url_transform" json:"urlTransform,omitempty"`
	Mode            ExtractionMode    `yaml:"mode" json:"mode"`
	API             *APIConfig        `yaml:"api" json:"api,omitempty"`
	Generic         bool              `yaml:"-" json:"generic"`
}
