package domain

import "strings"

// Price is a parsed, two-decimal amount with an optional ISO currency code.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// ProductType is the detected category of a garment.
type ProductType struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	DisplayName string `json:"displayName"`
}

// ProductRecord is the normalized result of a product extraction.
// Only Name and ImageURL are guaranteed; every other field is best-effort.
type ProductRecord struct {
	Name        string       `json:"name"`
	ImageURL    string       `json:"imageUrl"`
	Price       *Price       `json:"price"`
	Color       string       `json:"color,omitempty"`
	Brand       string       `json:"brand,omitempty"`
	Type        *ProductType `json:"type"`
	Description string       `json:"description,omitempty"`
	SourceURL   string       `json:"sourceUrl"`
}

// Valid reports whether the record carries the two required fields.
func (p *ProductRecord) Valid() bool {
	return p != nil && strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.ImageURL) != ""
}

// ExtractionAttempt is the diagnostic trace of one strategy run.
type ExtractionAttempt struct {
	Strategy   string `json:"strategy"`
	Succeeded  bool   `json:"succeeded"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

// ImageAnalysis is what the vision model recognised in an uploaded photo.
type ImageAnalysis struct {
	Name        string       `json:"name"`
	Color       string       `json:"color,omitempty"`
	Brand       string       `json:"brand,omitempty"`
	Type        *ProductType `json:"type"`
	Description string       `json:"description,omitempty"`
}
