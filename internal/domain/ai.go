package domain

// ProductInterpretation is the validated shape of an AI product reading.
type ProductInterpretation struct {
	Name        string `json:"name"`
	ImageURL    string `json:"imageUrl"`
	PriceText   string `json:"price"`
	Currency    string `json:"currency"`
	Color       string `json:"color"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Description string `json:"description"`
}

// BasicInfo is whatever earlier strategies managed to pull from the page.
type BasicInfo struct {
	Name        string `json:"name,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Price       string `json:"price,omitempty"`
	Color       string `json:"color,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Description string `json:"description,omitempty"`
}

// Verdict is one entry of an adjudication reply, indexed into the list sent to the model.
// Duplicate adjudication fills IsDuplicate, similarity scoring fills IsSimilar.
type Verdict struct {
	ItemIndex   int     `json:"itemIndex"`
	Confidence  float64 `json:"confidence"`
	IsDuplicate bool    `json:"isDuplicate"`
	IsSimilar   bool    `json:"isSimilar"`
	Reason      string  `json:"reason"`
}
