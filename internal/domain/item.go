package domain

// WardrobeItem is an item planned for an event, as compared by the duplicate engine.
type WardrobeItem struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"ownerId,omitempty"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	Color       string  `json:"color,omitempty"`
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// MatchType distinguishes a near-certain duplicate from a lookalike.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchSimilar MatchType = "similar"
)

// DuplicateCandidate pairs the new item with a pool item the adjudicator considers the same garment.
type DuplicateCandidate struct {
	ItemA      WardrobeItem `json:"itemA"`
	ItemB      WardrobeItem `json:"itemB"`
	MatchType  MatchType    `json:"matchType"`
	Confidence float64      `json:"confidence"`
	Reason     string       `json:"reason"`
}

// SimilarCandidate pairs the new item with a pool item that might interest the same wardrobe.
type SimilarCandidate struct {
	ItemA      WardrobeItem `json:"itemA"`
	ItemB      WardrobeItem `json:"itemB"`
	Confidence float64      `json:"confidence"`
	Reason     string       `json:"reason"`
}
