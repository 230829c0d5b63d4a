package model

// Candidate is a listing found by the search phase. It is never mutated once
// produced; a negotiated price lives on the Deal instead.
type Candidate struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       float64  `json:"price"`
	SellerID    string   `json:"seller_id"`
	SellerName  string   `json:"seller_name"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Images      []string `json:"images,omitempty"`
	URL         string   `json:"url"`
}

// Deal is the winning candidate. Item.Price carries the resolved price,
// ListedPrice keeps the asking price.
type Deal struct {
	Item        Candidate `json:"item"`
	Price       float64   `json:"price"`
	ListedPrice float64   `json:"listed_price"`
}

// Saved is how much the negotiation took off the listing.
func (d Deal) Saved() float64 {
	return d.ListedPrice - d.Price
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SearchRequest struct {
	Query       string      `json:"query"`
	MaxPrice    float64     `json:"max_price"`
	Credentials Credentials `json:"credentials"`
}

// RequirementAnalysis is the structured reading of a free-text query.
type RequirementAnalysis struct {
	Keywords            []string `json:"keywords"`
	Category            string   `json:"category"`
	Features            []string `json:"features"`
	PriceSensitivity    string   `json:"price_sensitivity"`
	QualityRequirements string   `json:"quality_requirements"`
}
