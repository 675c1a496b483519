package catalog

// Review is a customer review attached to a product at catalogue build time.
type Review struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	Rating   int    `json:"rating"` // 1..5
	Comment  string `json:"comment"`
	Date     string `json:"date"` // ISO yyyy-mm-dd
	Verified bool   `json:"verified"`
}

// Product is an immutable catalogue entry. Price is in rupees.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
	Category    string   `json:"category"`
	InStock     bool     `json:"inStock"`
	Featured    bool     `json:"featured"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
	Reviews     []Review `json:"reviews,omitempty"`
}
