package catalog

import "sync"

// Catalog is a read-only, ordered set of products.
type Catalog struct {
	products []Product
	byID     map[string]int
}

type seedProduct struct {
	id, name, description, category string
	price                           float64
	featured, inStock               bool
	reviews                         int
}

var seedProducts = []seedProduct{
	{"tpl-resume-minimal", "Minimal Resume Template", "A clean one-page resume layout with matching cover letter, in Figma and DOCX formats.", "Resumes", 299, true, true, 6},
	{"tpl-brand-kit", "Startup Brand Identity Kit", "Logo grid, colour system, typography scale and social templates for early-stage brands.", "Branding", 1499, true, true, 8},
	{"tpl-pitch-deck", "Investor Pitch Deck", "Thirty slide pitch deck with charts, team pages and financial summary layouts.", "Presentations", 999, true, true, 7},
	{"tpl-instagram-pack", "Instagram Post Pack", "Sixty editable square and story posts for product launches and announcements.", "Social Media", 449, false, true, 5},
	{"tpl-wedding-invite", "Floral Wedding Invitation Suite", "Invitation, RSVP card and menu designs with watercolour florals.", "Print", 599, false, true, 4},
	{"tpl-invoice-pro", "Freelancer Invoice Template", "Editable invoice and quotation templates with GST fields.", "Business", 199, false, true, 3},
	{"tpl-ui-dashboard", "Analytics Dashboard UI Kit", "Component library and twelve dashboard screens for web apps.", "UI Kits", 2499, true, true, 9},
	{"tpl-business-card", "Modern Business Card Set", "Ten double-sided business card layouts ready for print.", "Print", 149, false, false, 2},
}

// New builds a catalogue from products, preserving order.
func New(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	copy(c.products, products)
	for i, p := range c.products {
		c.byID[p.ID] = i
	}
	return c
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in storefront catalogue.
func Default() *Catalog {
	defaultOnce.Do(func() {
		products := make([]Product, 0, len(seedProducts))
		for _, s := range seedProducts {
			reviews := GenerateReviews(s.id, s.reviews)
			products = append(products, Product{
				ID:          s.id,
				Name:        s.name,
				Price:       s.price,
				Description: s.description,
				Image:       "/images/" + s.id + ".png",
				Category:    s.category,
				InStock:     s.inStock,
				Featured:    s.featured,
				Rating:      AverageRating(reviews),
				ReviewCount: len(reviews),
				Reviews:     reviews,
			})
		}
		defaultCatalog = New(products)
	})
	return defaultCatalog
}

// Get returns the product with id.
func (c *Catalog) Get(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// All returns every product in catalogue order.
func (c *Catalog) All() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Featured returns the featured products.
func (c *Catalog) Featured() []Product {
	var out []Product
	for _, p := range c.products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

// ByCategory returns products in category.
func (c *Catalog) ByCategory(category string) []Product {
	var out []Product
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
