package validation

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-template-storefront/internal/catalog"
	"github.com/imrishuroy/go-template-storefront/internal/pricing"
)

// New returns a validator that prices create-order items from the built-in
// catalogue.
func New() *validatorv10.Validate {
	return NewWithCatalog(catalog.Default())
}

// NewWithCatalog returns a configured validator with struct-level validation
// registered against products.
func NewWithCatalog(products *catalog.Catalog) *validatorv10.Validate {
	v := validatorv10.New()

	// when items are sent, each must be a known product at its listed price
	// and the amount must equal their sum plus shipping
	v.RegisterStructValidation(createOrderStructValidation(products), CreateOrderRequest{})

	return v
}

// createOrderStructValidation compares in paise to avoid float drift.
func createOrderStructValidation(products *catalog.Catalog) validatorv10.StructLevelFunc {
	return func(sl validatorv10.StructLevel) {
		req := sl.Current().Interface().(CreateOrderRequest)
		if len(req.Items) == 0 {
			return
		}

		var sum float64
		for i, it := range req.Items {
			p, ok := products.Get(it.ID)
			if !ok {
				sl.ReportError(it.ID, fmt.Sprintf("items[%d].id", i), "ID", "known_product", "")
				return
			}
			if pricing.ToMinorUnits(p.Price) != pricing.ToMinorUnits(it.Price) {
				sl.ReportError(it.Price, fmt.Sprintf("items[%d].price", i), "Price", "catalogue_price", fmt.Sprintf("%.2f", p.Price))
				return
			}
			sum += float64(it.Quantity) * p.Price
		}
		checkAmount(sl, req.Amount, pricing.Breakdown(sum).Total)
	}
}

func checkAmount(sl validatorv10.StructLevel, amount, expected float64) {
	if pricing.ToMinorUnits(expected) != pricing.ToMinorUnits(amount) {
		sl.ReportError(amount, "amount", "Amount", "amount_match_items", fmt.Sprintf("items total %.2f != amount %.2f", expected, amount))
	}
}

