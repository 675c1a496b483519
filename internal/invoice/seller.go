package invoice

// Seller is the business block printed on every invoice.
type Seller struct {
	Name    string
	Tagline string
	Address []string
	Email   string
	Phone   string
	Website string
	GSTIN   string
	PAN     string
}

// DefaultSeller is the storefront's own business identity.
var DefaultSeller = Seller{
	Name:    "Templify Studio",
	Tagline: "Premium digital design templates",
	Address: []string{
		"3rd Floor, Indiranagar Workspace",
		"100 Feet Road, Bengaluru 560038",
		"Karnataka, India",
	},
	Email:   "support@templify.studio",
	Phone:   "+91 80 4000 1234",
	Website: "templify.studio",
	GSTIN:   "29ABCDE1234F1Z5",
	PAN:     "ABCDE1234F",
}

// RefundPolicy is printed in the terms block.
const RefundPolicy = "Digital products are delivered instantly and are non-refundable once downloaded. " +
	"If a file is corrupt or does not match its description, contact us within 7 days for a replacement or refund."
