package orders

import "time"

// Ledger statuses. An entry starts CREATED when the gateway order is made,
// becomes PAID once the payment signature verifies and EMAIL_SENT after the
// confirmation goes out.
const (
	StatusCreated   = "CREATED"
	StatusPaid      = "PAID"
	StatusEmailSent = "EMAIL_SENT"
	StatusFailed    = "FAILED"
)

// LedgerEntry is the item stored in the orders DynamoDB table, keyed by the gateway order id.
type LedgerEntry struct {
	OrderID     string            `dynamodbav:"order_id" json:"order_id"` // PK, gateway order id
	Receipt     string            `dynamodbav:"receipt,omitempty" json:"receipt,omitempty"`
	Status      string            `dynamodbav:"status" json:"status"`
	AmountMinor int64             `dynamodbav:"amount_minor" json:"amount_minor"` // paise
	Currency    string            `dynamodbav:"currency" json:"currency"`
	PaymentID   string            `dynamodbav:"payment_id,omitempty" json:"payment_id,omitempty"`
	Notes       map[string]string `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time         `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `dynamodbav:"updated_at" json:"updated_at"`
	Attempts    int               `dynamodbav:"attempts,omitempty" json:"attempts,omitempty"`
}
