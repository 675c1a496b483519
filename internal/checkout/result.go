package checkout

import "github.com/imrishuroy/go-template-storefront/internal/orders"

// PaymentResult is what the hosted widget reports when it closes. It is one of
// PaymentCompleted, PaymentDismissed or PaymentFailed.
type PaymentResult interface {
	paymentResult()
}

// PaymentCompleted carries the three values the gateway signs.
type PaymentCompleted struct {
	OrderID   string
	PaymentID string
	Signature string
}

// PaymentDismissed means the customer closed the widget without paying.
type PaymentDismissed struct{}

// PaymentFailed means the gateway declined or errored.
type PaymentFailed struct {
	Reason string
}

func (PaymentCompleted) paymentResult() {}
func (PaymentDismissed) paymentResult() {}
func (PaymentFailed) paymentResult()    {}

// Status is the terminal state of one checkout attempt.
type Status string

const (
	StatusSucceeded            Status = "succeeded"
	StatusSucceededEmailFailed Status = "succeeded_email_failed"
	StatusCancelled            Status = "cancelled"
	StatusPaymentFailed        Status = "payment_failed"
	StatusValidationFailed     Status = "validation_failed"
)

// Outcome describes how a checkout attempt ended. Order and ConfirmationURL
// are set only when the order was placed.
type Outcome struct {
	Status          Status
	Order           *orders.Details
	ConfirmationURL string
}

// Placed reports whether the order went through, with or without the email.
func (o Outcome) Placed() bool {
	return o.Status == StatusSucceeded || o.Status == StatusSucceededEmailFailed
}

// NoticeLevel is the severity of a user-visible notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-visible message. Every terminal status emits exactly one.
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
}

// Notices shows notices to the user.
type Notices interface {
	Notify(n Notice)
}

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(url string)
}
