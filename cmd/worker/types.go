package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imrishuroy/go-template-storefront/internal/notify"
)

var errIncompleteMessage = errors.New("message missing order id or customer email")

// decodeMessage parses a queued confirmation published by notify.QueueNotifier.
func decodeMessage(body string) (notify.QueueMessage, error) {
	var msg notify.QueueMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return msg, fmt.Errorf("invalid message body: %w", err)
	}
	if msg.Order.OrderID == "" || msg.Order.Customer.Email == "" {
		return msg, errIncompleteMessage
	}
	return msg, nil
}
