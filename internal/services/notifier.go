package services

import (
	"log"
)

// Notifier delivers a message to a patient's contact channel (an SMS number
// in production). Delivery is fire-and-forget: callers log failures and
// move on, they never retry or propagate.
type Notifier interface {
	Send(to, message string) error
}

// LogNotifier writes messages to the process log instead of sending them.
// Used in development and wherever no SMS gateway is configured.
type LogNotifier struct{}

func (LogNotifier) Send(to, message string) error {
	log.Printf("[SMS] To: %s, Message: %s", to, message)
	return nil
}
