package services

import "context"

// Message is a transactional email with HTML and plain text bodies.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}
