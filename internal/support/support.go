package support

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/example/storefront/internal/notify"
)

// Field caps before the ticket enters the outbound message. The message
// rides in the embed description, which allows more room than a field.
const (
	maxSubjectLen = 256
	maxMessageLen = 4000
)

const ticketEmbedColor = 0x0ea5e9

// ErrMissingFields rejects a ticket without a subject or message.
var ErrMissingFields = errors.New("missing fields")

// User identifies the submitter when one is signed in.
type User struct {
	Name string `json:"name,omitempty"`
	ID   string `json:"id,omitempty"`
}

// Ticket is a support intake submission. Subject and Message are required;
// the user block is optional and purely informational.
type Ticket struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

// Validate checks the intake contract.
func (t *Ticket) Validate() error {
	if t.Subject == "" || t.Message == "" {
		return ErrMissingFields
	}
	return nil
}

func (t *Ticket) from() string {
	name := "Guest"
	if t.User != nil && t.User.Name != "" {
		name = t.User.Name
	}
	if t.User != nil && t.User.ID != "" {
		return fmt.Sprintf("%s (Discord ID: %s)", name, t.User.ID)
	}
	return name
}

// Embed builds the outbound message for a validated ticket.
func (t *Ticket) Embed() notify.Embed {
	return notify.Embed{
		Title:       "New Support Ticket",
		Description: truncate(t.Message, maxMessageLen),
		Color:       ticketEmbedColor,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields: []notify.Field{
			{Name: "Subject", Value: truncate(t.Subject, maxSubjectLen)},
			{Name: "From", Value: t.from(), Inline: true},
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
