package commission

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/example/storefront/internal/notify"
)

// Offered service categories. The intake form's service field must match
// one of these exactly.
const (
	ServiceStaticWebsite  = "Static Website"
	ServiceDynamicWebsite = "Dynamic Website"
	ServiceDiscordBot     = "Discord Bot"
	ServiceCADMDT         = "CAD/MDT System"
)

// maxFieldLen caps each free-form field before it enters the outbound
// message. This defends the outbound channel, not a security boundary.
const maxFieldLen = 1024

const defaultEmbedColor = 0x6366f1

var serviceColors = map[string]int{
	ServiceStaticWebsite:  0x60a5fa,
	ServiceDynamicWebsite: 0x34d399,
	ServiceDiscordBot:     0xf472b6,
	ServiceCADMDT:         0xf59e0b,
}

var (
	ErrMissingService = errors.New("missing service")
	ErrUnknownService = errors.New("unknown service")
)

// Request is a commission intake submission. Only Service is required.
type Request struct {
	Service  string `json:"service"`
	Pages    string `json:"pages,omitempty"`
	Details  string `json:"details,omitempty"`
	Design   string `json:"design,omitempty"`
	Budget   string `json:"budget,omitempty"`
	Timeline string `json:"timeline,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Validate checks the intake contract.
func (r *Request) Validate() error {
	if r.Service == "" {
		return ErrMissingService
	}
	if _, ok := serviceColors[r.Service]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownService, r.Service)
	}
	return nil
}

func truncate(s string) string {
	if len(s) <= maxFieldLen {
		return s
	}
	// Back up to a rune boundary so the cut never emits invalid UTF-8.
	cut := maxFieldLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Embed builds the outbound message for a validated request. Optional
// fields are included only when set, each length-capped.
func (r *Request) Embed() notify.Embed {
	color, ok := serviceColors[r.Service]
	if !ok {
		color = defaultEmbedColor
	}

	var fields []notify.Field
	add := func(name, value string, inline bool) {
		if value == "" {
			return
		}
		fields = append(fields, notify.Field{Name: name, Value: truncate(value), Inline: inline})
	}
	add("Pages / Scope", r.Pages, false)
	add("Project Details", r.Details, false)
	add("Design Ideas", r.Design, false)
	add("Budget", r.Budget, true)
	add("Timeline", r.Timeline, true)
	add("Contact Email", r.Email, true)

	return notify.Embed{
		Title:     "New Commission – " + r.Service,
		Color:     color,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields:    fields,
		Footer:    &notify.Footer{Text: "Start a Project form"},
	}
}
