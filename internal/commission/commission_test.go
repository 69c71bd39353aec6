package commission

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"valid static website", Request{Service: ServiceStaticWebsite}, nil},
		{"valid dynamic website", Request{Service: ServiceDynamicWebsite}, nil},
		{"valid discord bot", Request{Service: ServiceDiscordBot}, nil},
		{"valid cad/mdt", Request{Service: ServiceCADMDT}, nil},
		{"missing service", Request{}, ErrMissingService},
		{"unknown service", Request{Service: "Time Machine"}, ErrUnknownService},
		{"case sensitive", Request{Service: "discord bot"}, ErrUnknownService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRequest_Embed(t *testing.T) {
	req := Request{
		Service:  ServiceDiscordBot,
		Pages:    "n/a",
		Details:  "Moderation bot with logging",
		Budget:   "$200",
		Timeline: "2 weeks",
		Email:    "client@example.com",
	}

	embed := req.Embed()

	assert.Equal(t, "New Commission – Discord Bot", embed.Title)
	assert.Equal(t, serviceColors[ServiceDiscordBot], embed.Color)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Start a Project form", embed.Footer.Text)
	assert.NotEmpty(t, embed.Timestamp)

	// Design was empty and must be absent
	names := make([]string, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Pages / Scope", "Project Details", "Budget", "Timeline", "Contact Email"}, names)
}

func TestRequest_Embed_TruncatesLongFields(t *testing.T) {
	req := Request{
		Service: ServiceStaticWebsite,
		Details: strings.Repeat("x", maxFieldLen+500),
	}

	embed := req.Embed()

	require.Len(t, embed.Fields, 1)
	assert.Len(t, embed.Fields[0].Value, maxFieldLen)
}

func TestRequest_Embed_TruncationKeepsValidUTF8(t *testing.T) {
	// A multi-byte rune straddling the cap must not be split.
	req := Request{
		Service: ServiceStaticWebsite,
		Details: strings.Repeat("a", maxFieldLen-1) + "é",
	}

	embed := req.Embed()

	require.Len(t, embed.Fields, 1)
	value := embed.Fields[0].Value
	assert.LessOrEqual(t, len(value), maxFieldLen)
	assert.True(t, utf8.ValidString(value))
	assert.Equal(t, maxFieldLen-1, len(value))
}

func TestRequest_Embed_OnlyService(t *testing.T) {
	req := Request{Service: ServiceCADMDT}

	embed := req.Embed()

	assert.Empty(t, embed.Fields)
	assert.Equal(t, serviceColors[ServiceCADMDT], embed.Color)
}
