package wikitext

import (
	"testing"

	"github.com/poiesic/wikistream/core"
	"github.com/stretchr/testify/assert"
)

func TestParseSections(t *testing.T) {
	body := "Lead paragraph.\n\n== History ==\nOld times.\n=== Early ===\nEarlier.\n==Modern==\nNow."

	got := ParseSections(body)
	want := []core.Section{
		{Name: "", Level: 0, Content: "Lead paragraph.\n"},
		{Name: "History", Level: 2, Content: "Old times."},
		{Name: "Early", Level: 3, Content: "Earlier."},
		{Name: "Modern", Level: 2, Content: "Now."},
	}
	assert.Equal(t, want, got)
}

func TestParseSections_Headings(t *testing.T) {
	tests := []struct {
		line      string
		name      string
		level     int
		isHeading bool
	}{
		{"== A ==", "A", 2, true},
		{"  ====== Deep ======  ", "Deep", 6, true},
		{"=== Unequal ==", "", 0, false},
		{"= Too shallow =", "", 0, false},
		{"======= Too deep =======", "", 0, false},
		{"====", "", 0, false},
		{"== ==", "", 0, false},
		{"text == not == heading", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, level, ok := parseHeading(tt.line)
			assert.Equal(t, tt.isHeading, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.level, level)
		})
	}
}

func TestParseSections_NoIntroduction(t *testing.T) {
	got := ParseSections("== Only ==\nBody")
	assert.Equal(t, []core.Section{{Name: "Only", Level: 2, Content: "Body"}}, got)
}

func TestParseSections_Empty(t *testing.T) {
	assert.Empty(t, ParseSections(""))
	assert.Empty(t, ParseSections("  \n\n "))
}

func TestParseSections_CRLF(t *testing.T) {
	got := ParseSections("Intro\r\n== H ==\r\nBody")
	assert.Equal(t, []core.Section{
		{Name: "", Level: 0, Content: "Intro"},
		{Name: "H", Level: 2, Content: "Body"},
	}, got)
}
