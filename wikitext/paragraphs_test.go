package wikitext

import (
	"testing"

	"github.com/poiesic/wikistream/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractParagraphs(t *testing.T) {
	content := "First paragraph here.\n\nSecond one.\n  \t\n\n'''Third''' [[para|graph]].\n\n{{only a template}}\n\nok"

	units := ExtractParagraphs("12", "Anarchism", "History", content, 5)
	require.Len(t, units, 3)

	wantContent := []string{"First paragraph here.", "Second one.", "Third graph."}
	for i, u := range units {
		assert.Equal(t, i, u.Position)
		assert.Equal(t, "12", u.ArticleID)
		assert.Equal(t, "Anarchism", u.ArticleTitle)
		assert.Equal(t, "History", u.SectionName)
		assert.Equal(t, wantContent[i], u.Content)
	}
}

func TestExtractParagraphs_RoundTrip(t *testing.T) {
	type para struct{ section, text string }
	want := []para{
		{"", "Alpha intro paragraph."},
		{"", "Beta intro paragraph."},
		{"History", "Gamma history paragraph."},
		{"History", "Delta history paragraph."},
		{"Early years", "Epsilon early paragraph."},
		{"Legacy", "Zeta legacy paragraph."},
	}

	body := "Alpha intro paragraph.\n\nBeta intro paragraph.\n" +
		"== History ==\nGamma history paragraph.\n\nDelta history paragraph.\n\nTiny.\n" +
		"=== Early years ===\nEpsilon early paragraph.\n" +
		"== Legacy ==\n\nZeta legacy paragraph.\n"

	var got []core.TextUnit
	for _, section := range ParseSections(body) {
		got = append(got, ExtractParagraphs("1", "T", section.Name, section.Content, 10)...)
	}

	require.Len(t, got, len(want))
	positions := map[string]int{}
	for i, u := range got {
		assert.Equal(t, want[i].section, u.SectionName)
		assert.Equal(t, want[i].text, u.Content)
		assert.Equal(t, positions[u.SectionName], u.Position)
		positions[u.SectionName]++
	}
}

func TestExtractParagraphs_MinLengthCountsRunes(t *testing.T) {
	units := ExtractParagraphs("1", "T", "", "héllo\n\nhi", 5)
	require.Len(t, units, 1)
	assert.Equal(t, "héllo", units[0].Content)
}

func TestExtractParagraphs_SingleNewlineKeepsParagraph(t *testing.T) {
	units := ExtractParagraphs("1", "T", "", "line one\nline two", 1)
	require.Len(t, units, 1)
	assert.Equal(t, "line one\nline two", units[0].Content)
}

func TestUnits(t *testing.T) {
	page := core.Page{
		ID:    "42",
		Title: "Answer",
		RawText: "Intro text long enough.\n\n== Notes ==\nNote one here.\n\n== See also ==\nLinks.\n" +
			"== Notes ==\nNote two here.",
	}

	units := Units(page, 3)
	require.Len(t, units, 4)

	assert.Equal(t, "", units[0].SectionName)
	assert.Equal(t, 0, units[0].Position)

	assert.Equal(t, "Notes", units[1].SectionName)
	assert.Equal(t, 0, units[1].Position)

	assert.Equal(t, "See also", units[2].SectionName)
	assert.Equal(t, 0, units[2].Position)

	assert.Equal(t, "Notes", units[3].SectionName)
	assert.Equal(t, 1, units[3].Position, "repeated section continues numbering")

	for _, u := range units {
		assert.NoError(t, core.ValidateTextUnit(u))
	}
}
