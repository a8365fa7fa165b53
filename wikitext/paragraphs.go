package wikitext

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/wikistream/core"
)

// Two or more newlines; lines holding only spaces or tabs count as blank.
var paragraphBreak = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

// ExtractParagraphs splits section content on blank lines, cleans each
// paragraph and keeps those with at least minLength runes after cleanup.
// Survivors are numbered 0..n-1 in their original order.
func ExtractParagraphs(articleID, title, sectionName, content string, minLength int) []core.TextUnit {
	var units []core.TextUnit
	for _, raw := range paragraphBreak.Split(content, -1) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		text := CleanText(raw)
		if text == "" || utf8.RuneCountInString(text) < minLength {
			continue
		}
		units = append(units, core.TextUnit{
			ArticleID:    articleID,
			ArticleTitle: title,
			SectionName:  sectionName,
			Position:     len(units),
			Content:      text,
		})
	}
	return units
}

// Units extracts every paragraph of a page. When a section name repeats
// within the article, numbering continues from the earlier section so that
// positions stay strictly increasing per (article, section).
func Units(page core.Page, minLength int) []core.TextUnit {
	var (
		units []core.TextUnit
		next  = map[string]int{}
	)
	for _, section := range ParseSections(page.RawText) {
		offset := next[section.Name]
		paragraphs := ExtractParagraphs(page.ID, page.Title, section.Name, section.Content, minLength)
		for _, u := range paragraphs {
			u.Position += offset
			units = append(units, u)
		}
		next[section.Name] = offset + len(paragraphs)
	}
	return units
}
