package wikitext

import (
	"regexp"
	"strings"
)

// linkSegment matches link text made of plain characters and innermost templates.
const linkSegment = `(?:[^\[\]|{}]|\{\{[^{}]*\}\})*`

var (
	// [[target|display]]. Pipes split segments only outside {{...}}, and the
	// last segment is displayed, so [[File:x|thumb|caption]] shows the caption
	// and [[x|{{lang|fr|y}}]] keeps the template whole for StripTemplates.
	pipedLinkPattern = regexp.MustCompile(
		`\[\[[^\[\]|]*\|(?:` + linkSegment + `\|)*(` + linkSegment + `)\]\]`)

	// [[target]]
	bareLinkPattern = regexp.MustCompile(`\[\[([^\[\]|]*)\]\]`)

	// Innermost template only; nesting is peeled by repetition.
	templatePattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)

	selfClosingRefPattern = regexp.MustCompile(`<ref[^>]*/>`)
	refPattern            = regexp.MustCompile(`(?s)<ref(?:\s[^>]*)?>.*?</ref>`)

	emphasisPattern = regexp.MustCompile(`'{2,}`)
)

// ReplaceLinks replaces internal links with their display text.
func ReplaceLinks(s string) string {
	s = pipedLinkPattern.ReplaceAllString(s, "$1")
	return bareLinkPattern.ReplaceAllString(s, "$1")
}

// StripTemplates removes {{...}} blocks, innermost first, until none remain.
// Unbalanced braces are left in place.
func StripTemplates(s string) string {
	for {
		next := templatePattern.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

// StripRefs removes citation elements. Self-closing refs go first so that
// <ref name="x"/> is never taken as the opening tag of a later </ref>.
func StripRefs(s string) string {
	s = selfClosingRefPattern.ReplaceAllString(s, "")
	return refPattern.ReplaceAllString(s, "")
}

// StripEmphasis removes bold and italic markers.
func StripEmphasis(s string) string {
	return emphasisPattern.ReplaceAllString(s, "")
}

// CleanText runs the markup cleanup pipeline until its output stops changing,
// so CleanText(CleanText(s)) == CleanText(s).
// Every step only removes text, so the loop terminates.
func CleanText(s string) string {
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = ReplaceLinks(s)
	s = StripTemplates(s)
	s = StripRefs(s)
	s = StripEmphasis(s)
	return strings.TrimSpace(s)
}
