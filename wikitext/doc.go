// Package wikitext turns raw article markup into cleaned, numbered paragraphs.
//
// Everything here is a pure string transformation: ParseSections splits an
// article body on its headings, ExtractParagraphs splits a section on blank
// lines and cleans each paragraph with CleanText, and Units does both for a
// whole page.
package wikitext
