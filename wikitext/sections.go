package wikitext

import (
	"regexp"
	"strings"

	"github.com/poiesic/wikistream/core"
)

// RE2 has no backreferences, so equal marker counts are checked after matching.
var headingPattern = regexp.MustCompile(`^(={2,6})([^=]+)(={2,6})$`)

// parseHeading reports whether line is a heading and returns its name and level.
func parseHeading(line string) (string, int, bool) {
	m := headingPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil || len(m[1]) != len(m[3]) {
		return "", 0, false
	}
	name := strings.TrimSpace(m[2])
	if name == "" {
		return "", 0, false
	}
	return name, len(m[1]), true
}

// ParseSections splits an article body on heading lines. Text before the
// first heading becomes the introduction (empty name, level 0), which is
// omitted when blank. Headed sections are kept even when empty.
func ParseSections(body string) []core.Section {
	body = strings.ReplaceAll(body, "\r\n", "\n")

	var (
		sections []core.Section
		current  = core.Section{}
		lines    []string
		started  bool
	)
	flush := func() {
		current.Content = strings.Join(lines, "\n")
		if started || strings.TrimSpace(current.Content) != "" {
			sections = append(sections, current)
		}
	}

	for line := range strings.SplitSeq(body, "\n") {
		if name, level, ok := parseHeading(line); ok {
			flush()
			current = core.Section{Name: name, Level: level}
			lines = lines[:0]
			started = true
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return sections
}
