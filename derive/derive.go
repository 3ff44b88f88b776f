// Package derive computes the fields that follow from what an author typed:
// slugs from titles, excerpts and reading time from bodies, SEO metadata from
// listing details. Every function is total; empty input yields the zero-ish default.
package derive

import (
	"strings"
	"unicode/utf8"
)

const (
	ExcerptLength         = 160
	MetaDescriptionLength = 160
	WordsPerMinute        = 200
)

// Slugify lowercases the title and collapses every run of characters outside
// [a-z0-9] into a single hyphen. Accented letters are not folded: "Café" gives "caf".
func Slugify(title string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

var markupStripper = strings.NewReplacer(
	"#", "", "*", "", "`", "", "[", "", "]", "", "(", "", ")", "",
)

// Excerpt returns the first paragraph of content without markdown punctuation,
// cut to ExcerptLength characters.
func Excerpt(content string) string {
	plain := strings.TrimSpace(markupStripper.Replace(normalizeNewlines(content)))
	if i := strings.Index(plain, "\n\n"); i >= 0 {
		plain = plain[:i]
	}
	return truncate(plain, ExcerptLength)
}

func WordCount(content string) int {
	return len(strings.Fields(content))
}

// ReadTime is the reading time in whole minutes, never less than one.
func ReadTime(content string) int {
	words := WordCount(content)
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

func MetaTitle(title, city string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	return title + " - " + city
}

func MetaDescription(text string) string {
	return truncate(text, MetaDescriptionLength)
}

// SplitList turns comma separated free text into trimmed, non-empty, unique entries
// in first-seen order.
func SplitList(s string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
