// Package content normalizes submitted article text before review.
package content

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// IsLikelyHTML reports whether value contains markup
func IsLikelyHTML(value string) bool {
	return tagPattern.MatchString(value)
}

// StripHTML converts rich-text submissions to plain text: tags become spaces,
// entities are decoded and runs of whitespace collapse to one space.
// Values without markup are returned unchanged.
func StripHTML(value string) string {
	if !IsLikelyHTML(value) {
		return value
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return collapse(tagPattern.ReplaceAllString(value, " "))
	}

	doc.Find("script, style").Remove()

	var parts []string
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, textOf(s)...)
	})

	return collapse(strings.Join(parts, " "))
}

// textOf walks a node and returns its text runs so adjacent elements stay word-separated
func textOf(s *goquery.Selection) []string {
	if goquery.NodeName(s) == "#text" {
		return []string{s.Text()}
	}

	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		parts = append(parts, textOf(c)...)
	})
	return parts
}

func collapse(value string) string {
	value = strings.ReplaceAll(value, "\u00a0", " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))
}
