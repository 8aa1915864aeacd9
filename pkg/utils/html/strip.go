// ABOUTME: HTML utilities for stripping markup from upstream description fields
// ABOUTME: Uses goquery to parse fragments so scripts and styles never leak into text

package html

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
// Plain text passes through with only whitespace normalisation.
func StripHTML(s string) string {
	if !ContainsMarkup(s) && !strings.Contains(s, "&") {
		return collapseWhitespace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(s)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find("br, p, div, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AfterHtml(" ")
	})

	return collapseWhitespace(doc.Text())
}

// ContainsMarkup reports whether s looks like an HTML fragment
func ContainsMarkup(s string) bool {
	i := strings.IndexByte(s, '<')
	return i >= 0 && strings.IndexByte(s[i:], '>') > 0
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
