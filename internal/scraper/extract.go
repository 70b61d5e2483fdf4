package scraper

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxTextLen caps the extracted text per page. The synthesizer's context
// window is assembled from many pages; 3000 characters per source keeps any
// single page from crowding out the rest.
const MaxTextLen = 3000

// ExtractText parses HTML markup and returns the visible text of the document
// body with whitespace runs collapsed to single spaces, trimmed, and truncated
// to MaxTextLen characters. Script and style contents are stripped. Unparseable
// or empty markup yields an empty string.
func ExtractText(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	sel := doc.Find("body")
	sel.Find("script, style, noscript").Remove()

	return normalizeWhitespace(sel.Text())
}

// normalizeWhitespace collapses newlines, tabs, and runs of spaces into single
// spaces and trims the result, truncating to MaxTextLen.
func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' || r == '\v' || r == '\f' {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}

	out := b.String()
	if len(out) > MaxTextLen {
		cut := MaxTextLen
		// Back up to a rune boundary so we never emit a torn character.
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimSpace(out[:cut])
	}
	return out
}
