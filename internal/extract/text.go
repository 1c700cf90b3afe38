// Package extract turns submitted page HTML into the plain body text that is
// stored with an activity entry.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// ErrEmpty is returned when there is no HTML or nothing readable in it.
var ErrEmpty = errors.New("no readable content")

// Text extracts the main readable text of an HTML page. pageURL is used to
// resolve relative links and may be empty or unparsable. Runs of whitespace
// in the result are collapsed to single spaces.
func Text(html, pageURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", ErrEmpty
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.IsAbs() {
		base = u
	}

	article, err := readability.FromReader(strings.NewReader(html), base)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}
