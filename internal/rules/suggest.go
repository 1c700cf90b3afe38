package rules

import (
	"net/url"
	"strings"
)

// SuggestPattern proposes a rule pattern for rawURL: the whole host for a
// root URL, otherwise the host plus the first path segment. Input that does
// not parse as an absolute URL is returned unchanged.
func SuggestPattern(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}

	host := u.Hostname()
	if u.Path == "" || u.Path == "/" {
		return "https://" + host + "/*"
	}

	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			return "https://" + host + "/" + seg + "/*"
		}
	}
	return "https://" + host + "/*"
}
