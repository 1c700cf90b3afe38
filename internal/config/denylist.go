package config

import (
	"net/url"
	"strings"
)

// DefaultDenylistDomains returns hosts whose pages are never recorded:
// banking, password managers, identity providers and health portals.
// A listed domain also covers its subdomains.
func DefaultDenylistDomains() []string {
	return []string{
		// Banking & payments
		"paypal.com",
		"wise.com",
		"mufg.jp",
		"smbc.co.jp",
		"rakuten-bank.co.jp",

		// Password managers
		"1password.com",
		"bitwarden.com",
		"lastpass.com",

		// Identity
		"accounts.google.com",
		"login.microsoftonline.com",
		"okta.com",

		// Health
		"mychart.com",
	}
}

// Denylist matches URLs against a set of host suffixes.
type Denylist struct {
	domains []string
}

// NewDenylist normalizes domains to lower case and drops empty entries.
func NewDenylist(domains []string) *Denylist {
	d := &Denylist{}
	for _, dom := range domains {
		dom = strings.ToLower(strings.Trim(strings.TrimSpace(dom), "."))
		if dom != "" {
			d.domains = append(d.domains, dom)
		}
	}
	return d
}

// Blocks reports whether rawURL's host is a listed domain or a subdomain of
// one. Unparsable URLs are never blocked.
func (d *Denylist) Blocks(rawURL string) bool {
	if d == nil || len(d.domains) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, dom := range d.domains {
		if host == dom || strings.HasSuffix(host, "."+dom) {
			return true
		}
	}
	return false
}
