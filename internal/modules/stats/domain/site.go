package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// brandHosts are second-level labels that host many products, so the label
// before them names the product (mail.google.com -> Mail).
var brandHosts = map[string]struct{}{
	"google":    {},
	"amazon":    {},
	"microsoft": {},
	"vercel":    {},
	"github":    {},
}

// SiteKey replaces dots so a domain can be used as a single path segment.
func SiteKey(domain string) string {
	return strings.ReplaceAll(domain, ".", "_")
}

// DomainFromSiteKey reverses SiteKey. Domains that already contain "_" do not
// round trip.
func DomainFromSiteKey(key string) string {
	return strings.ReplaceAll(key, "_", ".")
}

func BrandName(domain string) string {
	if strings.Contains(domain, "localhost") {
		return "Localhost"
	}
	parts := strings.Split(domain, ".")
	brand := parts[0]
	if len(parts) >= 3 {
		brand = parts[len(parts)-2]
		if _, ok := brandHosts[brand]; ok {
			brand = parts[len(parts)-3]
		}
	}
	if brand == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(brand)
	return string(unicode.ToUpper(r)) + brand[size:]
}
