package inference

import (
	"regexp"
	"strings"
)

// Tokens that introduce a product name, and which on their own carry no
// information (the scorer treats them as placeholders).
var productTokens = map[string]bool{
	"plan": true, "subscription": true, "membership": true,
	"premium": true, "pro": true, "plus": true,
	"monthly": true, "annual": true,
}

var productPattern = regexp.MustCompile(
	`(?:plan|subscription|membership|premium|pro|plus|monthly|annual)[:\s\-]+([a-z0-9][a-z0-9 \-]*)`)

// ExtractProduct makes a best-effort pass for a product name: a known token
// followed by a run of alphanumerics, truncated at the first newline. Absence
// is common and acceptable.
func ExtractProduct(text string) string {
	match := productPattern.FindStringSubmatch(strings.ToLower(text))
	if match == nil {
		return ""
	}
	product := match[1]
	if i := strings.IndexByte(product, '\n'); i >= 0 {
		product = product[:i]
	}
	return strings.TrimSpace(product)
}

// placeholderProduct reports whether a product name is just one of the
// introducing tokens, which adds no real information.
func placeholderProduct(product string) bool {
	return productTokens[strings.ToLower(strings.TrimSpace(product))]
}
