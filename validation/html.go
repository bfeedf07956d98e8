package validation

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlPolicyOnce sync.Once
	htmlPolicy     *bluemonday.Policy
	textPolicy     = bluemonday.StrictPolicy()
)

// HTMLPolicy returns the shared allowlist for rich-text fields: basic
// formatting, headings, lists and containers, with class and style attributes.
func HTMLPolicy() *bluemonday.Policy {
	htmlPolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowElements(
			"p", "br", "strong", "em", "u",
			"h1", "h2", "h3", "h4", "h5", "h6",
			"ul", "ol", "li", "span", "div", "b", "i",
		)
		policy.AllowAttrs("class", "style").Globally()
		htmlPolicy = policy
	})
	return htmlPolicy
}

// SanitizeHTML strips markup outside the allowlist.
func SanitizeHTML(content string) string {
	if content == "" {
		return ""
	}
	return HTMLPolicy().Sanitize(content)
}

// VisibleText returns the trimmed text a reader would see once content has
// been sanitised: allowed tags removed and entities decoded.
func VisibleText(content string) string {
	if content == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(content)))
}
