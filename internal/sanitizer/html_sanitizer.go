package sanitizer

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer filters composed email HTML before it leaves the service
type HTMLSanitizer interface {
	// Sanitize applies the allow-list policy to an HTML document
	Sanitize(html string) string
}

// EmailHTMLSanitizer implements HTMLSanitizer using bluemonday
type EmailHTMLSanitizer struct {
	policy *bluemonday.Policy
}

var (
	scriptRegex   = regexp.MustCompile(`(?i)<script[^>]*>[\s\S]*?</script>`)
	noscriptRegex = regexp.MustCompile(`(?i)<noscript[^>]*>[\s\S]*?</noscript>`)
	imgSrcRegex   = regexp.MustCompile(`(?i)(<img[^>]*\ssrc\s*=\s*)("[^"]*"|'[^']*')`)
)

// NewHTMLSanitizer creates a sanitizer whose policy keeps the table layout
// and inline styles that mail clients need and drops everything active.
func NewHTMLSanitizer() *EmailHTMLSanitizer {
	policy := bluemonday.UGCPolicy()

	policy.AllowElements("html", "head", "body", "title", "meta")
	policy.AllowElements(
		"p", "br", "hr", "div", "span",
		"h1", "h2", "h3", "h4",
		"strong", "b", "em", "i", "u",
		"blockquote", "pre", "code",
		"ul", "ol", "li",
		"table", "thead", "tbody", "tr", "th", "td",
		"a", "img", "center",
	)

	policy.AllowAttrs("href").OnElements("a")
	policy.AllowURLSchemes("https", "http", "mailto", "tel")
	policy.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	policy.AllowAttrs("style", "class").Globally()
	policy.AllowAttrs("align", "valign", "bgcolor", "width").Globally()
	policy.AllowAttrs("colspan", "rowspan", "border", "cellpadding", "cellspacing", "role").OnElements("table", "td", "th")
	policy.AllowAttrs("charset", "name", "content").OnElements("meta")
	policy.RequireNoFollowOnLinks(false)

	return &EmailHTMLSanitizer{
		policy: policy,
	}
}

// Sanitize strips scripts, event handlers and remote images
func (s *EmailHTMLSanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}

	result := scriptRegex.ReplaceAllString(html, "")
	result = noscriptRegex.ReplaceAllString(result, "")
	result = BlockExternalImages(result)

	return s.policy.Sanitize(result)
}

// BlockExternalImages drops the src of any image that would be fetched from
// a remote host when the mail is opened.
func BlockExternalImages(html string) string {
	return imgSrcRegex.ReplaceAllStringFunc(html, func(match string) string {
		sub := imgSrcRegex.FindStringSubmatch(match)
		if len(sub) < 3 {
			return match
		}
		src := strings.Trim(sub[2], `"'`)
		if isExternalURL(src) {
			return sub[1] + `""`
		}
		return match
	})
}

func isExternalURL(url string) bool {
	url = strings.TrimSpace(strings.ToLower(url))
	return strings.HasPrefix(url, "//") ||
		strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "ftp://")
}
