package catalog

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
)

// EmbedHosts are the hosts (and their subdomains) simulators may be embedded from.
var EmbedHosts = []string{"itch.io", "sketchfab.com", "youtube.com", "vimeo.com", "codepen.io", "jsfiddle.net"}

var (
	errURLRequired       = errors.New("an https URL is required for LINK attachments")
	errEmbedRequired     = errors.New("a URL or HTML is required for EMBED attachments")
	errEmbedURLForbidden = errors.New("URL not allowed for embed")
	errEmbedHTMLEmpty    = errors.New("HTML must contain an iframe from an allowed host")
	errFilePathRequired  = errors.New("a file path is required for FILE attachments")

	embedSrcRegex = regexp.MustCompile(
		`^https://([a-z0-9-]+\.)*(` + strings.ReplaceAll(strings.Join(EmbedHosts, "|"), ".", `\.`) + `)(/|$)`,
	)
	embedPolicy = newEmbedPolicy()
)

func newEmbedPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("iframe")
	p.AllowURLSchemes("https")
	p.RequireParseableURLs(true)
	p.AllowAttrs("src").Matching(embedSrcRegex).OnElements("iframe")
	p.AllowAttrs("width", "height", "frameborder", "allowfullscreen", "sandbox", "referrerpolicy", "allow").OnElements("iframe")
	return p
}

// IsAllowedEmbedURL reports whether raw is an https URL on one of EmbedHosts.
func IsAllowedEmbedURL(raw string) bool {
	if !core.IsHTTPSURL(raw) {
		return false
	}
	u, _ := url.Parse(raw)
	host := strings.ToLower(u.Hostname())
	for _, h := range EmbedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// SanitizeEmbedHTML keeps only iframes whose src is on an allowed host.
func SanitizeEmbedHTML(html string) (string, error) {
	clean := strings.TrimSpace(embedPolicy.Sanitize(html))
	if !strings.Contains(clean, "<iframe") || !strings.Contains(clean, "src=") {
		return "", errEmbedHTMLEmpty
	}
	return clean, nil
}

// applyAttachment validates ua against its type and sets the attachment fields of d.
func applyAttachment(d *Discipline, ua UpdateAttachment) error {
	switch ua.AttachmentType {
	case AttachmentLink:
		if !core.IsHTTPSURL(ua.AttachmentURL) {
			return core.NewFieldError("attachmentUrl", errURLRequired)
		}
	case AttachmentEmbed:
		if ua.AttachmentURL == "" && ua.AttachmentEmbedHTML == "" {
			return core.NewValidationError(errEmbedRequired)
		}
		if ua.AttachmentURL != "" && !IsAllowedEmbedURL(ua.AttachmentURL) {
			return core.NewFieldError("attachmentUrl", errEmbedURLForbidden)
		}
		if ua.AttachmentEmbedHTML != "" {
			html, err := SanitizeEmbedHTML(ua.AttachmentEmbedHTML)
			if err != nil {
				return core.NewFieldError("attachmentEmbedHtml", err)
			}
			ua.AttachmentEmbedHTML = html
		}
	case AttachmentFile:
		if ua.AttachmentFilePath == "" {
			return core.NewFieldError("attachmentFilePath", errFilePathRequired)
		}
	case AttachmentNone:
		ua = UpdateAttachment{AttachmentType: AttachmentNone}
	default:
		return core.NewFieldError("attachmentType", errors.Errorf("invalid attachment type %q", ua.AttachmentType))
	}

	d.AttachmentType = ua.AttachmentType
	d.AttachmentURL = nullableString(ua.AttachmentURL)
	d.AttachmentFilePath = nullableString(ua.AttachmentFilePath)
	d.AttachmentEmbedHTML = nullableString(ua.AttachmentEmbedHTML)
	return nil
}
