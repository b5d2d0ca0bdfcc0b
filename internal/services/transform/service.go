package transform

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"
)

// Service normalizes filing documents for text scanning. EDGAR serves a
// mix of HTML exhibits and SGML-wrapped full submissions; both reduce to
// plain text here before the keyword scan sees them.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new transform service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style.*?>.*?</style>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)

	// residual markdown syntax after conversion
	mdEscapeRe = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+.!|~>-])`)
	mdLinkRe   = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdMarkRe   = regexp.MustCompile("[*_`#|]+")
)

// HTMLToMarkdown converts HTML content to markdown.
// Returns the stripped-tag text instead of an error when conversion
// fails or produces nothing, so callers always get scannable output.
func (s *Service) HTMLToMarkdown(html string) (string, error) {
	if html == "" {
		return "", nil
	}

	mdConverter := md.NewConverter("", true, nil)
	converted, err := mdConverter.ConvertString(html)
	if err != nil {
		s.logger.Warn().Err(err).Msg("HTML to markdown conversion failed, using fallback")
		stripped := stripHTMLTags(html)
		return stripped, nil
	}

	trimmedMarkdown := strings.TrimSpace(converted)
	if trimmedMarkdown == "" && html != "" {
		s.logger.Warn().
			Int("html_length", len(html)).
			Msg("HTML to markdown conversion produced empty output, applying fallback")
		stripped := stripHTMLTags(html)
		return stripped, nil
	}

	return converted, nil
}

// ExtractText reduces a filing body to plain searchable text. HTML goes
// through markdown conversion first so structure survives better than a
// bare tag strip, then the markdown syntax itself is flattened out;
// phrase adjacency is preserved either way so multi-word keywords still
// match.
func (s *Service) ExtractText(content string) string {
	if content == "" {
		return ""
	}
	if !strings.Contains(content, "<") {
		return strings.TrimSpace(spaceRe.ReplaceAllString(content, " "))
	}

	markdown, err := s.HTMLToMarkdown(content)
	if err != nil || strings.TrimSpace(markdown) == "" {
		return stripHTMLTags(content)
	}

	s.logger.Debug().
		Int("content_length", len(content)).
		Int("text_length", len(markdown)).
		Msg("Extracted filing text")

	return flattenMarkdown(markdown)
}

// flattenMarkdown strips markdown syntax down to plain text: escapes
// unwound, links reduced to their text, emphasis and table markers
// replaced with spaces, whitespace collapsed.
func flattenMarkdown(markdown string) string {
	text := mdEscapeRe.ReplaceAllString(markdown, "$1")
	text = mdLinkRe.ReplaceAllString(text, "$1")
	text = mdMarkRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// stripHTMLTags removes markup for fallback cases. Script and style
// bodies go first so their contents never leak into scanned text.
func stripHTMLTags(htmlStr string) string {
	stripped := scriptRe.ReplaceAllString(htmlStr, " ")
	stripped = styleRe.ReplaceAllString(stripped, " ")
	stripped = tagRe.ReplaceAllString(stripped, " ")

	// Decode HTML entities (basic set; &#160; is EDGAR's usual nbsp)
	stripped = strings.ReplaceAll(stripped, "&amp;", "&")
	stripped = strings.ReplaceAll(stripped, "&lt;", "<")
	stripped = strings.ReplaceAll(stripped, "&gt;", ">")
	stripped = strings.ReplaceAll(stripped, "&quot;", "\"")
	stripped = strings.ReplaceAll(stripped, "&#39;", "'")
	stripped = strings.ReplaceAll(stripped, "&nbsp;", " ")
	stripped = strings.ReplaceAll(stripped, "&#160;", " ")

	cleaned := spaceRe.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(cleaned)
}
