package interfaces

// TransformService normalizes filing documents for text scanning
type TransformService interface {
	// HTMLToMarkdown converts HTML content to markdown
	HTMLToMarkdown(html string) (string, error)

	// ExtractText reduces a filing body (HTML or plain text) to
	// plain searchable text
	ExtractText(content string) string
}
