// Package extract turns uploaded course material into plain text for indexing.
package extract

import (
	"bytes"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Supported media types
const (
	MediaTypePDF      = "application/pdf"
	MediaTypeText     = "text/plain"
	MediaTypeMarkdown = "text/markdown"
)

// Text extracts plain text from content of the given media type.
// Parameters such as charset are ignored; text is read as UTF-8.
func Text(content []byte, mediaType string) (string, error) {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return "", fmt.Errorf("%w: media type %q: %v", domain.ErrInvalidInput, mediaType, err)
	}

	switch strings.ToLower(mt) {
	case MediaTypePDF:
		return PDF(content)
	case MediaTypeText, MediaTypeMarkdown:
		return plain(content), nil
	default:
		return "", fmt.Errorf("%w: unsupported media type %s", domain.ErrInvalidInput, mt)
	}
}

// PDF extracts the text of every page, joining pages with a newline.
// Pages without content are skipped.
func PDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: open PDF: %v", domain.ErrInvalidInput, err)
	}

	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: extract page %d: %v", domain.ErrInvalidInput, i, err)
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
	}
	return plain(buf.Bytes()), nil
}

// plain replaces invalid UTF-8 sequences with the replacement character
func plain(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}
