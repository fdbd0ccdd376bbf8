// Package extract pulls plain text out of Notion file attachments.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for attachment types with no text to extract.
var ErrUnsupported = errors.New("unsupported attachment type")

// Extractor turns PDF, office, and text attachments into plain text.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text of an attachment, choosing the format from name's extension.
func (e *Extractor) Extract(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".xlsx", ".xlsm":
		text, err = extractExcel(data)
	case ".docx":
		text, err = extractOffice(data, docxFormat)
	case ".pptx":
		text, err = extractOffice(data, pptxFormat)
	case ".odt", ".ods", ".odp":
		text, err = extractOffice(data, odfFormat)
	case ".txt", ".md", ".markdown", ".csv", ".tsv", ".json":
		text = extractPlain(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", name, err)
	}
	return strings.TrimSpace(text), nil
}

// Supported reports whether name has an extension Extract can read.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".xlsx", ".xlsm", ".docx", ".pptx", ".odt", ".ods", ".odp", ".txt", ".md", ".markdown", ".csv", ".tsv", ".json":
		return true
	}
	return false
}
