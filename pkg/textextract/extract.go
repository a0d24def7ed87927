// Package textextract pulls plain text out of uploaded documents.
// PDF and plain-text files are supported; anything else is rejected.
package textextract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

type ExtractedText struct {
	Text     string
	Pages    int
	Metadata map[string]string
}

// ErrUnsupportedType is wrapped into the error returned for file types the
// extractor does not handle.
var ErrUnsupportedType = fmt.Errorf("unsupported file type")

// FileExtractor adapts the package functions to the extractor interface the
// worker consumes.
type FileExtractor struct{}

func (FileExtractor) ExtractFile(path, mimeType string) (*ExtractedText, error) {
	return ExtractFile(path, mimeType)
}

// ExtractFile reads the file at path and extracts its text. The MIME type is
// optional; when empty the file extension decides the format.
func ExtractFile(path, mimeType string) (*ExtractedText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	switch resolveType(path, mimeType) {
	case "pdf":
		return extractPDF(f, info.Size())
	case "txt":
		return extractTXT(f, info.Size())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, describeType(path, mimeType))
	}
}

// Extract handles in-memory data; used by the file-based entry point and by
// callers that already hold the bytes.
func Extract(data io.ReaderAt, size int64, fileType string) (*ExtractedText, error) {
	switch strings.ToLower(fileType) {
	case ".pdf", "pdf", "application/pdf":
		return extractPDF(data, size)
	case ".txt", "txt", ".md", "md", "text/plain", "text/markdown":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
}

func SupportedTypes() []string {
	return []string{".pdf", ".txt", ".md"}
}

func resolveType(path, mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "application/pdf":
		return "pdf"
	case "text/plain", "text/markdown":
		return "txt"
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "pdf"
	case ".txt", ".md":
		return "txt"
	}
	return ""
}

func describeType(path, mimeType string) string {
	if mimeType != "" {
		return mimeType
	}
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}
	return "unknown"
}

func extractPDF(data io.ReaderAt, size int64) (*ExtractedText, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return &ExtractedText{
		Text:  buf.String(),
		Pages: numPages,
		Metadata: map[string]string{
			"type": "pdf",
		},
	}, nil
}

func extractTXT(data io.ReaderAt, size int64) (*ExtractedText, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read text file: %w", err)
	}

	return &ExtractedText{
		Text:  string(bytes.TrimSpace(buf)),
		Pages: 1,
		Metadata: map[string]string{
			"type": "txt",
		},
	}, nil
}
