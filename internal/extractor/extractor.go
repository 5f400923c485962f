// Package extractor turns uploaded document bytes into a single plain-text string.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"docinsight/internal/apperr"
)

// FileType is a supported upload format, named by its lower-case extension.
type FileType string

const (
	PDF  FileType = "pdf"
	TXT  FileType = "txt"
	DOCX FileType = "docx"
	XLS  FileType = "xls"
	XLSX FileType = "xlsx"
)

// SupportedTypes lists the accepted formats in display order.
var SupportedTypes = []FileType{PDF, TXT, DOCX, XLS, XLSX}

// ParseFileType validates a declared file type such as "pdf" or ".DOCX".
func ParseFileType(s string) (FileType, error) {
	t := FileType(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	for _, st := range SupportedTypes {
		if t == st {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: pdf, txt, docx, xls, xlsx)", apperr.ErrUnsupportedFormat, string(t))
}

// FileTypeFromName derives the file type from a file name's extension.
func FileTypeFromName(name string) (FileType, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", apperr.ErrUnsupportedFormat, name)
	}
	return ParseFileType(ext)
}

// Extract dispatches to the format-specific parser and guarantees a
// non-blank result. Parser errors are wrapped in ErrExtractionFailed.
func Extract(data []byte, ft FileType) (string, error) {
	var (
		text string
		err  error
	)
	switch ft {
	case PDF:
		text, err = extractPDF(data)
	case DOCX:
		text, err = extractDOCX(data)
	case TXT:
		text, err = extractTXT(data)
	case XLSX:
		text, err = extractXLSX(data)
	case XLS:
		text, err = extractXLS(data)
	default:
		return "", fmt.Errorf("%w: %q", apperr.ErrUnsupportedFormat, string(ft))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", apperr.ErrExtractionFailed, ft, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text found in %s document", apperr.ErrExtractionFailed, ft)
	}
	return text, nil
}
