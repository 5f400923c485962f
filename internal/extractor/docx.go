package extractor

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDOCX joins the non-blank paragraphs of a DOCX body with newlines,
// in document order.
func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}
	defer r.Close()

	paragraphs := splitDOCXParagraphs(r.Editable().GetContent())
	return strings.Join(paragraphs, "\n"), nil
}

// splitDOCXParagraphs splits document.xml on <w:p> paragraph tags and
// strips the markup, returning the trimmed non-empty paragraph texts.
func splitDOCXParagraphs(xmlStr string) []string {
	var paragraphs []string
	for _, part := range splitParagraphTags(xmlStr) {
		cleaned := strings.TrimSpace(html.UnescapeString(stripTags(part)))
		if cleaned != "" {
			paragraphs = append(paragraphs, cleaned)
		}
	}
	return paragraphs
}

// splitParagraphTags cuts before every "<w:p>" or "<w:p " so that
// look-alike tags such as <w:pPr> or <w:proofErr> stay inside their paragraph.
func splitParagraphTags(xmlStr string) []string {
	var parts []string
	start := 0
	for i := 0; i+4 < len(xmlStr); i++ {
		if !strings.HasPrefix(xmlStr[i:], "<w:p") {
			continue
		}
		if c := xmlStr[i+4]; c != '>' && c != ' ' && c != '/' {
			continue
		}
		parts = append(parts, xmlStr[start:i])
		start = i
	}
	return append(parts, xmlStr[start:])
}

func stripTags(xmlStr string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range xmlStr {
		if r == '<' {
			inTag = true
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
