// Package apperr defines the error taxonomy shared by the document pipeline.
// Callers wrap these sentinels with context and classify them with errors.Is.
package apperr

import "errors"

var (
	// ErrUnsupportedFormat indicates a file type outside pdf, txt, docx, xls, xlsx.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtractionFailed indicates the parser failed or produced no text.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrSummarizationFailed indicates a remote summarization call failed.
	ErrSummarizationFailed = errors.New("summarization failed")

	// ErrRemoteCallFailed indicates a remote completion call failed or returned nothing usable.
	ErrRemoteCallFailed = errors.New("remote call failed")

	// ErrInvalidInput indicates empty or otherwise unusable input text.
	ErrInvalidInput = errors.New("invalid input")
)

// Kind returns the short name of the taxonomy entry err belongs to,
// or "Internal" when it matches none of them.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "UnsupportedFormat"
	case errors.Is(err, ErrExtractionFailed):
		return "ExtractionFailed"
	case errors.Is(err, ErrSummarizationFailed):
		return "SummarizationFailed"
	case errors.Is(err, ErrRemoteCallFailed):
		return "RemoteCallFailed"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	default:
		return "Internal"
	}
}

// UserMessage returns the text to show a caller for err. Errors outside the
// taxonomy are reported generically so internal details stay in the logs.
func UserMessage(err error) string {
	switch Kind(err) {
	case "":
		return ""
	case "Internal":
		return "internal error"
	default:
		return err.Error()
	}
}
