package geo

import "errors"

var (
	// ErrTransport indicates the inference endpoint could not be reached or answered with a non-2xx status.
	ErrTransport = errors.New("inference transport error")
	// ErrEmptyResponse indicates no answer frames were decoded from the response.
	ErrEmptyResponse = errors.New("empty inference response")
	// ErrUnsupportedFileType indicates a document format that is rejected on purpose.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileRead indicates the uploaded document could not be read.
	ErrFileRead = errors.New("file read error")
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
	// ErrInvalidInput indicates a request without usable text.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a missing analysis record.
	ErrNotFound = errors.New("analysis not found")
)

const (
	MsgAnalyzeFailed = "Failed to analyze text"
	MsgReadFailed    = "Failed to read file"
	MsgEmptyText     = "Please enter text to analyze"
	// MsgEmptyResponse is the details text shown when no answer frames arrived.
	MsgEmptyResponse = "No valid response content received from API"
)

// AnalysisError is the single failure shape surfaced to callers.
type AnalysisError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *AnalysisError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// NewAnalysisError wraps err, keeping its text as details.
func NewAnalysisError(message string, err error) *AnalysisError {
	ae := &AnalysisError{Message: message, Err: err}
	if err != nil {
		ae.Details = err.Error()
	}
	return ae
}
