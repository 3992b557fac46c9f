package geo

import "time"

// AreaRecord is one row of the identified-areas table.
type AreaRecord struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Context string `json:"context"`
}

// AnalysisResult is the structured classification of one piece of text.
type AnalysisResult struct {
	Scope       string       `json:"scope"`
	Areas       []AreaRecord `json:"areas"`
	Summary     string       `json:"summary"`
	Confidence  string       `json:"confidence"`
	Notes       string       `json:"notes"`
	RawMarkdown string       `json:"rawMarkdown,omitempty"`
}

// AnalysisID identifier type
type AnalysisID string

// Source enum
type Source string

const (
	SourceText Source = "text"
	SourceFile Source = "file"
)

// Analysis is a stored classification, kept for auditing and retrieval.
type Analysis struct {
	ID           AnalysisID     `json:"id"`
	ClientID     string         `json:"client_id"`
	Source       Source         `json:"source"`
	Filename     string         `json:"filename,omitempty"`
	DocumentURL  string         `json:"document_url,omitempty"`
	InputExcerpt string         `json:"input_excerpt"`
	Provider     string         `json:"provider"`
	Result       AnalysisResult `json:"result"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Page represents a paginated list of analyses
type Page struct {
	Data       []*Analysis `json:"data"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	Total      int64       `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
}
