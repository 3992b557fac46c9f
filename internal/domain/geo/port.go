package geo

import "context"

// Inference port: sends the article text and returns the markdown answer.
type Inference interface {
	Answer(ctx context.Context, text string) (string, error)
}

// Repository port for persisting and querying analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, clientID string, id AnalysisID) (*Analysis, error)
	Paginate(ctx context.Context, clientID string, page, pageSize int) (Page, error)
}

// DocumentStore port for archiving uploaded source documents
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(filename, contentType string, data []byte) (string, error)
}
