package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/geo-classifier/internal/application"
	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
	"github.com/bryanwahyu/geo-classifier/internal/logger"
)

const excerptRunes = 280

// Recorder receives one observation per analysis attempt.
type Recorder interface {
	ObserveAnalysis(provider, outcome string, elapsed time.Duration, areas int)
}

// Service implements the geographic classification use-cases.
// Repo, Documents and Metrics are optional.
type Service struct {
	Inference geo.Inference
	Provider  string
	Extractor geo.TextExtractor
	Repo      geo.Repository
	Documents geo.DocumentStore
	Metrics   Recorder
	Clock     application.Clock
	Log       *zap.Logger
	// Timeout bounds one inference call; zero leaves it to the caller's context.
	Timeout time.Duration
}

//
// ==== USE CASES ====
//

// AnalyzeTextCommand untuk analisa teks yang diketik user
type AnalyzeTextCommand struct {
	ClientID string
	Text     string
}

// AnalyzeDocumentCommand untuk analisa file upload
type AnalyzeDocumentCommand struct {
	ClientID    string
	Filename    string
	ContentType string
	Data        []byte
}

// Analyze sends text to the inference provider and parses the answer.
// Every failure comes back as *geo.AnalysisError.
func (s *Service) Analyze(ctx context.Context, text string) (geo.AnalysisResult, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	answer, err := s.Inference.Answer(ctx, text)
	if err != nil {
		s.observe("error", time.Since(start), 0)
		s.log().Error("geographic analysis error", zap.String("provider", s.Provider), zap.Error(err))
		return geo.AnalysisResult{}, wrapInferenceError(err)
	}

	result := geo.ParseMarkdown(answer)
	s.observe("success", time.Since(start), len(result.Areas))
	return result, nil
}

func wrapInferenceError(err error) *geo.AnalysisError {
	ae := geo.NewAnalysisError(geo.MsgAnalyzeFailed, err)
	if errors.Is(err, geo.ErrEmptyResponse) {
		ae.Details = geo.MsgEmptyResponse
	}
	return ae
}

// AnalyzeText validates the text, analyzes it and records the result.
func (s *Service) AnalyzeText(ctx context.Context, cmd AnalyzeTextCommand) (*geo.Analysis, error) {
	if strings.TrimSpace(cmd.Text) == "" {
		return nil, &geo.AnalysisError{Message: geo.MsgEmptyText, Err: geo.ErrInvalidInput}
	}
	result, err := s.Analyze(ctx, cmd.Text)
	if err != nil {
		return nil, err
	}

	a := s.newAnalysis(cmd.ClientID, geo.SourceText, cmd.Text, result)
	s.record(ctx, a)
	return a, nil
}

// AnalyzeDocument extracts text from an uploaded file, archives the original
// and analyzes the text.
func (s *Service) AnalyzeDocument(ctx context.Context, cmd AnalyzeDocumentCommand) (*geo.Analysis, error) {
	text, err := s.Extractor.Extract(cmd.Filename, cmd.ContentType, cmd.Data)
	if err != nil {
		s.log().Warn("document extraction failed", zap.String("filename", cmd.Filename), zap.Error(err))
		return nil, wrapFileError(err)
	}

	result, err := s.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	a := s.newAnalysis(cmd.ClientID, geo.SourceFile, text, result)
	a.Filename = cmd.Filename
	if s.Documents != nil {
		key := fmt.Sprintf("%s/%s/%s", clientKey(cmd.ClientID), a.ID, safeName(cmd.Filename))
		url, err := s.Documents.Put(ctx, key, cmd.Data, cmd.ContentType)
		if err != nil {
			// arsip gagal tidak menggagalkan analisa
			s.log().Warn("archiving document failed", zap.String("key", key), zap.Error(err))
		} else {
			a.DocumentURL = url
		}
	}
	s.record(ctx, a)
	return a, nil
}

// wrapFileError keeps only the user-facing reason in details.
func wrapFileError(err error) *geo.AnalysisError {
	ae := geo.NewAnalysisError(geo.MsgReadFailed, err)
	for _, kind := range []error{geo.ErrUnsupportedFileType, geo.ErrFileRead} {
		if errors.Is(err, kind) {
			ae.Details = strings.TrimPrefix(err.Error(), kind.Error()+": ")
			if kind == geo.ErrUnsupportedFileType {
				ae.Message = "Unsupported file type"
			}
			break
		}
	}
	return ae
}

// Get ambil 1 analisa by id
func (s *Service) Get(ctx context.Context, clientID string, id geo.AnalysisID) (*geo.Analysis, error) {
	if s.Repo == nil {
		return nil, geo.ErrNotFound
	}
	return s.Repo.Get(ctx, clientID, id)
}

// List returns the client's analysis history, newest first.
func (s *Service) List(ctx context.Context, clientID string, page, pageSize int) (geo.Page, error) {
	if s.Repo == nil {
		return geo.Page{Data: []*geo.Analysis{}, Page: 1, PageSize: pageSize}, nil
	}
	return s.Repo.Paginate(ctx, clientID, page, pageSize)
}

func (s *Service) newAnalysis(clientID string, src geo.Source, text string, r geo.AnalysisResult) *geo.Analysis {
	return &geo.Analysis{
		ID:           geo.AnalysisID(uuid.New().String()),
		ClientID:     clientID,
		Source:       src,
		InputExcerpt: excerpt(text, excerptRunes),
		Provider:     s.Provider,
		Result:       r,
		CreatedAt:    s.now(),
	}
}

func (s *Service) record(ctx context.Context, a *geo.Analysis) {
	if s.Repo == nil {
		return
	}
	if err := s.Repo.Save(ctx, a); err != nil {
		s.log().Error("saving analysis failed", zap.String("id", string(a.ID)), zap.Error(err))
	}
}

func (s *Service) observe(outcome string, d time.Duration, areas int) {
	if s.Metrics != nil {
		s.Metrics.ObserveAnalysis(s.Provider, outcome, d, areas)
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) log() *zap.Logger { return logger.OrNop(s.Log) }

// helper
func excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}

func clientKey(id string) string {
	if strings.TrimSpace(id) == "" {
		return "anonymous"
	}
	return id
}

func safeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "document"
	}
	return name
}
