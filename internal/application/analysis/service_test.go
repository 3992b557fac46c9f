package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bryanwahyu/geo-classifier/internal/application"
	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
)

const answer = "### Geographic Scope\nCitywide\n### Identified Areas\n| Name | Region | Context |\n|--|--|--|\n| Shadyside | East End | mentioned twice |\n### Analysis Summary\nCovers one neighborhood.\n### Confidence Level\nHigh"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeInference struct {
	answer string
	err    error
	got    string
}

func (f *fakeInference) Answer(ctx context.Context, text string) (string, error) {
	f.got = text
	return f.answer, f.err
}

type fakeRepo struct {
	mu    sync.Mutex
	saved []*geo.Analysis
	err   error
}

func (r *fakeRepo) Save(ctx context.Context, a *geo.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, a)
	return r.err
}

func (r *fakeRepo) Get(ctx context.Context, clientID string, id geo.AnalysisID) (*geo.Analysis, error) {
	for _, a := range r.saved {
		if a.ID == id && a.ClientID == clientID {
			return a, nil
		}
	}
	return nil, geo.ErrNotFound
}

func (r *fakeRepo) Paginate(ctx context.Context, clientID string, page, pageSize int) (geo.Page, error) {
	return geo.Page{Data: r.saved, Page: page, PageSize: pageSize, Total: int64(len(r.saved))}, nil
}

type fakeStore struct {
	key, contentType string
	err              error
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.key, s.contentType = key, contentType
	if s.err != nil {
		return "", s.err
	}
	return "http://minio/docs/" + key, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e fakeExtractor) Extract(filename, contentType string, data []byte) (string, error) {
	return e.text, e.err
}

type fakeRecorder struct {
	outcomes []string
	areas    []int
}

func (r *fakeRecorder) ObserveAnalysis(provider, outcome string, elapsed time.Duration, areas int) {
	r.outcomes = append(r.outcomes, provider+":"+outcome)
	r.areas = append(r.areas, areas)
}

func TestService_Analyze(t *testing.T) {
	inf := &fakeInference{answer: answer}
	rec := &fakeRecorder{}
	svc := &Service{Inference: inf, Provider: "coze", Metrics: rec}

	got, err := svc.Analyze(context.Background(), "article text")
	require.NoError(t, err)

	assert.Equal(t, "article text", inf.got)
	assert.Equal(t, "Citywide", got.Scope)
	require.Len(t, got.Areas, 1)
	assert.Equal(t, geo.AreaRecord{Name: "Shadyside", Region: "East End", Context: "mentioned twice"}, got.Areas[0])
	assert.Equal(t, "Covers one neighborhood.", got.Summary)
	assert.Equal(t, "High", got.Confidence)
	assert.Equal(t, "", got.Notes)
	assert.Equal(t, answer, got.RawMarkdown)
	assert.Equal(t, []string{"coze:success"}, rec.outcomes)
	assert.Equal(t, []int{1}, rec.areas)
}

func TestService_AnalyzeEmptyResponse(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &Service{Inference: &fakeInference{err: fmt.Errorf("coze: %w", geo.ErrEmptyResponse)}, Provider: "coze", Metrics: rec}

	_, err := svc.Analyze(context.Background(), "x")

	var ae *geo.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Failed to analyze text", ae.Message)
	assert.Equal(t, "No valid response content received from API", ae.Details)
	assert.True(t, errors.Is(err, geo.ErrEmptyResponse))
	assert.Equal(t, []string{"coze:error"}, rec.outcomes)
}

func TestService_AnalyzeTransportErrorKeepsDetails(t *testing.T) {
	cause := fmt.Errorf("%w: API request failed: 503 Service Unavailable: ", geo.ErrTransport)
	svc := &Service{Inference: &fakeInference{err: cause}}

	_, err := svc.Analyze(context.Background(), "x")

	var ae *geo.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, geo.MsgAnalyzeFailed, ae.Message)
	assert.Contains(t, ae.Details, "503")
	assert.True(t, errors.Is(err, geo.ErrTransport))
}

type blockingInference struct{}

func (blockingInference) Answer(ctx context.Context, text string) (string, error) {
	<-ctx.Done()
	return "", fmt.Errorf("%w: %w", geo.ErrTransport, ctx.Err())
}

func TestService_AnalyzeTimeout(t *testing.T) {
	svc := &Service{Inference: blockingInference{}, Timeout: 10 * time.Millisecond}
	_, err := svc.Analyze(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestService_AnalyzeTextRecordsHistory(t *testing.T) {
	repo := &fakeRepo{}
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	svc := &Service{Inference: &fakeInference{answer: answer}, Provider: "coze", Repo: repo, Clock: application.FixedClock{T: now}}

	a, err := svc.AnalyzeText(context.Background(), AnalyzeTextCommand{ClientID: "newsroom", Text: "  Shadyside story  "})
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	assert.Same(t, a, repo.saved[0])
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "newsroom", a.ClientID)
	assert.Equal(t, geo.SourceText, a.Source)
	assert.Equal(t, "Shadyside story", a.InputExcerpt)
	assert.Equal(t, "coze", a.Provider)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, "Citywide", a.Result.Scope)
}

func TestService_AnalyzeTextRejectsBlank(t *testing.T) {
	inf := &fakeInference{answer: answer}
	svc := &Service{Inference: inf}

	_, err := svc.AnalyzeText(context.Background(), AnalyzeTextCommand{Text: " \n\t"})

	var ae *geo.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Please enter text to analyze", ae.Message)
	assert.True(t, errors.Is(err, geo.ErrInvalidInput))
	assert.Empty(t, inf.got)
}

func TestService_AnalyzeTextSaveFailureIsNotFatal(t *testing.T) {
	svc := &Service{Inference: &fakeInference{answer: answer}, Repo: &fakeRepo{err: errors.New("db down")}}
	a, err := svc.AnalyzeText(context.Background(), AnalyzeTextCommand{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Citywide", a.Result.Scope)
}

func TestService_AnalyzeDocumentArchivesOriginal(t *testing.T) {
	store := &fakeStore{}
	repo := &fakeRepo{}
	inf := &fakeInference{answer: answer}
	svc := &Service{Inference: inf, Extractor: fakeExtractor{text: "extracted"}, Documents: store, Repo: repo}

	a, err := svc.AnalyzeDocument(context.Background(), AnalyzeDocumentCommand{
		ClientID: "newsroom", Filename: "../../etc/story.docx", ContentType: "application/x", Data: []byte("zip"),
	})
	require.NoError(t, err)

	assert.Equal(t, "extracted", inf.got)
	assert.Equal(t, geo.SourceFile, a.Source)
	assert.Equal(t, "../../etc/story.docx", a.Filename)
	assert.Equal(t, "newsroom/"+string(a.ID)+"/story.docx", store.key)
	assert.Equal(t, "http://minio/docs/"+store.key, a.DocumentURL)
	require.Len(t, repo.saved, 1)
}

func TestService_AnalyzeDocumentArchiveFailureIsNotFatal(t *testing.T) {
	svc := &Service{
		Inference: &fakeInference{answer: answer},
		Extractor: fakeExtractor{text: "t"},
		Documents: &fakeStore{err: errors.New("minio down")},
	}
	a, err := svc.AnalyzeDocument(context.Background(), AnalyzeDocumentCommand{Filename: "a.txt", Data: []byte("t")})
	require.NoError(t, err)
	assert.Empty(t, a.DocumentURL)
}

func TestService_AnalyzeDocumentUnsupported(t *testing.T) {
	msg := "PDF files are not supported yet. Please copy and paste the text content or convert to .txt/.docx format."
	inf := &fakeInference{answer: answer}
	svc := &Service{Inference: inf, Extractor: fakeExtractor{err: fmt.Errorf("%w: %s", geo.ErrUnsupportedFileType, msg)}}

	_, err := svc.AnalyzeDocument(context.Background(), AnalyzeDocumentCommand{Filename: "a.pdf"})

	var ae *geo.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Unsupported file type", ae.Message)
	assert.Equal(t, msg, ae.Details)
	assert.True(t, errors.Is(err, geo.ErrUnsupportedFileType))
	assert.Empty(t, inf.got)
}

func TestService_AnalyzeDocumentReadError(t *testing.T) {
	svc := &Service{Extractor: fakeExtractor{err: fmt.Errorf("%w: %s", geo.ErrFileRead, "Failed to read file content")}}

	_, err := svc.AnalyzeDocument(context.Background(), AnalyzeDocumentCommand{Filename: "a.txt"})

	var ae *geo.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Failed to read file", ae.Message)
	assert.Equal(t, "Failed to read file content", ae.Details)
}

func TestService_HistoryWithoutRepo(t *testing.T) {
	svc := &Service{}
	page, err := svc.List(context.Background(), "c", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	_, err = svc.Get(context.Background(), "c", "x")
	assert.True(t, errors.Is(err, geo.ErrNotFound))
}

type staticInference string

func (s staticInference) Answer(ctx context.Context, text string) (string, error) {
	return string(s), nil
}

func TestService_ConcurrentAnalyzeIsIsolated(t *testing.T) {
	svc := &Service{Inference: staticInference(answer)}
	var wg sync.WaitGroup
	results := make([]geo.AnalysisResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Analyze(context.Background(), "x")
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "abc", excerpt("  abc ", 5))
	assert.Equal(t, "ééé", excerpt(strings.Repeat("é", 10), 3))
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a.txt", safeName(`C:\Users\me\a.txt`))
	assert.Equal(t, "document", safeName(".."))
	assert.Equal(t, "document", safeName("dir/"))
}
