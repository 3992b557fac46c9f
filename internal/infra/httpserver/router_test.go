package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/geo-classifier/internal/application/analysis"
	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
	"github.com/bryanwahyu/geo-classifier/internal/middleware"
)

const knownID = "0b7f3c52-8f8e-4a44-9f0c-0d1f5e6a7b8c"

type fakeService struct {
	err      error
	textCmd  analysis.AnalyzeTextCommand
	docCmd   analysis.AnalyzeDocumentCommand
	page     int
	pageSize int
}

func sample() *geo.Analysis {
	return &geo.Analysis{
		ID:       knownID,
		ClientID: "acme",
		Source:   geo.SourceText,
		Result: geo.AnalysisResult{
			Scope:       "Citywide",
			Areas:       []geo.AreaRecord{{Name: "Shadyside", Region: "Pittsburgh, PA", Context: "Mentioned as a venue"}},
			Summary:     "One neighborhood.",
			Confidence:  "High",
			Notes:       "None.",
			RawMarkdown: "### Geographic Scope\nCitywide",
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func (f *fakeService) AnalyzeText(ctx context.Context, cmd analysis.AnalyzeTextCommand) (*geo.Analysis, error) {
	f.textCmd = cmd
	if f.err != nil {
		return nil, f.err
	}
	return sample(), nil
}

func (f *fakeService) AnalyzeDocument(ctx context.Context, cmd analysis.AnalyzeDocumentCommand) (*geo.Analysis, error) {
	f.docCmd = cmd
	if f.err != nil {
		return nil, f.err
	}
	a := sample()
	a.Source = geo.SourceFile
	a.Filename = cmd.Filename
	return a, nil
}

func (f *fakeService) Get(ctx context.Context, clientID string, id geo.AnalysisID) (*geo.Analysis, error) {
	if id != knownID {
		return nil, geo.ErrNotFound
	}
	return sample(), nil
}

func (f *fakeService) List(ctx context.Context, clientID string, page, pageSize int) (geo.Page, error) {
	f.page, f.pageSize = page, pageSize
	return geo.Page{Data: []*geo.Analysis{sample()}, Page: page, PageSize: pageSize, Total: 1, TotalPages: 1}, nil
}

func newTestRouter(svc GeoService, keys map[string]string) http.Handler {
	return NewRouter(Options{
		Service: svc,
		Metrics: middleware.NewMetrics(),
		APIKeys: keys,
	})
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func postText(text string) *http.Request {
	b, _ := json.Marshal(map[string]string{"text": text})
	req := httptest.NewRequest(http.MethodPost, "/v1/geographic/analyze", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAnalyzeText_OK(t *testing.T) {
	svc := &fakeService{}
	rec, body := do(t, newTestRouter(svc, nil), postText("  The festival in Shadyside\x00 "))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "The festival in Shadyside", svc.textCmd.Text)
	assert.Equal(t, knownID, body["id"])
	assert.Equal(t, "Citywide", body["scope"])
	assert.NotContains(t, body, "rawMarkdown")
	areas := body["areas"].([]any)
	require.Len(t, areas, 1)
	assert.Equal(t, "Shadyside", areas[0].(map[string]any)["name"])
}

func TestAnalyzeText_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/geographic/analyze", strings.NewReader("{"))
	rec, body := do(t, newTestRouter(&fakeService{}, nil), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", body["message"])
}

func TestAnalyzeText_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
		details string
	}{
		{
			name:    "empty text",
			err:     &geo.AnalysisError{Message: geo.MsgEmptyText, Err: geo.ErrInvalidInput},
			status:  http.StatusBadRequest,
			message: geo.MsgEmptyText,
		},
		{
			name:    "empty response",
			err:     &geo.AnalysisError{Message: geo.MsgAnalyzeFailed, Details: geo.MsgEmptyResponse, Err: geo.ErrEmptyResponse},
			status:  http.StatusBadGateway,
			message: geo.MsgAnalyzeFailed,
			details: "No valid response content received from API",
		},
		{
			name:    "transport",
			err:     geo.NewAnalysisError(geo.MsgAnalyzeFailed, fmt.Errorf("%w: dial tcp: refused", geo.ErrTransport)),
			status:  http.StatusBadGateway,
			message: geo.MsgAnalyzeFailed,
		},
		{
			name:    "quota",
			err:     geo.NewAnalysisError(geo.MsgAnalyzeFailed, geo.ErrQuotaExceeded),
			status:  http.StatusTooManyRequests,
			message: geo.MsgAnalyzeFailed,
		},
		{
			name:    "unexpected",
			err:     fmt.Errorf("boom"),
			status:  http.StatusInternalServerError,
			message: "internal error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := do(t, newTestRouter(&fakeService{err: tc.err}, nil), postText("x"))

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, body["message"])
			if tc.details != "" {
				assert.Equal(t, tc.details, body["details"])
			}
		})
	}
}

func multipartRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/geographic/analyze/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeFile_OK(t *testing.T) {
	svc := &fakeService{}
	rec, body := do(t, newTestRouter(svc, nil), multipartRequest(t, "file", "notes.txt", "Oakland and Shadyside"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "notes.txt", svc.docCmd.Filename)
	assert.Equal(t, "Oakland and Shadyside", string(svc.docCmd.Data))
	assert.Equal(t, knownID, body["id"])
}

func TestAnalyzeFile_MissingField(t *testing.T) {
	rec, body := do(t, newTestRouter(&fakeService{}, nil), multipartRequest(t, "upload", "notes.txt", "x"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `missing form field "file"`, body["message"])
}

func TestAnalyzeFile_Unsupported(t *testing.T) {
	svc := &fakeService{err: &geo.AnalysisError{
		Message: "Unsupported file type",
		Details: "PDF files are not supported",
		Err:     geo.ErrUnsupportedFileType,
	}}
	rec, body := do(t, newTestRouter(svc, nil), multipartRequest(t, "file", "scan.pdf", "%PDF-1.7"))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "Unsupported file type", body["message"])
}

func TestAnalyzeFile_TooLarge(t *testing.T) {
	h := NewRouter(Options{Service: &fakeService{}, MaxUploadBytes: 16})
	rec, _ := do(t, h, multipartRequest(t, "file", "big.txt", strings.Repeat("a", 64)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetAnalysis(t *testing.T) {
	h := newTestRouter(&fakeService{}, nil)

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/geographic/analyses/"+knownID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, knownID, body["id"])
	assert.Equal(t, "### Geographic Scope\nCitywide", body["result"].(map[string]any)["rawMarkdown"])

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/geographic/analyses/9d7f3c52-8f8e-4a44-9f0c-0d1f5e6a7b8c", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/geographic/analyses/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAnalyses_ClampsPaging(t *testing.T) {
	svc := &fakeService{}
	rec, body := do(t, newTestRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/v1/geographic/analyses?page=-2&page_size=1000", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.page)
	assert.Equal(t, 100, svc.pageSize)
	assert.EqualValues(t, 1, body["totalItems"])
}

func TestAuthAndClient(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc, map[string]string{"acme": "secret"})

	rec, _ := do(t, h, postText("x"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := postText("x")
	req.Header.Set("Authorization", "Bearer secret")
	rec, _ = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", svc.textCmd.ClientID)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&fakeService{}, nil)
	do(t, h, postText("x"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/v1/geographic/analyze"`)
}
