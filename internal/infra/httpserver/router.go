package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/geo-classifier/internal/application/analysis"
	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
	"github.com/bryanwahyu/geo-classifier/internal/logger"
	"github.com/bryanwahyu/geo-classifier/internal/middleware"
)

const (
	defaultMaxUpload = 10 << 20
	maxTextRunes     = 100_000
)

// GeoService is the application surface the router needs.
type GeoService interface {
	AnalyzeText(ctx context.Context, cmd analysis.AnalyzeTextCommand) (*geo.Analysis, error)
	AnalyzeDocument(ctx context.Context, cmd analysis.AnalyzeDocumentCommand) (*geo.Analysis, error)
	Get(ctx context.Context, clientID string, id geo.AnalysisID) (*geo.Analysis, error)
	List(ctx context.Context, clientID string, page, pageSize int) (geo.Page, error)
}

// Options wires the router. Only Service is required.
type Options struct {
	Service        GeoService
	Metrics        *middleware.Metrics
	Checkers       map[string]middleware.HealthChecker
	APIKeys        map[string]string
	CORSOrigins    []string
	RateLimiter    *middleware.RateLimiter
	MaxUploadBytes int64
	Log            *zap.Logger
}

type Router struct {
	svc       GeoService
	maxUpload int64
	log       *zap.Logger
}

func NewRouter(opts Options) http.Handler {
	r := &Router{svc: opts.Service, maxUpload: opts.MaxUploadBytes, log: logger.OrNop(opts.Log)}
	if r.maxUpload <= 0 {
		r.maxUpload = defaultMaxUpload
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(middleware.Logging(r.log))
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimit(opts.RateLimiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/live", middleware.LivenessHandler)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Route("/v1/geographic", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyzeText))
		rt.Post("/analyze/file", r.wrap(r.handleAnalyzeFile))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errorBody matches the middleware's error responses.
type errorBody = middleware.ErrorBody

// badRequest marks request-shape problems caught in the handlers.
type badRequest struct{ msg string }

func (b badRequest) Error() string { return b.msg }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, body := r.mapError(err)
			if status >= http.StatusInternalServerError {
				r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			}
			writeJSON(w, status, body)
		}
	}
}

func (r *Router) mapError(err error) (int, errorBody) {
	var br badRequest
	if errors.As(err, &br) {
		return http.StatusBadRequest, errorBody{Message: br.msg}
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge, errorBody{
			Message: geo.MsgReadFailed,
			Details: fmt.Sprintf("File is larger than %d bytes", mbe.Limit),
		}
	}
	if errors.Is(err, geo.ErrNotFound) {
		return http.StatusNotFound, errorBody{Message: "not found"}
	}

	var ae *geo.AnalysisError
	if errors.As(err, &ae) {
		body := errorBody{Message: ae.Message, Details: ae.Details}
		switch {
		case errors.Is(err, geo.ErrInvalidInput), errors.Is(err, geo.ErrFileRead):
			return http.StatusBadRequest, body
		case errors.Is(err, geo.ErrUnsupportedFileType):
			return http.StatusUnsupportedMediaType, body
		case errors.Is(err, geo.ErrQuotaExceeded):
			return http.StatusTooManyRequests, body
		default:
			return http.StatusBadGateway, body
		}
	}
	return http.StatusInternalServerError, errorBody{Message: "internal error"}
}

// analyzeResponse hides the raw markdown from the HTTP caller.
type analyzeResponse struct {
	ID         geo.AnalysisID   `json:"id"`
	Scope      string           `json:"scope"`
	Areas      []geo.AreaRecord `json:"areas"`
	Summary    string           `json:"summary"`
	Confidence string           `json:"confidence"`
	Notes      string           `json:"notes"`
}

func toResponse(a *geo.Analysis) analyzeResponse {
	areas := a.Result.Areas
	if areas == nil {
		areas = []geo.AreaRecord{}
	}
	return analyzeResponse{
		ID:         a.ID,
		Scope:      a.Result.Scope,
		Areas:      areas,
		Summary:    a.Result.Summary,
		Confidence: a.Result.Confidence,
		Notes:      a.Result.Notes,
	}
}

// POST /v1/geographic/analyze
// Body: {"text": "..."}
func (r *Router) handleAnalyzeText(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, r.maxUpload)).Decode(&body); err != nil {
		return badRequest{msg: "invalid JSON body"}
	}
	text := middleware.SanitizeString(body.Text)
	if err := middleware.ValidateTextLength(text, maxTextRunes); err != nil {
		return badRequest{msg: err.Error()}
	}

	a, err := r.svc.AnalyzeText(req.Context(), analysis.AnalyzeTextCommand{
		ClientID: middleware.GetClientFromContext(req.Context()),
		Text:     text,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toResponse(a))
	return nil
}

// POST /v1/geographic/analyze/file (multipart, field "file")
func (r *Router) handleAnalyzeFile(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+1<<20)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return badRequest{msg: "invalid multipart form"}
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequest{msg: "missing form field \"file\""}
	}
	defer file.Close()

	if header.Size > r.maxUpload {
		return &http.MaxBytesError{Limit: r.maxUpload}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return geo.NewAnalysisError(geo.MsgReadFailed, fmt.Errorf("%w: %v", geo.ErrFileRead, err))
	}

	a, err := r.svc.AnalyzeDocument(req.Context(), analysis.AnalyzeDocumentCommand{
		ClientID:    middleware.GetClientFromContext(req.Context()),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toResponse(a))
	return nil
}

// GET /v1/geographic/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.List(req.Context(), middleware.GetClientFromContext(req.Context()),
		middleware.ValidatePage(page), middleware.ValidatePageSize(size))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/geographic/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := strings.TrimSpace(chi.URLParam(req, "id"))
	if err := middleware.ValidateAnalysisID(id); err != nil {
		return badRequest{msg: err.Error()}
	}

	a, err := r.svc.Get(req.Context(), middleware.GetClientFromContext(req.Context()), geo.AnalysisID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
