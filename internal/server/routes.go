package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkhouse/copydesk/internal/errs"
	"github.com/inkhouse/copydesk/internal/history"
	"github.com/inkhouse/copydesk/internal/manuscript"
	"github.com/inkhouse/copydesk/internal/pipeline"
	"github.com/inkhouse/copydesk/internal/retrieval"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api/manuscripts", func(r chi.Router) {
		r.Put("/{id}", s.upsertManuscript)
		r.Get("/{id}", s.getManuscript)
		r.Get("/{id}/continuity", s.getContinuity)
		r.Get("/{id}/runs", s.listRuns)
		r.Post("/{id}/compliance", s.runCompliance)
		r.Post("/{id}/structural", s.runStructural)
		r.Post("/{id}/stages/{stage}", s.runStage)
	})
	r.Get("/api/references/search", s.searchReferences)
}

type upsertRequest struct {
	RequestID string `json:"request_id"`
	Content   string `json:"content"`
	Title     string `json:"title"`
	Genre     string `json:"genre,omitempty"`
	Audience  string `json:"audience,omitempty"`
	Language  string `json:"language,omitempty"`
}

// upsertManuscript creates or replaces manuscript content and metadata. The
// write goes through the orchestrator so it holds the per-document lock, and
// it requires a request id like every other mutating entrypoint.
func (s *Server) upsertManuscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	doc, created, err := s.orchestrator.UpsertManuscript(r.Context(), pipeline.UpsertRequest{
		ManuscriptID: id,
		RequestID:    req.RequestID,
		Content:      req.Content,
		Metadata: manuscript.Metadata{
			Title:    req.Title,
			Genre:    req.Genre,
			Audience: req.Audience,
			Language: req.Language,
		},
	})
	if err != nil {
		if errs.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, doc)
}

func (s *Server) getManuscript(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDoc(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) getContinuity(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDoc(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc.Continuity)
}

func (s *Server) loadDoc(w http.ResponseWriter, r *http.Request) (*manuscript.Document, bool) {
	id := chi.URLParam(r, "id")
	doc, err := s.repo.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "manuscript not found"})
		return nil, false
	}
	return doc, true
}

// listRuns returns the run history for one manuscript, newest first.
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run history is not configured"})
		return
	}
	doc, ok := s.loadDoc(w, r)
	if !ok {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.history.ForManuscript(r.Context(), doc.ID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type runRequest struct {
	RequestID    string `json:"request_id"`
	StyleGuide   string `json:"style_guide,omitempty"`
	ReadingLevel string `json:"reading_level,omitempty"`
}

func (s *Server) decodeRun(w http.ResponseWriter, r *http.Request) (pipeline.RunRequest, bool) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return pipeline.RunRequest{}, false
	}
	return pipeline.RunRequest{
		ManuscriptID: chi.URLParam(r, "id"),
		RequestID:    req.RequestID,
		StyleGuide:   req.StyleGuide,
		ReadingLevel: req.ReadingLevel,
	}, true
}

func (s *Server) runCompliance(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}
	report, err := s.orchestrator.RunCompliance(r.Context(), req)
	s.writeRunOutcome(w, report, err)
}

func (s *Server) runStructural(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}
	report, err := s.orchestrator.RunStructural(r.Context(), req)
	s.writeRunOutcome(w, report, err)
}

func (s *Server) runStage(w http.ResponseWriter, r *http.Request) {
	stage, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "stage must be a number"})
		return
	}
	req, ok := s.decodeRun(w, r)
	if !ok {
		return
	}
	report, runErr := s.orchestrator.RunStage(r.Context(), req, stage)
	s.writeRunOutcome(w, report, runErr)
}

// writeRunOutcome maps pipeline outcomes to HTTP: validation problems are
// the caller's fault, a missing manuscript is 404, and a failed stage is a
// 502 carrying the failed stage and whatever results were completed.
func (s *Server) writeRunOutcome(w http.ResponseWriter, report *pipeline.Report, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, report)
		return
	}

	var stageErr *pipeline.StageError
	switch {
	case errs.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, pipeline.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &stageErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           stageErr.Error(),
			"failed_stage":    stageErr.Stage,
			"agent":           stageErr.AgentName,
			"partial_results": stageErr.Partial,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

type searchResult struct {
	Citation string  `json:"citation"`
	CorpusID string  `json:"corpus_id"`
	Score    float64 `json:"score"`
	Heading  string  `json:"heading"`
	Quote    string  `json:"quote"`
	Content  string  `json:"content"`
}

// searchReferences answers GET /api/references/search?q=...&corpus=a,b.
func (s *Server) searchReferences(w http.ResponseWriter, r *http.Request) {
	if s.retriever == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reference search is not configured"})
		return
	}

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	corpora := splitParam(r.URL.Query().Get("corpus"))
	if len(corpora) == 0 {
		corpora = retrieval.DefaultStyleGuides
	}

	opts := retrieval.Options{}
	if v := r.URL.Query().Get("top_k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.TopK = n
		}
	}
	if v := r.URL.Query().Get("min_score"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			opts.MinScore = f
		}
	}

	results, err := s.retriever.QueryReferences(r.Context(), query, corpora, opts)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		out = append(out, searchResult{
			Citation: res.Citation,
			CorpusID: res.CorpusID,
			Score:    res.Score,
			Heading:  res.Chunk.Heading,
			Quote:    res.Chunk.Quote,
			Content:  res.Chunk.Content,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func splitParam(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
