// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/insightd/insightd/internal/config"
	"github.com/insightd/insightd/internal/frame"
	"github.com/insightd/insightd/internal/logging"
	"github.com/insightd/insightd/internal/patterns"
	"github.com/insightd/insightd/internal/query"
	"github.com/insightd/insightd/internal/viz"
)

// Handler holds the core services behind the HTTP surface.
type Handler struct {
	cfg         *config.Config
	engine      *patterns.Engine
	generator   *query.Generator
	shapes      *viz.ShapeAnalyzer
	recommender *viz.Recommender
	layouts     *viz.Optimizer
	validate    *validator.Validate
	version     string
}

// NewHandler wires the pattern engine, query generator, and
// visualization services from the loaded configuration.
func NewHandler(cfg *config.Config, version string) *Handler {
	detectorCfg := patterns.DefaultDetectorConfig()
	detectorCfg.MinSamples = cfg.Engine.MinSamples
	detectorCfg.ConfidenceThreshold = cfg.Engine.MinConfidence
	detectorCfg.Sensitivity = cfg.Engine.Sensitivity
	detectorCfg.Seed = cfg.Engine.Seed

	registry := patterns.NewRegistry()
	registry.Register(patterns.NewStatisticalDetector(detectorCfg))
	registry.Register(patterns.NewTimeSeriesDetector(detectorCfg))
	registry.Register(patterns.NewCorrelationDetector(detectorCfg))
	if cfg.Engine.EnableAnomalyDetection {
		registry.Register(patterns.NewAnomalyDetector(detectorCfg))
	}

	engineCfg := patterns.DefaultEngineConfig()
	engineCfg.MaxWorkers = cfg.Server.WorkerPoolSize
	engineCfg.PatternLimit = cfg.Engine.PatternLimit
	engineCfg.EnableCache = cfg.Engine.EnableCaching
	engineCfg.Detector = detectorCfg

	genCfg := query.DefaultGeneratorConfig()
	genCfg.CacheSize = cfg.Query.CacheSize
	genCfg.HistorySize = cfg.Query.HistorySize
	genCfg.Optimizer = query.OptimizerConfig{
		Mode:                  query.Mode(cfg.Query.OptimizerMode),
		Aggressive:            cfg.Query.OptimizerAggressive,
		DefaultRecordsPerHour: cfg.Query.DefaultRecordsPerHour,
	}

	return &Handler{
		cfg:       cfg,
		engine:    patterns.NewEngine(engineCfg, registry),
		generator: query.NewGenerator(genCfg),
		shapes: viz.NewShapeAnalyzer(viz.ShapeAnalyzerConfig{
			SampleSize:           cfg.Viz.SampleSize,
			CorrelationThreshold: cfg.Viz.CorrelationThreshold,
		}),
		recommender: viz.NewRecommender(viz.RecommenderConfig{
			MaxRecommendations: cfg.Viz.MaxRecommendations,
		}),
		layouts:  viz.NewOptimizer(),
		validate: validator.New(),
		version:  version,
	}
}

// StatsSnapshot collects engine and generator counters for the
// periodic stats reporter.
func (h *Handler) StatsSnapshot() map[string]any {
	engineStats := h.engine.Stats()
	return map[string]any{
		"analyses":        engineStats.Analyses,
		"detectors":       engineStats.Detectors,
		"analysis_cache":  engineStats.Cache,
		"query_generator": h.generator.Stats(),
	}
}

// Health reports liveness and per-component status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	components := map[string]string{
		"pattern_engine":  "ok",
		"query_generator": "ok",
		"visualization":   "ok",
	}
	if !h.cfg.Engine.EnablePatternDetection {
		components["pattern_engine"] = "disabled"
	}

	rw.Success(HealthResponse{
		Healthy:    true,
		Version:    h.version,
		Components: components,
	})
}

// Live answers liveness probes. A response at all means the process is
// serving.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Ready answers readiness probes. The service is ready once the engine
// is wired; detection being disabled by configuration still counts as
// ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AnalyzePatterns runs the pattern engine over a submitted frame.
func (h *Handler) AnalyzePatterns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if !h.cfg.Engine.EnablePatternDetection {
		rw.Error(http.StatusServiceUnavailable, ErrCodeInternalError, "Pattern detection is disabled")
		return
	}

	var req AnalyzePatternsRequest
	if !h.decode(rw, r, &req) {
		return
	}

	f, err := frame.FromJSON(req.Data)
	if err != nil {
		rw.InputShapeError(err.Error())
		return
	}

	analysis, err := h.engine.Analyze(r.Context(), f, patterns.AnalyzeRequest{
		Columns:   req.Columns,
		Detectors: req.Detectors,
		Context:   patterns.Context(req.Context),
	})
	if err != nil {
		logging.CtxWarn(r.Context()).Err(err).Msg("Pattern analysis failed")
		rw.InputShapeError(err.Error())
		return
	}

	if req.Page > 0 {
		page := Paginate(analysis.Patterns, req.Page, req.PageSize)
		paged := *analysis
		paged.Patterns = page.Items
		rw.SuccessWithPagination(&paged, &PaginationMeta{
			Total:   page.Total,
			Count:   len(page.Items),
			Page:    page.Page,
			Size:    page.Size,
			HasNext: page.HasNext,
		})
		return
	}
	rw.Success(analysis)
}

// GenerateQuery turns a natural language utterance into a dialect query.
func (h *Handler) GenerateQuery(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req GenerateQueryRequest
	if !h.decode(rw, r, &req) {
		return
	}

	result, err := h.generator.Generate(req.NaturalQuery, req.Context)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	rw.Success(result)
}

// SuggestQueries returns autocomplete suggestions for a prefix.
func (h *Handler) SuggestQueries(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	prefix := r.URL.Query().Get("prefix")
	rw.Success(map[string]any{
		"prefix":      prefix,
		"suggestions": h.generator.SuggestQueries(prefix),
	})
}

// ExplainQuery decomposes a dialect query into its clauses.
func (h *Handler) ExplainQuery(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ExplainQueryRequest
	if !h.decode(rw, r, &req) {
		return
	}
	rw.Success(h.generator.ExplainQuery(req.Query))
}

// RecommendCharts scores chart types for a data shape. Callers may send
// a precomputed shape or raw frame data to analyze first.
func (h *Handler) RecommendCharts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RecommendChartsRequest
	if !h.decode(rw, r, &req) {
		return
	}

	shape := req.DataShape
	if shape == nil {
		if len(req.Data) == 0 {
			rw.InputShapeError("Either data_shape or data is required")
			return
		}
		f, err := frame.FromJSON(req.Data)
		if err != nil {
			rw.InputShapeError(err.Error())
			return
		}
		shape, err = h.shapes.Analyze(f)
		if err != nil {
			rw.InputShapeError(err.Error())
			return
		}
	}

	rw.Success(map[string]any{
		"data_shape":      shape,
		"recommendations": h.recommender.Recommend(shape, req.Context),
	})
}

// OptimizeLayout places dashboard widgets on a grid.
func (h *Handler) OptimizeLayout(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req OptimizeLayoutRequest
	if !h.decode(rw, r, &req) {
		return
	}

	constraints := req.Constraints
	if constraints.MaxColumns == 0 {
		constraints.MaxColumns = h.cfg.Viz.DefaultGridColumns
	}

	layout, err := h.layouts.Optimize(req.Widgets, constraints, req.Strategy)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	rw.Success(map[string]any{
		"layout":      layout,
		"suggestions": h.layouts.SuggestImprovements(layout),
	})
}

// decode parses and validates a JSON request body. Writes the error
// response and returns false on failure.
func (h *Handler) decode(rw *ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		rw.ValidationError("Request validation failed", validationDetails(err))
		return false
	}
	return true
}

// validationDetails flattens validator errors into field -> rule pairs.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details["error"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return details
}
