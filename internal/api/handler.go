package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/codefile"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/filter"
	"github.com/opensource-finance/harrier/internal/normalize"
	"github.com/opensource-finance/harrier/internal/registry"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/scoring"
	"github.com/opensource-finance/harrier/internal/search"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo          domain.Repository
	cache         domain.Cache
	bus           domain.EventBus
	registry      *registry.Registry
	builder       *search.Builder
	normalizer    *normalize.Normalizer
	filterEngine  *filter.Engine
	overridesPath string
	version       string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, reg *registry.Registry, builder *search.Builder, normalizer *normalize.Normalizer, filterEngine *filter.Engine, overridesPath string, version string) *Handler {
	return &Handler{
		repo:          repo,
		cache:         cache,
		bus:           bus,
		registry:      reg,
		builder:       builder,
		normalizer:    normalizer,
		filterEngine:  filterEngine,
		overridesPath: overridesPath,
		version:       version,
	}
}

// SearchRequest is the request body for POST /search.
// Conditions holds a boolean expression like
// "PEP_TYPE:MUN AND COUNTRY:Brazil"; Filter holds a CEL expression
// applied to the normalized records.
type SearchRequest struct {
	domain.SearchParameters
	Conditions string `json:"conditions,omitempty"`
	Filter     string `json:"filter,omitempty"`
}

// SearchResponse is the response for POST /search.
type SearchResponse struct {
	Results  []*domain.EntityRecord `json:"results"`
	Count    int                    `json:"count"`
	Cached   bool                   `json:"cached"`
	Metadata struct {
		TraceID    string `json:"traceId"`
		DurationMs int64  `json:"durationMs"`
		Version    string `json:"version"`
	} `json:"metadata"`
}

// Search handles POST /search requests.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	records, cached, apiErr := h.executeSearch(ctx, &req, traceID)
	if apiErr != nil {
		writeJSON(w, apiErr.status, map[string]string{"error": apiErr.message})
		return
	}

	resp := SearchResponse{
		Results: records,
		Count:   len(records),
		Cached:  cached,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.DurationMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// ExportSearch handles POST /search/export requests, streaming the
// search results as CSV with the fixed export projection.
func (h *Handler) ExportSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	records, _, apiErr := h.executeSearch(ctx, &req, traceID)
	if apiErr != nil {
		writeJSON(w, apiErr.status, map[string]string{"error": apiErr.message})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="search_results.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(normalize.ExportColumns); err != nil {
		slog.Error("failed to write CSV header", "error", err)
		return
	}
	for _, rec := range records {
		if err := cw.Write(normalize.ExportRow(rec)); err != nil {
			slog.Error("failed to write CSV row", "entity_id", rec.EntityID, "error", err)
			return
		}
	}
	cw.Flush()
}

type apiError struct {
	status  int
	message string
}

// executeSearch runs the parse, build, cache, query, normalize and
// filter pipeline shared by Search and ExportSearch.
func (h *Handler) executeSearch(ctx context.Context, req *SearchRequest, traceID string) ([]*domain.EntityRecord, bool, *apiError) {
	if req.EntityType == "" {
		req.EntityType = domain.EntityTypeIndividual
	}
	if !domain.ValidEntityType(req.EntityType) {
		return nil, false, &apiError{http.StatusBadRequest, "entityType must be individual or organization"}
	}

	// Compile the CEL filter up front so a bad expression fails fast.
	var compiled *filter.Compiled
	if req.Filter != "" {
		var err error
		compiled, err = h.filterEngine.Compile(req.Filter)
		if err != nil {
			return nil, false, &apiError{http.StatusBadRequest, "invalid filter: " + err.Error()}
		}
	}

	conditions := search.ParseConditions(req.Conditions)
	q := h.builder.Build(req.SearchParameters, conditions)

	// The cache key covers the statement and bound values; the CEL
	// filter is applied after the cache so it never fragments entries.
	key := cache.SearchKey(req.EntityType, q)
	if cachedData := h.cacheGet(ctx, key); cachedData != nil {
		var records []*domain.EntityRecord
		if err := json.Unmarshal(cachedData, &records); err == nil {
			if compiled != nil {
				records = h.filterEngine.Apply(compiled, records)
			}
			return records, true, nil
		}
		slog.Warn("discarding undecodable cache entry", "key", key)
	}

	rows, err := h.repo.SearchEntities(ctx, req.EntityType, q)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			return nil, false, &apiError{http.StatusBadRequest, err.Error()}
		}
		slog.Error("search query failed", "error", err, "trace_id", traceID)
		return nil, false, &apiError{http.StatusInternalServerError, "search failed"}
	}

	records := h.normalizer.NormalizeRows(rows, req.EntityType)

	h.cacheSet(ctx, key, records)
	h.publishCritical(ctx, records, traceID)

	if compiled != nil {
		records = h.filterEngine.Apply(compiled, records)
	}

	return records, false, nil
}

func (h *Handler) cacheGet(ctx context.Context, key string) []byte {
	if h.cache == nil {
		return nil
	}
	data, err := h.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
		return nil
	}
	return data
}

func (h *Handler) cacheSet(ctx context.Context, key string, records []*domain.EntityRecord) {
	if h.cache == nil {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, data, domain.SearchCacheTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

// publishCritical emits a flagged-entity message for each record that
// normalized to the Critical category. Fresh results only; cache hits
// were already flagged when first computed.
func (h *Handler) publishCritical(ctx context.Context, records []*domain.EntityRecord, traceID string) {
	if h.bus == nil {
		return
	}
	for _, rec := range records {
		if rec.Risk.RiskCategory != domain.RiskCategoryCritical {
			continue
		}
		alert := domain.ScreeningAlert{
			EntityID:     rec.EntityID,
			EntityName:   rec.EntityName,
			EntityType:   rec.EntityType,
			RiskScore:    rec.Risk.RiskScore,
			RiskCategory: rec.Risk.RiskCategory,
			TraceID:      traceID,
		}
		payload, err := json.Marshal(alert)
		if err != nil {
			continue
		}
		if err := h.bus.Publish(ctx, domain.TopicEntityFlagged, payload); err != nil {
			slog.Error("failed to publish flagged entity",
				"entity_id", rec.EntityID,
				"error", err,
			)
		}
	}
}

// GetEntity handles GET /entities/{type}/{id}.
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType := chi.URLParam(r, "type")
	entityID := chi.URLParam(r, "id")

	if !domain.ValidEntityType(entityType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "entity type must be individual or organization",
		})
		return
	}

	row, err := h.repo.GetEntity(ctx, entityType, entityID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "entity not found",
			})
		case errors.Is(err, repository.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		default:
			slog.Error("failed to get entity", "id", entityID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "lookup failed",
			})
		}
		return
	}

	record, err := h.normalizer.NormalizeRow(row, entityType)
	if err != nil {
		slog.Error("failed to normalize entity", "id", entityID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "normalization failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListCodes returns every code in the registry with its assignment.
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	codes := h.registry.Codes()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"codes": codes,
		"count": len(codes),
	})
}

// GetCode returns the registry view for one code. Unknown codes get
// the sentinel view rather than an error, mirroring Lookup.
func (h *Handler) GetCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "code is required",
		})
		return
	}

	writeJSON(w, http.StatusOK, h.registry.Lookup(code))
}

// UpsertCode creates or customizes a code from an override body.
func (h *Handler) UpsertCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "code is required",
		})
		return
	}

	var ov domain.CodeOverride
	if err := json.NewDecoder(r.Body).Decode(&ov); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	h.registry.Upsert(code, ov)
	h.persistOverrides()

	slog.Info("code upserted", "code", code)
	writeJSON(w, http.StatusOK, h.registry.Lookup(code))
}

// ApplyOverrides applies a batch of field-level overrides.
func (h *Handler) ApplyOverrides(w http.ResponseWriter, r *http.Request) {
	var overrides map[string]domain.CodeOverride
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	h.registry.ApplyUserOverrides(overrides)
	h.persistOverrides()

	slog.Info("overrides applied", "count", len(overrides))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "overrides applied",
		"count":   len(overrides),
	})
}

// ExportOverrides returns the customized entries keyed by code.
func (h *Handler) ExportOverrides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.ExportOverrides())
}

// persistOverrides saves customized entries to disk when a path is
// configured so they survive restarts.
func (h *Handler) persistOverrides() {
	if h.overridesPath == "" {
		return
	}
	if err := codefile.SaveOverrides(h.overridesPath, h.registry.ExportOverrides()); err != nil {
		slog.Error("failed to persist overrides", "path", h.overridesPath, "error", err)
	}
}

// ListPepTypes returns the PEP role table, highest level first.
func (h *Handler) ListPepTypes(w http.ResponseWriter, r *http.Request) {
	types := scoring.PepTypes()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pepTypes": types,
		"count":    len(types),
	})
}

// ListAlerts returns persisted screening alerts, newest first. The
// optional since parameter is RFC 3339; the default window is 24h.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be RFC 3339",
			})
			return
		}
		since = parsed
	}

	alerts, err := h.repo.ListAlerts(ctx, since)
	if err != nil {
		slog.Error("failed to list alerts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list alerts",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
