package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	"github.com/goran-ethernal/NFTIndexor/pkg/indexer"
)

// IndexerRegistry defines the interface for accessing registered indexers.
type IndexerRegistry interface {
	GetByName(name string) indexer.Indexer
	ListAll() []indexer.Indexer
}

// Handler handles HTTP requests for the API.
type Handler struct {
	registry IndexerRegistry
	log      *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(registry IndexerRegistry, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log,
	}
}

// ListIndexers returns a list of all registered indexers.
// @Summary List all indexers
// @Description Get a list of all registered indexers with their entity kinds and available endpoints
// @Tags Indexers
// @Produce json
// @Success 200 {array} IndexerInfo "List of indexers"
// @Router /indexers [get]
func (h *Handler) ListIndexers(w http.ResponseWriter, r *http.Request) {
	indexers := h.registry.ListAll()

	var infos []IndexerInfo
	for _, idx := range indexers {
		queryable, ok := idx.(indexer.Queryable)
		if !ok {
			continue
		}

		info := IndexerInfo{
			Type:        idx.Type(),
			Name:        idx.Name(),
			EntityKinds: queryable.EntityKinds(),
			Endpoints: []string{
				fmt.Sprintf("/api/v1/indexers/%s/stats", idx.Name()),
			},
		}
		for _, kind := range queryable.EntityKinds() {
			info.Endpoints = append(info.Endpoints,
				fmt.Sprintf("/api/v1/indexers/%s/entities/%s", idx.Name(), kind))
		}
		infos = append(infos, info)
	}

	respondJSON(w, http.StatusOK, infos)
}

// QueryEntities retrieves a page of derived entities from a specific indexer.
// @Summary Query entities from an indexer
// @Description Retrieve derived entities of a given kind with optional filtering, pagination, and sorting
// @Tags Entities
// @Produce json
// @Param name path string true "Indexer name"
// @Param kind path string true "Entity kind (e.g. tokens, contracts, minters, transactions)"
// @Param limit query int false "Maximum number of entities to return" default(50)
// @Param offset query int false "Number of entities to skip" default(0)
// @Param contract query string false "Filter by contract address"
// @Param owner query string false "Filter by owner address (tokens match any historical owner)"
// @Param sort_by query string false "Field to sort by"
// @Param sort_order query string false "Sort order: asc or desc" Enums(asc, desc)
// @Success 200 {object} EntityResponse "Page of entities with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Indexer not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /indexers/{name}/entities/{kind} [get]
func (h *Handler) QueryEntities(w http.ResponseWriter, r *http.Request) {
	queryable, ok := h.queryableFromRequest(w, r)
	if !ok {
		return
	}

	kind := r.PathValue("kind")
	if kind == "" {
		respondError(w, http.StatusBadRequest, "entity kind is required")
		return
	}

	params, err := parseQueryParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	result, err := queryable.QueryEntities(kind, params)
	if err != nil {
		if isUnknownKind(queryable, kind) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("unknown entity kind '%s'", kind))
			return
		}
		h.log.Errorf("Failed to query entities: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query entities")
		return
	}

	// Items can be any slice type, use reflection for the page length.
	itemsVal := reflect.ValueOf(result.Items)
	if itemsVal.Kind() != reflect.Slice {
		h.log.Errorf("Invalid items type returned for kind '%s': expected slice, got %T", kind, result.Items)
		respondError(w, http.StatusInternalServerError, "invalid items type returned from indexer")
		return
	}

	response := EntityResponse{
		Items: result.Items,
		Pagination: PaginationResult{
			Total:   result.Total,
			Limit:   result.Limit,
			Offset:  result.Offset,
			HasMore: int64(result.Offset+itemsVal.Len()) < result.Total,
		},
	}

	respondJSON(w, http.StatusOK, response)
}

// GetEntity retrieves a single entity by its key.
// @Summary Get a single entity
// @Description Retrieve a single entity by its business key. Token keys are "<contract>_<token_id>", contract keys are the contract address, minter keys are "<minter>_<contract>".
// @Tags Entities
// @Produce json
// @Param name path string true "Indexer name"
// @Param kind path string true "Entity kind"
// @Param key path string true "Entity key"
// @Success 200 {object} any "The entity"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Indexer or entity not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /indexers/{name}/entities/{kind}/{key} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	queryable, ok := h.queryableFromRequest(w, r)
	if !ok {
		return
	}

	kind := r.PathValue("kind")
	key := r.PathValue("key")
	if kind == "" || key == "" {
		respondError(w, http.StatusBadRequest, "entity kind and key are required")
		return
	}

	entity, err := queryable.GetEntity(kind, key)
	if err != nil {
		if isUnknownKind(queryable, kind) {
			respondError(w, http.StatusNotFound, fmt.Sprintf("unknown entity kind '%s'", kind))
			return
		}
		h.log.Errorf("Failed to get entity: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to get entity")
		return
	}

	if entityVal := reflect.ValueOf(entity); entity == nil ||
		(entityVal.Kind() == reflect.Ptr && entityVal.IsNil()) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("entity '%s' not found", key))
		return
	}

	respondJSON(w, http.StatusOK, entity)
}

// GetStats retrieves statistics for a specific indexer.
// @Summary Get indexer statistics
// @Description Retrieve entity counts and latest indexed block for a specific indexer
// @Tags Stats
// @Produce json
// @Param name path string true "Indexer name"
// @Success 200 {object} indexer.StatsResponse "Indexer statistics"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Indexer not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /indexers/{name}/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	queryable, ok := h.queryableFromRequest(w, r)
	if !ok {
		return
	}

	stats, err := queryable.Stats()
	if err != nil {
		h.log.Errorf("Failed to get stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// Health returns the health status of the API and all indexers.
// @Summary Health check
// @Description Check the health status of the API and all registered indexers
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "API and indexer health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	indexers := h.registry.ListAll()

	var statuses []IndexerStatus
	for _, idx := range indexers {
		queryable, ok := idx.(indexer.Queryable)
		if !ok {
			continue
		}

		stats, err := queryable.Stats()
		status := IndexerStatus{
			Name:    idx.Name(),
			Type:    idx.Type(),
			Healthy: err == nil,
		}

		if err == nil {
			status.LatestBlock = stats.LatestBlock
			for _, count := range stats.EntityCounts {
				status.EntityCount += count
			}
		}

		statuses = append(statuses, status)
	}

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Indexers:  statuses,
	}

	respondJSON(w, http.StatusOK, response)
}

// queryableFromRequest resolves the {name} path value to a queryable indexer,
// writing the error response itself when resolution fails.
func (h *Handler) queryableFromRequest(w http.ResponseWriter, r *http.Request) (indexer.Queryable, bool) {
	indexerName := r.PathValue("name")
	if indexerName == "" {
		respondError(w, http.StatusBadRequest, "indexer name is required")
		return nil, false
	}

	idx := h.registry.GetByName(indexerName)
	if idx == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("indexer '%s' not found", indexerName))
		return nil, false
	}

	queryable, ok := idx.(indexer.Queryable)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("indexer '%s' does not support querying", indexerName))
		return nil, false
	}

	return queryable, true
}

func isUnknownKind(queryable indexer.Queryable, kind string) bool {
	for _, k := range queryable.EntityKinds() {
		if k == kind {
			return false
		}
	}
	return true
}

// parseQueryParams parses HTTP query parameters into QueryParams.
func parseQueryParams(r *http.Request) (*indexer.QueryParams, error) {
	params := indexer.NewDefaultQueryParams()

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > indexer.MaxPageLimit {
			return params, fmt.Errorf("invalid limit: must be between 1 and %d", indexer.MaxPageLimit)
		}
		params.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return params, fmt.Errorf("invalid offset: must be non-negative")
		}
		params.Offset = offset
	}

	if contract := r.URL.Query().Get("contract"); contract != "" {
		params.Contract = contract
	}

	if owner := r.URL.Query().Get("owner"); owner != "" {
		params.Owner = owner
	}

	if sortBy := r.URL.Query().Get("sort_by"); sortBy != "" {
		params.SortBy = strings.ToLower(sortBy)
	}

	if sortOrder := r.URL.Query().Get("sort_order"); sortOrder != "" {
		sortOrder = strings.ToLower(sortOrder)
		if sortOrder != "asc" && sortOrder != "desc" {
			return params, fmt.Errorf("invalid sort_order: must be 'asc' or 'desc'")
		}
		params.SortOrder = sortOrder
	}

	return params, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode JSON first to catch any errors before writing status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	if _, err := w.Write(encoded); err != nil {
		// Headers already sent, nothing left to do
		return
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
