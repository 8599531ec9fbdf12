package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	"github.com/goran-ethernal/NFTIndexor/pkg/indexer"
)

// stubQueryable is a queryable indexer with pluggable query behavior.
type stubQueryable struct {
	name    string
	idxType string
	kinds   []string

	queryFn func(kind string, params *indexer.QueryParams) (*indexer.QueryResult, error)
	getFn   func(kind, key string) (any, error)
	statsFn func() (*indexer.StatsResponse, error)
}

func (s *stubQueryable) Name() string { return s.name }
func (s *stubQueryable) Type() string { return s.idxType }
func (s *stubQueryable) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	return nil
}
func (s *stubQueryable) HandleLogs(_ []types.Log) error { return nil }
func (s *stubQueryable) StartBlock() uint64             { return 0 }
func (s *stubQueryable) Close() error                   { return nil }
func (s *stubQueryable) EntityKinds() []string          { return s.kinds }

func (s *stubQueryable) QueryEntities(kind string, params *indexer.QueryParams) (*indexer.QueryResult, error) {
	if s.queryFn != nil {
		return s.queryFn(kind, params)
	}
	return &indexer.QueryResult{Items: []string{}, Limit: params.Limit, Offset: params.Offset}, nil
}

func (s *stubQueryable) GetEntity(kind, key string) (any, error) {
	if s.getFn != nil {
		return s.getFn(kind, key)
	}
	return nil, nil
}

func (s *stubQueryable) Stats() (*indexer.StatsResponse, error) {
	if s.statsFn != nil {
		return s.statsFn()
	}
	return &indexer.StatsResponse{EntityCounts: map[string]int64{}}, nil
}

// plainIndexer implements only Indexer, not Queryable.
type plainIndexer struct {
	name string
}

func (p *plainIndexer) Name() string { return p.name }
func (p *plainIndexer) Type() string { return "plain" }
func (p *plainIndexer) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	return nil
}
func (p *plainIndexer) HandleLogs(_ []types.Log) error { return nil }
func (p *plainIndexer) StartBlock() uint64             { return 0 }
func (p *plainIndexer) Close() error                   { return nil }

// stubRegistry serves a fixed set of indexers.
type stubRegistry struct {
	indexers []indexer.Indexer
}

func (r *stubRegistry) GetByName(name string) indexer.Indexer {
	for _, idx := range r.indexers {
		if idx.Name() == name {
			return idx
		}
	}
	return nil
}

func (r *stubRegistry) ListAll() []indexer.Indexer {
	return r.indexers
}

func newTestHandler(indexers ...indexer.Indexer) *Handler {
	return NewHandler(&stubRegistry{indexers: indexers}, logger.NewNopLogger())
}

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		status         int
		data           any
		expectedBody   string
		expectedStatus int
	}{
		{
			name:           "success with simple data",
			status:         http.StatusOK,
			data:           map[string]string{"message": "success"},
			expectedBody:   `{"message":"success"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "success with array",
			status:         http.StatusOK,
			data:           []string{"item1", "item2"},
			expectedBody:   `["item1","item2"]`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "success with nil",
			status:         http.StatusOK,
			data:           nil,
			expectedBody:   "null",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "error status",
			status:         http.StatusBadRequest,
			data:           map[string]string{"error": "bad request"},
			expectedBody:   `{"error":"bad request"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			require.Equal(t, tt.expectedStatus, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			require.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestRespondJSON_EncodingError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()

	// Channel cannot be JSON encoded
	respondJSON(w, http.StatusOK, make(chan int))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Failed to encode response")
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		message       string
		expectedError string
	}{
		{
			name:          "bad request error",
			status:        http.StatusBadRequest,
			message:       "invalid input",
			expectedError: "Bad Request",
		},
		{
			name:          "not found error",
			status:        http.StatusNotFound,
			message:       "resource not found",
			expectedError: "Not Found",
		},
		{
			name:          "internal server error",
			status:        http.StatusInternalServerError,
			message:       "something went wrong",
			expectedError: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondError(w, tt.status, tt.message)

			require.Equal(t, tt.status, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response ErrorResponse
			err := json.Unmarshal(w.Body.Bytes(), &response)
			require.NoError(t, err)

			require.Equal(t, tt.status, response.Code)
			require.Equal(t, tt.expectedError, response.Error)
			require.Equal(t, tt.message, response.Message)
		})
	}
}

func TestParseQueryParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		queryString string
		validate    func(t *testing.T, params *indexer.QueryParams, err error)
	}{
		{
			name:        "default params",
			queryString: "",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.NoError(t, err)
				require.Equal(t, 50, params.Limit)
				require.Equal(t, 0, params.Offset)
				require.Equal(t, "", params.SortBy)
				require.Equal(t, "desc", params.SortOrder)
			},
		},
		{
			name:        "custom limit and offset",
			queryString: "limit=25&offset=100",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.NoError(t, err)
				require.Equal(t, 25, params.Limit)
				require.Equal(t, 100, params.Offset)
			},
		},
		{
			name:        "contract filter",
			queryString: "contract=0x1234567890abcdef1234567890abcdef12345678",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.NoError(t, err)
				require.Equal(t, "0x1234567890abcdef1234567890abcdef12345678", params.Contract)
			},
		},
		{
			name:        "owner filter",
			queryString: "owner=0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.NoError(t, err)
				require.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", params.Owner)
			},
		},
		{
			name:        "sorting",
			queryString: "sort_by=Block_Number&sort_order=ASC",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.NoError(t, err)
				require.Equal(t, "block_number", params.SortBy)
				require.Equal(t, "asc", params.SortOrder)
			},
		},
		{
			name:        "invalid limit",
			queryString: "limit=0",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.Error(t, err)
			},
		},
		{
			name:        "limit above max",
			queryString: fmt.Sprintf("limit=%d", indexer.MaxPageLimit+1),
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.Error(t, err)
			},
		},
		{
			name:        "negative offset",
			queryString: "offset=-1",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.Error(t, err)
			},
		},
		{
			name:        "invalid sort order",
			queryString: "sort_order=sideways",
			validate: func(t *testing.T, params *indexer.QueryParams, err error) {
				t.Helper()

				require.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/test?"+tt.queryString, nil)
			params, err := parseQueryParams(req)

			tt.validate(t, params, err)
		})
	}
}

func TestHandler_ListIndexers(t *testing.T) {
	t.Parallel()

	queryable := &stubQueryable{
		name:    "mainnet-nft",
		idxType: "nft",
		kinds:   []string{"tokens", "contracts"},
	}
	handler := newTestHandler(queryable, &plainIndexer{name: "raw"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers", nil)
	w := httptest.NewRecorder()
	handler.ListIndexers(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var infos []IndexerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))

	// Non-queryable indexers are not listed
	require.Len(t, infos, 1)
	require.Equal(t, "mainnet-nft", infos[0].Name)
	require.Equal(t, "nft", infos[0].Type)
	require.Equal(t, []string{"tokens", "contracts"}, infos[0].EntityKinds)
	require.Contains(t, infos[0].Endpoints, "/api/v1/indexers/mainnet-nft/stats")
	require.Contains(t, infos[0].Endpoints, "/api/v1/indexers/mainnet-nft/entities/tokens")
	require.Contains(t, infos[0].Endpoints, "/api/v1/indexers/mainnet-nft/entities/contracts")
}

func TestHandler_QueryEntities(t *testing.T) {
	t.Parallel()

	type tokenItem struct {
		Key   string `json:"id"`
		Owner string `json:"owner"`
	}

	queryable := &stubQueryable{
		name:    "mainnet-nft",
		idxType: "nft",
		kinds:   []string{"tokens"},
		queryFn: func(kind string, params *indexer.QueryParams) (*indexer.QueryResult, error) {
			if kind != "tokens" {
				return nil, fmt.Errorf("unknown entity kind: %s", kind)
			}
			return &indexer.QueryResult{
				Items: []tokenItem{
					{Key: "0xabc_1", Owner: "0xowner1"},
					{Key: "0xabc_2", Owner: "0xowner2"},
				},
				Total:  10,
				Limit:  params.Limit,
				Offset: params.Offset,
			}, nil
		},
	}
	handler := newTestHandler(queryable)

	t.Run("returns page with pagination", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/mainnet-nft/entities/tokens?limit=2", nil)
		req.SetPathValue("name", "mainnet-nft")
		req.SetPathValue("kind", "tokens")
		w := httptest.NewRecorder()

		handler.QueryEntities(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var response EntityResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Equal(t, int64(10), response.Pagination.Total)
		require.Equal(t, 2, response.Pagination.Limit)
		require.Equal(t, 0, response.Pagination.Offset)
		require.True(t, response.Pagination.HasMore)
	})

	t.Run("unknown indexer", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/missing/entities/tokens", nil)
		req.SetPathValue("name", "missing")
		req.SetPathValue("kind", "tokens")
		w := httptest.NewRecorder()

		handler.QueryEntities(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown entity kind", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/mainnet-nft/entities/widgets", nil)
		req.SetPathValue("name", "mainnet-nft")
		req.SetPathValue("kind", "widgets")
		w := httptest.NewRecorder()

		handler.QueryEntities(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Contains(t, response.Message, "widgets")
	})

	t.Run("invalid query params", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/mainnet-nft/entities/tokens?limit=-5", nil)
		req.SetPathValue("name", "mainnet-nft")
		req.SetPathValue("kind", "tokens")
		w := httptest.NewRecorder()

		handler.QueryEntities(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non queryable indexer", func(t *testing.T) {
		t.Parallel()

		h := newTestHandler(&plainIndexer{name: "raw"})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/raw/entities/tokens", nil)
		req.SetPathValue("name", "raw")
		req.SetPathValue("kind", "tokens")
		w := httptest.NewRecorder()

		h.QueryEntities(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("query failure on known kind", func(t *testing.T) {
		t.Parallel()

		failing := &stubQueryable{
			name:  "broken",
			kinds: []string{"tokens"},
			queryFn: func(string, *indexer.QueryParams) (*indexer.QueryResult, error) {
				return nil, fmt.Errorf("db is gone")
			},
		}
		h := newTestHandler(failing)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/broken/entities/tokens", nil)
		req.SetPathValue("name", "broken")
		req.SetPathValue("kind", "tokens")
		w := httptest.NewRecorder()

		h.QueryEntities(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_GetEntity(t *testing.T) {
	t.Parallel()

	type token struct {
		Key string `json:"id"`
	}

	queryable := &stubQueryable{
		name:  "mainnet-nft",
		kinds: []string{"tokens"},
		getFn: func(kind, key string) (any, error) {
			if kind != "tokens" {
				return nil, fmt.Errorf("unknown entity kind: %s", kind)
			}
			if key == "0xabc_1" {
				return &token{Key: key}, nil
			}
			return (*token)(nil), nil
		},
	}
	handler := newTestHandler(queryable)

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/mainnet-nft/entities/tokens/0xabc_1", nil)
		req.SetPathValue("name", "mainnet-nft")
		req.SetPathValue("kind", "tokens")
		req.SetPathValue("key", "0xabc_1")
		w := httptest.NewRecorder()

		handler.GetEntity(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var got token
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Equal(t, "0xabc_1", got.Key)
	})

	t.Run("absent entity returns 404", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/mainnet-nft/entities/tokens/0xabc_999", nil)
		req.SetPathValue("name", "mainnet-nft")
		req.SetPathValue("kind", "tokens")
		req.SetPathValue("key", "0xabc_999")
		w := httptest.NewRecorder()

		handler.GetEntity(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown kind returns 404", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/mainnet-nft/entities/widgets/some-key", nil)
		req.SetPathValue("name", "mainnet-nft")
		req.SetPathValue("kind", "widgets")
		req.SetPathValue("key", "some-key")
		w := httptest.NewRecorder()

		handler.GetEntity(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_GetStats(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		queryable := &stubQueryable{
			name: "mainnet-nft",
			statsFn: func() (*indexer.StatsResponse, error) {
				return &indexer.StatsResponse{
					EntityCounts: map[string]int64{"tokens": 42, "contracts": 2},
					LatestBlock:  12345,
				}, nil
			},
		}
		handler := newTestHandler(queryable)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/mainnet-nft/stats", nil)
		req.SetPathValue("name", "mainnet-nft")
		w := httptest.NewRecorder()

		handler.GetStats(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var stats indexer.StatsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		require.Equal(t, uint64(12345), stats.LatestBlock)
		require.Equal(t, int64(42), stats.EntityCounts["tokens"])
	})

	t.Run("stats failure", func(t *testing.T) {
		t.Parallel()

		queryable := &stubQueryable{
			name: "broken",
			statsFn: func() (*indexer.StatsResponse, error) {
				return nil, fmt.Errorf("db is gone")
			},
		}
		handler := newTestHandler(queryable)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/indexers/broken/stats", nil)
		req.SetPathValue("name", "broken")
		w := httptest.NewRecorder()

		handler.GetStats(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	healthy := &stubQueryable{
		name:    "mainnet-nft",
		idxType: "nft",
		statsFn: func() (*indexer.StatsResponse, error) {
			return &indexer.StatsResponse{
				EntityCounts: map[string]int64{"tokens": 40, "contracts": 2},
				LatestBlock:  999,
			}, nil
		},
	}
	broken := &stubQueryable{
		name:    "broken-nft",
		idxType: "nft",
		statsFn: func() (*indexer.StatsResponse, error) {
			return nil, fmt.Errorf("db is gone")
		},
	}
	handler := newTestHandler(healthy, broken)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.Health(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	require.Equal(t, "ok", response.Status)
	require.Len(t, response.Indexers, 2)

	require.Equal(t, "mainnet-nft", response.Indexers[0].Name)
	require.True(t, response.Indexers[0].Healthy)
	require.Equal(t, uint64(999), response.Indexers[0].LatestBlock)
	require.Equal(t, int64(42), response.Indexers[0].EntityCount)

	require.Equal(t, "broken-nft", response.Indexers[1].Name)
	require.False(t, response.Indexers[1].Healthy)
}
