package indexer

const defaultPageLimit = 50

// MaxPageLimit is the largest page size the API will serve.
const MaxPageLimit = 1000

// QueryParams represents common query parameters for entity retrieval.
type QueryParams struct {
	// Pagination
	Limit  int
	Offset int

	// Contract filters entities belonging to a specific contract address.
	Contract string

	// Owner filters entities by current owner address.
	Owner string

	// Sorting
	SortBy    string
	SortOrder string // "asc" or "desc"
}

func NewDefaultQueryParams() *QueryParams {
	return &QueryParams{
		Limit:     defaultPageLimit,
		Offset:    0,
		SortOrder: "desc",
	}
}

// Normalize clamps pagination values to sane bounds.
func (p *QueryParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.SortOrder != "asc" {
		p.SortOrder = "desc"
	}
}

// QueryResult is a single page of entities.
// @Description A paginated list of entities
type QueryResult struct {
	Items  any   `json:"items"`
	Total  int64 `json:"total" example:"1500"`
	Limit  int   `json:"limit" example:"50"`
	Offset int   `json:"offset" example:"0"`
}

// StatsResponse represents indexer statistics.
// @Description Statistics and status information for an indexer
type StatsResponse struct {
	EntityCounts map[string]int64 `json:"entity_counts"`
	LatestBlock  uint64           `json:"latest_block" example:"19500000"`
}
