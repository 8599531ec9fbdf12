package nft

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/NFTIndexor/internal/common"
	"github.com/goran-ethernal/NFTIndexor/pkg/indexer"
	"github.com/russross/meddler"
)

// Entity kinds served over the API.
const (
	KindTokens       = "tokens"
	KindContracts    = "contracts"
	KindMinters      = "minters"
	KindTransactions = "transactions"
)

// entityKindSortColumns whitelists sortable columns per kind. The first
// entry is the default sort key.
var entityKindSortColumns = map[string][]string{
	KindTokens:       {"block_number", "token_key", "token_id", "id"},
	KindContracts:    {"block_number", "address", "max_supply", "id"},
	KindMinters:      {"last_mint_block", "minter_key", "mint_count", "id"},
	KindTransactions: {"block_number", "tx_key", "id"},
}

// EntityKinds returns the entity kinds this indexer serves.
func (n *NFTIndexer) EntityKinds() []string {
	return []string{KindTokens, KindContracts, KindMinters, KindTransactions}
}

// QueryEntities returns one page of entities of the given kind, with
// optional contract and owner filtering.
func (n *NFTIndexer) QueryEntities(kind string, params *indexer.QueryParams) (*indexer.QueryResult, error) {
	if params == nil {
		params = indexer.NewDefaultQueryParams()
	}
	params.Normalize()

	sortColumns, ok := entityKindSortColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind: %s (valid kinds: %s)",
			kind, strings.Join(n.EntityKinds(), ", "))
	}

	where, args := n.buildFilter(kind, params)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, kind, where)
	if err := n.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", kind, err)
	}

	sortBy := sortColumns[0]
	for _, col := range sortColumns {
		if params.SortBy == col {
			sortBy = col
			break
		}
	}

	order := "DESC"
	if params.SortOrder == "asc" {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT * FROM %s%s ORDER BY %s %s LIMIT ? OFFSET ?`,
		kind, where, sortBy, order)
	args = append(args, params.Limit, params.Offset)

	items, err := n.scanEntities(kind, query, args)
	if err != nil {
		return nil, err
	}

	return &indexer.QueryResult{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

// buildFilter translates the supported query parameters to a WHERE clause
// for the given kind.
func (n *NFTIndexer) buildFilter(kind string, params *indexer.QueryParams) (string, []any) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if params.Contract != "" {
		addr := common.HexToAddress(params.Contract).Hex()
		switch kind {
		case KindContracts:
			conditions = append(conditions, "address = ?")
		default:
			conditions = append(conditions, "contract_address = ?")
		}
		args = append(args, addr)
	}

	if params.Owner != "" {
		switch kind {
		case KindTokens:
			// Matches any address in the ownership history.
			conditions = append(conditions,
				"EXISTS (SELECT 1 FROM json_each(owners) WHERE json_each.value = ?)")
			args = append(args, icommon.ToLowerWithTrim(params.Owner))
		case KindContracts:
			conditions = append(conditions, "owner = ?")
			args = append(args, common.HexToAddress(params.Owner).Hex())
		case KindMinters:
			conditions = append(conditions, "minter = ?")
			args = append(args, common.HexToAddress(params.Owner).Hex())
		}
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanEntities runs the page query with the kind's concrete row type.
func (n *NFTIndexer) scanEntities(kind, query string, args []any) (any, error) {
	var err error

	switch kind {
	case KindTokens:
		items := make([]*Token, 0)
		err = meddler.QueryAll(n.db, &items, query, args...)
		return items, wrapScanErr(kind, err)
	case KindContracts:
		items := make([]*Contract, 0)
		err = meddler.QueryAll(n.db, &items, query, args...)
		return items, wrapScanErr(kind, err)
	case KindMinters:
		items := make([]*Minter, 0)
		err = meddler.QueryAll(n.db, &items, query, args...)
		return items, wrapScanErr(kind, err)
	case KindTransactions:
		items := make([]*Transaction, 0)
		err = meddler.QueryAll(n.db, &items, query, args...)
		return items, wrapScanErr(kind, err)
	}

	return nil, fmt.Errorf("unknown entity kind: %s", kind)
}

func wrapScanErr(kind string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", kind, err)
	}
	return nil
}

// GetEntity returns a single entity by its business key, or nil when absent.
func (n *NFTIndexer) GetEntity(kind, key string) (any, error) {
	s := newEntityStore(n.db)

	switch kind {
	case KindTokens:
		token, err := s.loadToken(key)
		if err != nil || token == nil {
			return nil, err
		}
		return token, nil
	case KindContracts:
		contract, err := s.loadContract(common.HexToAddress(key))
		if err != nil || contract == nil {
			return nil, err
		}
		return contract, nil
	case KindMinters:
		minter, err := s.loadMinter(key)
		if err != nil || minter == nil {
			return nil, err
		}
		return minter, nil
	case KindTransactions:
		var txn Transaction
		err := meddler.QueryRow(n.db, &txn, `SELECT * FROM transactions WHERE tx_key = ?`, key)
		if err != nil {
			if isNoRows(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to load transaction %s: %w", key, err)
		}
		return &txn, nil
	}

	return nil, fmt.Errorf("unknown entity kind: %s", kind)
}

// Stats returns per-kind entity counts and the highest block observed.
func (n *NFTIndexer) Stats() (*indexer.StatsResponse, error) {
	counts := make(map[string]int64, len(n.EntityKinds()))

	for _, kind := range n.EntityKinds() {
		var count int64
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, kind)
		if err := n.db.QueryRow(query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", kind, err)
		}
		counts[kind] = count
	}

	var latestBlock uint64
	err := n.db.QueryRow(`SELECT COALESCE(MAX(block_number), 0) FROM transactions`).Scan(&latestBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}

	return &indexer.StatsResponse{
		EntityCounts: counts,
		LatestBlock:  latestBlock,
	}, nil
}
