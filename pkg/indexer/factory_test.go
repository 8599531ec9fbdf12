package indexer

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	"github.com/goran-ethernal/NFTIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

// mockIndexerForFactory is a simple mock indexer for testing factory registration
type mockIndexerForFactory struct {
	name string
	typ  string
}

func (m *mockIndexerForFactory) Name() string                      { return m.name }
func (m *mockIndexerForFactory) Type() string                      { return m.typ }
func (m *mockIndexerForFactory) StartBlock() uint64                { return 0 }
func (m *mockIndexerForFactory) HandleLogs(logs []types.Log) error { return nil }
func (m *mockIndexerForFactory) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	return make(map[common.Address]map[common.Hash]struct{})
}
func (m *mockIndexerForFactory) Close() error { return nil }

// resetRegistry clears the factory registry for testing
func resetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Factory)
}

func TestRegister(t *testing.T) {
	// Cannot use t.Parallel() because it modifies the global registry
	resetRegistry()
	defer resetRegistry()

	Register("Test-Indexer", func(cfg config.IndexerConfig, log *logger.Logger) (Indexer, error) {
		return &mockIndexerForFactory{name: cfg.Name, typ: "test-indexer"}, nil
	})

	// Lookup is case-insensitive.
	require.NotNil(t, GetFactory("test-indexer"))
	require.NotNil(t, GetFactory("TEST-INDEXER"))
	require.Nil(t, GetFactory("unknown"))

	require.Equal(t, []string{"test-indexer"}, ListRegistered())
}

func TestCreate(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	Register("test-indexer", func(cfg config.IndexerConfig, log *logger.Logger) (Indexer, error) {
		return &mockIndexerForFactory{name: cfg.Name, typ: "test-indexer"}, nil
	})
	Register("broken", func(cfg config.IndexerConfig, log *logger.Logger) (Indexer, error) {
		return nil, errors.New("bad config")
	})

	idx, err := Create("test-indexer", config.IndexerConfig{Name: "my-indexer"}, logger.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, "my-indexer", idx.Name())
	require.Equal(t, "test-indexer", idx.Type())

	_, err = Create("broken", config.IndexerConfig{}, logger.NewNopLogger())
	require.Error(t, err)

	_, err = Create("missing", config.IndexerConfig{}, logger.NewNopLogger())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown indexer type")
}
