package downloader

import (
	"database/sql"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/NFTIndexor/internal/db"
	"github.com/goran-ethernal/NFTIndexor/internal/downloader/migrations"
	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	"github.com/goran-ethernal/NFTIndexor/pkg/fetcher"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	tmpDB := t.TempDir() + "/test_downloader.db"

	err := migrations.RunMigrations(tmpDB)
	require.NoError(t, err)

	database, err := db.NewSQLiteDB(tmpDB)
	require.NoError(t, err)

	t.Cleanup(func() { database.Close() })

	return database
}

func TestSyncManager(t *testing.T) {
	database := setupTestDB(t)

	log, err := logger.NewLogger("error", true)
	require.NoError(t, err)

	sm, err := NewSyncManager(database, log)
	require.NoError(t, err)

	// Initial state comes from the migration seed row.
	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(0), state.LastIndexedBlock)
	require.Equal(t, fetcher.ModeBackfill, state.GetMode())

	// Save a checkpoint and read it back.
	blockHash := common.HexToHash("0xdeadbeef")
	require.NoError(t, sm.SaveCheckpoint(1234, blockHash, fetcher.ModeBackfill))

	state, err = sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(1234), state.LastIndexedBlock)
	require.Equal(t, blockHash, state.LastIndexedBlockHash)
	require.NotZero(t, state.LastIndexedTimestamp)

	lastBlock, err := sm.GetLastIndexedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(1234), lastBlock)

	// Mode changes preserve the rest of the state.
	require.NoError(t, sm.SetMode(fetcher.ModeLive))

	state, err = sm.GetState()
	require.NoError(t, err)
	require.Equal(t, fetcher.ModeLive, state.GetMode())
	require.Equal(t, uint64(1234), state.LastIndexedBlock)

	// Reset goes back to backfill at the given block.
	require.NoError(t, sm.Reset(1000))

	state, err = sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(1000), state.LastIndexedBlock)
	require.Equal(t, fetcher.ModeBackfill, state.GetMode())
	require.Equal(t, common.Hash{}, state.LastIndexedBlockHash)
}
