package nft

import (
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestContractLedger_BaseURIChanged(t *testing.T) {
	idx := newTestIndexer(t)
	seq := &logSeq{}

	event := seq.baseURIChanged(contract721, "ipfs://base/", 300)
	require.NoError(t, idx.HandleLogs([]types.Log{event}))

	contract := getContract(t, idx, contract721)
	require.Equal(t, "ipfs://base/", contract.BaseURI)
	require.Equal(t, uint64(300), contract.BlockNumber)
	require.Equal(t, transactionKey(event.TxHash, event.Index), contract.TxID)

	// Reveal state is untouched by base-URI changes.
	require.False(t, contract.IsRevealed)
	require.Empty(t, contract.RevealURL)
}

func TestContractLedger_RevealConvergence(t *testing.T) {
	idx := newTestIndexer(t)
	seq := &logSeq{}

	// The two standards expose reveal through different event shapes but
	// converge on the same fields.
	require.NoError(t, idx.HandleLogs([]types.Log{
		seq.revealed(contract721, 301),
		seq.uri(contract1155, "ipfs://revealed/meta.json", 1, 302),
	}))

	c721 := getContract(t, idx, contract721)
	require.True(t, c721.IsRevealed)
	require.Empty(t, c721.RevealURL) // Revealed sets the flag only

	c1155 := getContract(t, idx, contract1155)
	require.True(t, c1155.IsRevealed)
	require.Equal(t, "ipfs://revealed/meta.json", c1155.RevealURL)
}

func TestContractLedger_MissingContractIsNoOp(t *testing.T) {
	idx := newTestIndexer(t)
	seq := &logSeq{}

	_, err := idx.db.Exec(`DELETE FROM contracts WHERE address = ?`, contract721.Hex())
	require.NoError(t, err)

	// Neither event errors; both are absorbed as diagnostics.
	require.NoError(t, idx.HandleLogs([]types.Log{
		seq.baseURIChanged(contract721, "ipfs://base/", 300),
		seq.revealed(contract721, 301),
	}))

	entity, err := idx.GetEntity(KindContracts, contract721.Hex())
	require.NoError(t, err)
	require.Nil(t, entity)
}

func TestContractLedger_MetadataEventsGatedByStandard(t *testing.T) {
	idx := newTestIndexer(t)
	seq := &logSeq{}

	// Metadata events addressed to a contract of the wrong standard are
	// skipped even when handed to the indexer directly, without the
	// downloader's per-address topic filter in front.
	require.NoError(t, idx.HandleLogs([]types.Log{
		seq.uri(contract721, "ipfs://revealed/meta.json", 1, 300),
		seq.revealed(contract1155, 301),
		seq.baseURIChanged(contract1155, "ipfs://base/", 302),
	}))

	c721 := getContract(t, idx, contract721)
	require.False(t, c721.IsRevealed)
	require.Empty(t, c721.RevealURL)

	c1155 := getContract(t, idx, contract1155)
	require.False(t, c1155.IsRevealed)
	require.Empty(t, c1155.BaseURI)
}

func TestContractLedger_SequenceOfMutations(t *testing.T) {
	idx := newTestIndexer(t)
	seq := &logSeq{}

	require.NoError(t, idx.HandleLogs([]types.Log{
		seq.baseURIChanged(contract721, "ipfs://v1/", 300),
		seq.baseURIChanged(contract721, "ipfs://v2/", 301),
		seq.revealed(contract721, 302),
	}))

	contract := getContract(t, idx, contract721)
	require.Equal(t, "ipfs://v2/", contract.BaseURI)
	require.True(t, contract.IsRevealed)
	require.Equal(t, uint64(302), contract.BlockNumber)
}
