package indexer

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// stubIndexer is a minimal Indexer implementation for coordinator tests.
type stubIndexer struct {
	name       string
	events     map[common.Address]map[common.Hash]struct{}
	startBlock uint64
	received   []types.Log
	handleErr  error
	closed     bool
}

func (s *stubIndexer) Name() string { return s.name }
func (s *stubIndexer) Type() string { return "stub" }
func (s *stubIndexer) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	return s.events
}
func (s *stubIndexer) HandleLogs(logs []types.Log) error {
	if s.handleErr != nil {
		return s.handleErr
	}
	s.received = append(s.received, logs...)
	return nil
}
func (s *stubIndexer) StartBlock() uint64 { return s.startBlock }
func (s *stubIndexer) Close() error {
	s.closed = true
	return nil
}

var (
	addrA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	topicTransfer = common.HexToHash("0x01")
	topicApproval = common.HexToHash("0x02")
)

func newStub(name string, startBlock uint64, addr common.Address, topics ...common.Hash) *stubIndexer {
	topicSet := make(map[common.Hash]struct{}, len(topics))
	for _, t := range topics {
		topicSet[t] = struct{}{}
	}

	return &stubIndexer{
		name:       name,
		startBlock: startBlock,
		events:     map[common.Address]map[common.Hash]struct{}{addr: topicSet},
	}
}

func TestIndexerCoordinator_RoutesByAddressAndTopic(t *testing.T) {
	ic := NewIndexerCoordinator()

	idxA := newStub("a", 0, addrA, topicTransfer)
	idxB := newStub("b", 0, addrB, topicTransfer, topicApproval)

	ic.RegisterIndexer(idxA)
	ic.RegisterIndexer(idxB)

	logs := []types.Log{
		{Address: addrA, Topics: []common.Hash{topicTransfer}, BlockNumber: 1},
		{Address: addrB, Topics: []common.Hash{topicTransfer}, BlockNumber: 2},
		{Address: addrB, Topics: []common.Hash{topicApproval}, BlockNumber: 3},
		// Wrong address for the topic, should not be delivered anywhere.
		{Address: addrA, Topics: []common.Hash{topicApproval}, BlockNumber: 4},
		// Anonymous log without topics is skipped.
		{Address: addrA, BlockNumber: 5},
	}

	require.NoError(t, ic.HandleLogs(logs))

	require.Len(t, idxA.received, 1)
	require.Equal(t, uint64(1), idxA.received[0].BlockNumber)

	require.Len(t, idxB.received, 2)
	require.Equal(t, uint64(2), idxB.received[0].BlockNumber)
	require.Equal(t, uint64(3), idxB.received[1].BlockNumber)
}

func TestIndexerCoordinator_HandleLogsError(t *testing.T) {
	ic := NewIndexerCoordinator()

	idx := newStub("failing", 0, addrA, topicTransfer)
	idx.handleErr = errors.New("db locked")
	ic.RegisterIndexer(idx)

	err := ic.HandleLogs([]types.Log{
		{Address: addrA, Topics: []common.Hash{topicTransfer}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing")
}

func TestIndexerCoordinator_Lookups(t *testing.T) {
	ic := NewIndexerCoordinator()

	idxA := newStub("a", 100, addrA, topicTransfer)
	idxB := newStub("b", 200, addrB, topicTransfer)

	ic.RegisterIndexer(idxA)
	ic.RegisterIndexer(idxB)

	require.Equal(t, idxA, ic.GetByName("a"))
	require.Nil(t, ic.GetByName("missing"))

	all := ic.ListAll()
	require.Len(t, all, 2)
	require.Equal(t, idxA, all[0])

	require.Equal(t, map[string]uint64{"a": 100, "b": 200}, ic.IndexerStartBlocks())
}

func TestIndexerCoordinator_Close(t *testing.T) {
	ic := NewIndexerCoordinator()

	idxA := newStub("a", 0, addrA, topicTransfer)
	idxB := newStub("b", 0, addrB, topicTransfer)

	ic.RegisterIndexer(idxA)
	ic.RegisterIndexer(idxB)

	require.NoError(t, ic.Close())
	require.True(t, idxA.closed)
	require.True(t, idxB.closed)
}
