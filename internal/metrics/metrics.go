package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	lastIndexedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nftindexor_last_indexed_block",
			Help: "The last block number successfully indexed",
		},
	)

	logsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nftindexor_logs_processed_total",
			Help: "Total number of logs routed to indexers",
		},
	)

	batchProcessingTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nftindexor_batch_processing_duration_seconds",
			Help:    "Time taken to process a batch of logs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"indexer"},
	)

	// Derived entity metrics
	tokensMinted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftindexor_tokens_minted_total",
			Help: "Total number of token mints derived",
		},
		[]string{"indexer"},
	)

	tokenTransfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftindexor_token_transfers_total",
			Help: "Total number of token transfers applied",
		},
		[]string{"indexer"},
	)

	ownershipTransfers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftindexor_ownership_transfers_total",
			Help: "Contract ownership transfer events by outcome (accepted or rejected)",
		},
		[]string{"indexer", "outcome"},
	)

	missingEntitySkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftindexor_missing_entity_skips_total",
			Help: "Events skipped because their target entity does not exist",
		},
		[]string{"indexer", "event"},
	)

	malformedEventSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftindexor_malformed_event_skips_total",
			Help: "Events skipped because their payload could not be decoded",
		},
		[]string{"indexer"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nftindexor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nftindexor_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nftindexor_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nftindexor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nftindexor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func LastIndexedBlockSet(blockNum float64) {
	lastIndexedBlock.Set(blockNum)
}

func LogsProcessedAdd(count float64) {
	logsProcessed.Add(count)
}

func BatchProcessingTimeLog(indexer string, duration time.Duration) {
	batchProcessingTime.WithLabelValues(indexer).Observe(duration.Seconds())
}

func TokensMintedInc(indexer string) {
	tokensMinted.WithLabelValues(indexer).Inc()
}

func TokenTransfersInc(indexer string) {
	tokenTransfers.WithLabelValues(indexer).Inc()
}

func OwnershipTransferAcceptedInc(indexer string) {
	ownershipTransfers.WithLabelValues(indexer, "accepted").Inc()
}

func OwnershipTransferRejectedInc(indexer string) {
	ownershipTransfers.WithLabelValues(indexer, "rejected").Inc()
}

func MissingEntitySkipInc(indexer string, event string) {
	missingEntitySkips.WithLabelValues(indexer, event).Inc()
}

func MalformedEventSkipInc(indexer string) {
	malformedEventSkips.WithLabelValues(indexer).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	// Update uptime
	Uptime.Set(time.Since(startTime).Seconds())

	// Update goroutine count
	Goroutines.Set(float64(runtime.NumGoroutine()))

	// Update memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
