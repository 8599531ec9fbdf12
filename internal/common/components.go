package common

const (
	ComponentDownloader  = "downloader"
	ComponentLogFetcher  = "log-fetcher"
	ComponentSyncManager = "sync-manager"
	ComponentNFTIndexer  = "nft-indexer"
	ComponentAPI         = "api"
	ComponentMetrics     = "metrics"
)

var AllComponents = map[string]struct{}{
	ComponentDownloader:  {},
	ComponentLogFetcher:  {},
	ComponentSyncManager: {},
	ComponentNFTIndexer:  {},
	ComponentAPI:         {},
	ComponentMetrics:     {},
}
