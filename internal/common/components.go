package common

const (
	ComponentDownloader      = "downloader"
	ComponentLogFetcher      = "log-fetcher"
	ComponentSyncManager     = "sync-manager"
	ComponentMaintenance     = "maintenance"
	ComponentIndexer         = "indexer"
	ComponentReconciler      = "reconciler"
	ComponentChainReader     = "chain-reader"
	ComponentContentResolver = "content-resolver"
	ComponentStore           = "store"
	ComponentAPI             = "api"
	ComponentMetrics         = "metrics"
)

var AllComponents = map[string]struct{}{
	ComponentDownloader:      {},
	ComponentLogFetcher:      {},
	ComponentSyncManager:     {},
	ComponentMaintenance:     {},
	ComponentIndexer:         {},
	ComponentReconciler:      {},
	ComponentChainReader:     {},
	ComponentContentResolver: {},
	ComponentStore:           {},
	ComponentAPI:             {},
	ComponentMetrics:         {},
}

// Contract names used to key event dispatch and configuration.
const (
	ContractMarketplace    = "Marketplace"
	ContractSimpleListings = "SimpleListings"
	ContractEAS            = "EAS"
)

// KnownContracts lists the contract names an indexer can be configured with.
var KnownContracts = []string{ContractMarketplace, ContractSimpleListings, ContractEAS}
