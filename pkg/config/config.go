package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/types"
	gethcommon "github.com/ethereum/go-ethereum/common"
)

// DefaultIndexerType is the indexer type used when an indexer entry omits one.
const DefaultIndexerType = "bazaar"

// DefaultFallbackGateways are tried after the preferred gateway, in order.
var DefaultFallbackGateways = []string{
	"https://ipfs.io/ipfs/",
	"https://cloudflare-ipfs.com/ipfs/",
	"https://w3s.link/ipfs/",
	"https://nftstorage.link/ipfs/",
}

// Config represents the complete configuration for the bazaar indexer.
type Config struct {
	// Downloader contains the log download pipeline configuration
	Downloader DownloaderConfig `yaml:"downloader" json:"downloader" toml:"downloader"`

	// Indexers contains the configuration for all indexers
	Indexers []IndexerConfig `yaml:"indexers" json:"indexers" toml:"indexers"`

	// Reviews configures which EAS attestations are treated as marketplace reviews
	Reviews ReviewsConfig `yaml:"reviews" json:"reviews" toml:"reviews"`

	// IPFS configures metadata resolution through public gateways
	IPFS IPFSConfig `yaml:"ipfs" json:"ipfs" toml:"ipfs"`

	// Cache configures the optional Redis cache for fetched metadata documents
	Cache *CacheConfig `yaml:"cache,omitempty" json:"cache,omitempty" toml:"cache,omitempty"`

	// ChainReader configures read-only contract calls
	ChainReader ChainReaderConfig `yaml:"chain_reader" json:"chain_reader" toml:"chain_reader"`

	// API contains the REST API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// DownloaderConfig represents the configuration for the downloader.
type DownloaderConfig struct {
	// RPCURL is the Ethereum RPC endpoint URL
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// ChainID selects the PONDER_RPC_URL_<chain_id> environment override
	ChainID uint64 `yaml:"chain_id" json:"chain_id" toml:"chain_id"`

	// ChunkSize is the block range per eth_getLogs call
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" toml:"chunk_size"`

	// Finality specifies the finality mode: "finalized", "safe", or "latest"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// FinalizedLag is the number of blocks behind head to consider finalized
	// Only used when Finality is set to "latest"
	FinalizedLag uint64 `yaml:"finalized_lag" json:"finalized_lag" toml:"finalized_lag"`

	// PollInterval is how long live mode waits before asking for new blocks
	PollInterval common.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// RateLimit caps outbound RPC requests
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty" toml:"rate_limit,omitempty"`

	// DB contains database configuration for the downloader
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`
}

// ApplyDefaults sets default values for optional downloader configuration fields.
func (d *DownloaderConfig) ApplyDefaults() {
	if d.ChunkSize == 0 {
		d.ChunkSize = 5000
	}
	if d.Finality == "" {
		d.Finality = types.FinalityFinalized.String()
	}
	if d.PollInterval.Duration == 0 {
		d.PollInterval = common.NewDuration(12 * time.Second) //nolint:mnd
	}

	if d.Maintenance != nil {
		d.Maintenance.ApplyDefaults()
	}

	if d.Retry != nil {
		d.Retry.ApplyDefaults()
	}

	if d.RateLimit != nil {
		d.RateLimit.ApplyDefaults()
	}

	d.DB.ApplyDefaults()
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// Validate checks if the retry configuration is valid.
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if r.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1")
	}
	if r.MaxBackoff.Duration < r.InitialBackoff.Duration {
		return fmt.Errorf("max_backoff must not be smaller than initial_backoff")
	}
	return nil
}

// RateLimitConfig limits the rate of outbound RPC requests.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" toml:"requests_per_second"`

	// Burst is the maximum number of requests allowed at once
	Burst int `yaml:"burst" json:"burst" toml:"burst"`
}

// ApplyDefaults sets default values for rate limiting.
func (r *RateLimitConfig) ApplyDefaults() {
	if r.RequestsPerSecond == 0 {
		r.RequestsPerSecond = 25
	}
	if r.Burst == 0 {
		r.Burst = 10
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks the database settings.
func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("path is required")
	}
	if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}
	if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}
	return nil
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval common.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = common.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// IndexerConfig represents the configuration for a single indexer.
type IndexerConfig struct {
	// Name is a unique identifier for this indexer
	Name string `yaml:"name" json:"name" toml:"name"`

	// Type selects the registered indexer implementation (default "bazaar")
	Type string `yaml:"type" json:"type" toml:"type"`

	// StartBlock is the block number to start indexing from
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// DB contains database configuration for the indexer
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Maintenance contains optional maintenance settings for the indexer database
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Contracts contains the list of contracts to index
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`
}

// ApplyDefaults sets default values for optional indexer configuration fields.
func (i *IndexerConfig) ApplyDefaults() {
	if i.Type == "" {
		i.Type = DefaultIndexerType
	}
	if i.Maintenance != nil {
		i.Maintenance.ApplyDefaults()
	}
	i.DB.ApplyDefaults()
}

// Contract returns the contract configured under name.
func (i *IndexerConfig) Contract(name string) (ContractConfig, bool) {
	for _, c := range i.Contracts {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ContractConfig{}, false
}

// ContractConfig represents a contract and its events to index.
type ContractConfig struct {
	// Name is the logical contract name: Marketplace, SimpleListings or EAS
	Name string `yaml:"name" json:"name" toml:"name"`

	// Address is the contract address to monitor
	Address string `yaml:"address" json:"address" toml:"address"`

	// Events optionally restricts indexing to these event names (all known events when empty)
	Events []string `yaml:"events,omitempty" json:"events,omitempty" toml:"events,omitempty"`
}

// ReviewsConfig selects the EAS schema whose attestations are reviews.
type ReviewsConfig struct {
	// SchemaUID is the 32 byte EAS schema uid. When empty, attestations are ignored.
	SchemaUID string `yaml:"schema_uid" json:"schema_uid" toml:"schema_uid"`
}

// Enabled reports whether a review schema is configured.
func (r *ReviewsConfig) Enabled() bool {
	return strings.TrimSpace(r.SchemaUID) != ""
}

// Schema returns the configured schema uid as a hash.
func (r *ReviewsConfig) Schema() gethcommon.Hash {
	return gethcommon.HexToHash(strings.TrimSpace(r.SchemaUID))
}

// Validate checks the schema uid format.
func (r *ReviewsConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	uid := strings.TrimPrefix(strings.TrimSpace(r.SchemaUID), "0x")
	if len(uid) != 64 { //nolint:mnd
		return fmt.Errorf("schema_uid must be a 32 byte hex string")
	}
	return nil
}

// IPFSConfig configures the metadata content resolver.
type IPFSConfig struct {
	// PreferredGateway is tried first for every document
	PreferredGateway string `yaml:"preferred_gateway" json:"preferred_gateway" toml:"preferred_gateway"`

	// FallbackGateways are tried after the preferred gateway, in order
	FallbackGateways []string `yaml:"fallback_gateways" json:"fallback_gateways" toml:"fallback_gateways"`

	// RequestTimeout bounds every single gateway request
	RequestTimeout common.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// Passes is how many times the full gateway list is tried
	Passes int `yaml:"passes" json:"passes" toml:"passes"`

	// MaxDocumentBytes caps the size of a metadata document
	MaxDocumentBytes int64 `yaml:"max_document_bytes" json:"max_document_bytes" toml:"max_document_bytes"`

	// CircuitBreaker trips a gateway after repeated failures
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker,omitempty" json:"circuit_breaker,omitempty" toml:"circuit_breaker,omitempty"`
}

// ApplyDefaults sets default values for IPFS resolution.
func (i *IPFSConfig) ApplyDefaults() {
	if i.PreferredGateway == "" {
		i.PreferredGateway = DefaultFallbackGateways[0]
	}
	if len(i.FallbackGateways) == 0 {
		i.FallbackGateways = slices.Clone(DefaultFallbackGateways)
	}
	i.PreferredGateway = withTrailingSlash(i.PreferredGateway)
	gateways := make([]string, len(i.FallbackGateways))
	for n, gw := range i.FallbackGateways {
		gateways[n] = withTrailingSlash(gw)
	}
	i.FallbackGateways = gateways
	if i.RequestTimeout.Duration == 0 {
		i.RequestTimeout = common.NewDuration(2 * time.Second) //nolint:mnd
	}
	if i.Passes == 0 {
		i.Passes = 3
	}
	if i.MaxDocumentBytes == 0 {
		i.MaxDocumentBytes = 1 << 20
	}
	if i.CircuitBreaker != nil {
		i.CircuitBreaker.ApplyDefaults()
	}
}

// Gateways returns the preferred gateway followed by the fallbacks, without duplicates.
func (i *IPFSConfig) Gateways() []string {
	out := make([]string, 0, len(i.FallbackGateways)+1)
	seen := make(map[string]struct{})
	for _, gw := range append([]string{i.PreferredGateway}, i.FallbackGateways...) {
		if gw == "" {
			continue
		}
		if _, ok := seen[gw]; ok {
			continue
		}
		seen[gw] = struct{}{}
		out = append(out, gw)
	}
	return out
}

// Validate checks that every gateway is an absolute http(s) URL.
func (i *IPFSConfig) Validate() error {
	for _, gw := range i.Gateways() {
		u, err := url.Parse(gw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("gateway %q must be an absolute http(s) URL", gw)
		}
	}
	if i.Passes < 1 {
		return fmt.Errorf("passes must be at least 1")
	}
	if i.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	return nil
}

func withTrailingSlash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// CircuitBreakerConfig configures a per gateway circuit breaker.
type CircuitBreakerConfig struct {
	// MaxRequests allowed through while half-open
	MaxRequests uint32 `yaml:"max_requests" json:"max_requests" toml:"max_requests"`

	// Interval is the cyclic period for clearing failure counts while closed
	Interval common.Duration `yaml:"interval" json:"interval" toml:"interval"`

	// Timeout is how long the breaker stays open before probing again
	Timeout common.Duration `yaml:"timeout" json:"timeout" toml:"timeout"`

	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold uint32 `yaml:"failure_threshold" json:"failure_threshold" toml:"failure_threshold"`
}

// ApplyDefaults sets default values for the circuit breaker.
func (c *CircuitBreakerConfig) ApplyDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval.Duration == 0 {
		c.Interval = common.NewDuration(60 * time.Second) //nolint:mnd
	}
	if c.Timeout.Duration == 0 {
		c.Timeout = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
}

// CacheConfig configures the Redis document cache.
type CacheConfig struct {
	// Enabled turns the cache on
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// RedisURL is a redis:// connection URL
	RedisURL string `yaml:"redis_url" json:"redis_url" toml:"redis_url"`

	// TTL for cached documents, 0 keeps them forever (content addressed documents never change)
	TTL common.Duration `yaml:"ttl" json:"ttl" toml:"ttl"`

	// KeyPrefix namespaces the cache keys
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" toml:"key_prefix"`
}

// ApplyDefaults sets default values for the cache.
func (c *CacheConfig) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "bazaar:ipfs:"
	}
}

// Validate checks the cache configuration.
func (c *CacheConfig) Validate() error {
	if c.Enabled && c.RedisURL == "" {
		return fmt.Errorf("redis_url is required when the cache is enabled")
	}
	return nil
}

// ChainReaderConfig configures read-only contract calls.
type ChainReaderConfig struct {
	// CallTimeout bounds a single eth_call
	CallTimeout common.Duration `yaml:"call_timeout" json:"call_timeout" toml:"call_timeout"`
}

// ApplyDefaults sets default values for the chain reader.
func (c *ChainReaderConfig) ApplyDefaults() {
	if c.CallTimeout.Duration == 0 {
		c.CallTimeout = common.NewDuration(4 * time.Second) //nolint:mnd
	}
}

// APIConfig configures the read API server.
type APIConfig struct {
	// Enabled controls whether the API server runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout common.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout common.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout common.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS contains cross-origin settings
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin resource sharing.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for the API server.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = common.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = common.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = common.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components, see common.AllComponents
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if l == nil {
		return ""
	}
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	if l == nil {
		return ""
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l != nil && l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Downloader.ApplyDefaults()

	for i := range c.Indexers {
		c.Indexers[i].ApplyDefaults()
	}

	c.IPFS.ApplyDefaults()
	c.ChainReader.ApplyDefaults()

	if c.Cache != nil {
		c.Cache.ApplyDefaults()
	}
	if c.API != nil {
		c.API.ApplyDefaults()
	}
	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Downloader.RPCURL == "" {
		return fmt.Errorf("downloader.rpc_url is required")
	}

	if _, err := types.NewFinality(c.Downloader.Finality, c.Downloader.FinalizedLag); err != nil {
		return fmt.Errorf("downloader.finality: %w", err)
	}

	if err := c.Downloader.DB.Validate(); err != nil {
		return fmt.Errorf("downloader.db.%w", err)
	}

	if c.Downloader.Retry != nil {
		if err := c.Downloader.Retry.Validate(); err != nil {
			return fmt.Errorf("downloader.retry: %w", err)
		}
	}

	if c.Downloader.Maintenance != nil {
		if err := c.Downloader.Maintenance.Validate(); err != nil {
			return fmt.Errorf("downloader.maintenance: %w", err)
		}
	}

	if err := c.Reviews.Validate(); err != nil {
		return fmt.Errorf("reviews.%w", err)
	}

	if err := c.IPFS.Validate(); err != nil {
		return fmt.Errorf("ipfs: %w", err)
	}

	if c.Cache != nil {
		if err := c.Cache.Validate(); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return c.validateIndexers()
}

func (c *Config) validateIndexers() error {
	if len(c.Indexers) == 0 {
		return fmt.Errorf("at least one indexer must be configured")
	}

	indexerNames := make(map[string]bool)
	for i, indexer := range c.Indexers {
		if indexer.Name == "" {
			return fmt.Errorf("indexer[%d]: name is required", i)
		}

		if indexerNames[indexer.Name] {
			return fmt.Errorf("indexer[%d]: duplicate indexer name '%s'", i, indexer.Name)
		}
		indexerNames[indexer.Name] = true

		if err := indexer.DB.Validate(); err != nil {
			return fmt.Errorf("indexer[%d] (%s): db.%w", i, indexer.Name, err)
		}

		if indexer.DB.Path == c.Downloader.DB.Path {
			return fmt.Errorf("indexer[%d] (%s): db.path must differ from downloader.db.path", i, indexer.Name)
		}

		if len(indexer.Contracts) == 0 {
			return fmt.Errorf("indexer[%d] (%s): at least one contract must be configured", i, indexer.Name)
		}

		contractNames := make(map[string]bool)
		for j, contract := range indexer.Contracts {
			if !slices.ContainsFunc(common.KnownContracts, func(n string) bool {
				return strings.EqualFold(n, contract.Name)
			}) {
				return fmt.Errorf("indexer[%d] (%s), contract[%d]: name must be one of: %s",
					i, indexer.Name, j, strings.Join(common.KnownContracts, ", "))
			}

			if contractNames[strings.ToLower(contract.Name)] {
				return fmt.Errorf("indexer[%d] (%s), contract[%d]: duplicate contract '%s'", i, indexer.Name, j, contract.Name)
			}
			contractNames[strings.ToLower(contract.Name)] = true

			if contract.Address == "" {
				return fmt.Errorf("indexer[%d] (%s), contract[%d]: address is required", i, indexer.Name, j)
			}

			if !gethcommon.IsHexAddress(contract.Address) {
				return fmt.Errorf("indexer[%d] (%s), contract[%d]: invalid address '%s'", i, indexer.Name, j, contract.Address)
			}
		}
	}

	return nil
}
