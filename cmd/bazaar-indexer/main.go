package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	// Register the marketplace indexer
	_ "github.com/BuidlGuidl/ethereum-bazaar/internal/bazaar"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/config"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/db"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/downloader"
	dlmigrations "github.com/BuidlGuidl/ethereum-bazaar/internal/downloader/migrations"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/metrics"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/rpc"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/api"
	pkgconfig "github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/indexer"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║        Ethereum Bazaar Indexer v%s     ║
║   Marketplace listings, sales & reviews   ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bazaar-indexer",
	Short: "Ethereum Bazaar indexer",
	Long: `bazaar-indexer follows the marketplace contracts on chain, keeps a queryable
record of listings, purchases and reviews, and serves it over a REST API.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runIndexer,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available indexer types",
	Long:  `List all registered indexer types that can be used in the configuration file.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available indexer types:")
		types := indexer.ListRegistered()
		if len(types) == 0 {
			fmt.Println("  (no indexers registered)")
			return
		}
		for _, t := range types {
			fmt.Printf("  - %s\n", t)
		}
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &jsonschema.Reflector{FieldNameTag: "json"}
		out, err := json.MarshalIndent(r.Reflect(&pkgconfig.Config{}), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(schemaCmd)
}

// readSource is an indexer whose record store backs the API.
type readSource interface {
	Store() *store.Store
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := cfg.Logging.GetDefaultLevel()
	if level == "" {
		level = "info"
	}
	root, err := logger.NewLogger(level, cfg.Logging.IsDevelopment())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer root.Close()
	logger.SetDefaultLogger(root)

	log := root.WithFields("service", "bazaar-indexer")
	componentLog := func(component string) *logger.Logger {
		return logger.NewComponentLoggerFromConfig(component, cfg.Logging)
	}

	log.Info("Connecting to Ethereum node...")
	ethClient, err := rpc.NewClient(ctx, cfg.Downloader.RPCURL, cfg.Downloader.Retry, cfg.Downloader.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer ethClient.Close()

	if cfg.Downloader.ChainID != 0 {
		chainID, err := ethClient.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("failed to read chain id: %w", err)
		}
		if chainID.Uint64() != cfg.Downloader.ChainID {
			return fmt.Errorf("node reports chain id %s, configuration expects %d", chainID, cfg.Downloader.ChainID)
		}
	}
	log.Infof("Connected to Ethereum node (chain id %d)", cfg.Downloader.ChainID)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, componentLog(common.ComponentMetrics))
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)
	}

	log.Info("Opening checkpoint database...")
	database, err := db.NewSQLiteDBFromConfig(cfg.Downloader.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if err := dlmigrations.RunMigrations(root, database); err != nil {
		database.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	dbMaintenance := db.NewMaintenanceCoordinator(
		common.ComponentDownloader,
		cfg.Downloader.DB.Path,
		database,
		cfg.Downloader.Maintenance,
		root,
	)
	if err := dbMaintenance.Start(ctx); err != nil {
		database.Close()
		return fmt.Errorf("failed to start maintenance: %w", err)
	}

	syncManager := downloader.NewSyncManager(database, root, dbMaintenance)

	dl, err := downloader.New(cfg.Downloader, ethClient, syncManager, root)
	if err != nil {
		syncManager.Close()
		return fmt.Errorf("failed to create downloader: %w", err)
	}
	defer func() {
		if err := dl.Close(); err != nil {
			log.Warnf("Failed to close downloader: %v", err)
		}
	}()

	log.Infof("Registering %d indexer(s)...", len(cfg.Indexers))
	if len(cfg.Indexers) == 0 {
		log.Warn("No indexers configured. Exiting.")
		return nil
	}

	deps := indexer.Deps{Caller: ethClient, Config: cfg}
	var reader *store.Store
	for _, idxCfg := range cfg.Indexers {
		log.Infof("Creating indexer: %s (type: %s)", idxCfg.Name, idxCfg.Type)

		idx, err := indexer.Create(idxCfg.Type, idxCfg, deps, root)
		if err != nil {
			return fmt.Errorf("failed to create indexer %s: %w", idxCfg.Name, err)
		}
		dl.RegisterIndexer(idx)

		if src, ok := idx.(readSource); ok && reader == nil {
			reader = src.Store()
			log.Infof("API serves the records of indexer %s", idxCfg.Name)
		}
		log.Infof("Registered indexer: %s", idxCfg.Name)
	}

	if cfg.API != nil && cfg.API.Enabled {
		if reader == nil {
			return errors.New("api is enabled but no configured indexer exposes a record store")
		}
		apiServer := api.NewServer(cfg.API, reader, syncManager, componentLog(common.ComponentAPI))
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				log.Errorf("API server error: %v", err)
			}
		}()
	}

	log.Info("Starting Ethereum Bazaar indexer...")

	if err := dl.Download(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("downloader failed: %w", err)
	}

	log.Info("Ethereum Bazaar indexer stopped")
	return nil
}
