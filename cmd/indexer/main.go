package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/goran-ethernal/NFTIndexor/internal/common"
	"github.com/goran-ethernal/NFTIndexor/internal/db"
	"github.com/goran-ethernal/NFTIndexor/internal/downloader"
	downloadermig "github.com/goran-ethernal/NFTIndexor/internal/downloader/migrations"
	// Import built-in indexers to register them
	_ "github.com/goran-ethernal/NFTIndexor/internal/indexers/nft"
	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	"github.com/goran-ethernal/NFTIndexor/internal/metrics"
	"github.com/goran-ethernal/NFTIndexor/internal/rpc"
	"github.com/goran-ethernal/NFTIndexor/pkg/api"
	"github.com/goran-ethernal/NFTIndexor/pkg/config"
	"github.com/goran-ethernal/NFTIndexor/pkg/indexer"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║          NFTIndexor v%s                ║
║    NFT Collection Indexing Service        ║
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
	Use:   "indexer",
	Short: "NFTIndexor - NFT collection indexing service",
	Long: `NFTIndexor streams NFT contract events from an Ethereum node and derives
token ownership, contract metadata, and minter activity into queryable
entities backed by SQLite.`,
	Version: version,
	RunE:    runIndexer,
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
	Short: "Print the configuration JSON schema",
	Long:  `Print a JSON schema describing the configuration file format, usable for editor validation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := jsonschema.Reflector{
			ExpandedStruct: true,
			FieldNameTag:   "yaml",
		}
		schema := reflector.Reflect(&config.Config{})

		encoded, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}

		fmt.Println(string(encoded))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	// Load configuration
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	// Initialize logger
	log := logger.NewComponentLoggerFromConfig(common.ComponentDownloader, cfg.Logging)

	// Initialize RPC client
	log.Info("Connecting to Ethereum node...")
	ethClient, err := rpc.NewClient(ctx, cfg.Downloader.RPCURL, cfg.Downloader.Retry)
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer ethClient.Close()
	log.Infof("Connected to Ethereum node: %s", cfg.Downloader.RPCURL)

	// Run downloader migrations
	log.Info("Running database migrations...")
	if err := downloadermig.RunMigrations(cfg.Downloader.DB.Path); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize database
	database, err := db.NewSQLiteDBFromConfig(cfg.Downloader.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	// Initialize sync manager
	syncManager, err := downloader.NewSyncManager(
		database,
		logger.NewComponentLoggerFromConfig(common.ComponentSyncManager, cfg.Logging),
	)
	if err != nil {
		return fmt.Errorf("failed to create sync manager: %w", err)
	}

	// Initialize downloader
	coordinator := indexer.NewIndexerCoordinator()
	dl, err := downloader.New(
		cfg.Downloader,
		ethClient,
		syncManager,
		coordinator,
		logger.NewComponentLoggerFromConfig(common.ComponentDownloader, cfg.Logging),
	)
	if err != nil {
		return fmt.Errorf("failed to create downloader: %w", err)
	}
	defer dl.Close()

	// Register indexers from configuration
	log.Infof("Registering %d indexer(s)...", len(cfg.Indexers))
	for i, idxCfg := range cfg.Indexers {
		if idxCfg.Type == "" {
			return fmt.Errorf("indexer #%d (%s) is missing 'type' field in configuration", i+1, idxCfg.Name)
		}

		log.Infof("Creating indexer: %s (type: %s)", idxCfg.Name, idxCfg.Type)

		idx, err := indexer.Create(
			idxCfg.Type,
			idxCfg,
			logger.NewComponentLoggerFromConfig(common.ComponentNFTIndexer, cfg.Logging),
		)
		if err != nil {
			return fmt.Errorf("failed to create indexer %s: %w", idxCfg.Name, err)
		}

		dl.RegisterIndexer(idx)
		log.Infof("✓ Registered indexer: %s", idxCfg.Name)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// Start metrics server if enabled
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics)
		if err := metricsServer.Start(groupCtx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		log.Infof("Metrics server started on %s%s", cfg.Metrics.ListenAddress, cfg.Metrics.Path)

		group.Go(func() error {
			<-groupCtx.Done()
			return metricsServer.Stop(context.Background())
		})
	}

	// Start API server if enabled
	if cfg.API != nil && cfg.API.Enabled {
		apiServer := api.NewServer(
			cfg.API,
			coordinator,
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging),
		)
		group.Go(func() error {
			return apiServer.Start(groupCtx)
		})
	}

	// Start indexing
	log.Info("Starting NFTIndexor...")
	group.Go(func() error {
		return dl.Download(groupCtx)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	log.Info("NFTIndexor stopped successfully")
	return nil
}
