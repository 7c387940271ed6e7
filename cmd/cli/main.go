package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/txn-features/internal/config"
	"github.com/dvloznov/txn-features/internal/dollarband"
	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/features"
	"github.com/dvloznov/txn-features/internal/gcs"
	infraBQ "github.com/dvloznov/txn-features/internal/infra/bigquery"
	"github.com/dvloznov/txn-features/internal/logger"
	"github.com/dvloznov/txn-features/internal/tableio"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log = logger.NewWithLevel(cfg.LogLevel)

	switch os.Args[1] {
	case "featurize":
		runFeaturize(log, cfg)
	case "band":
		runBand(log)
	case "init-table":
		runInitTable(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Transaction Features CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  featurize  Build the per-user feature table from a transaction log")
	fmt.Println("  band       Map an amount to its dollar band, or a band to its midpoint")
	fmt.Println("  init-table Create the BigQuery feature table if it does not exist")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nLocations are '-' (stdin/stdout), a file path, gs://bucket/object or bq://[project.]dataset.table.")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runFeaturize(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("featurize", flag.ExitOnError)
	input := fs.String("input", "-", "Transaction table location")
	output := fs.String("output", cfg.DefaultOutput(), "Feature table location")
	firstN := fs.Int("first-n", cfg.FirstNTxn, "Size of the early trend window")
	lastN := fs.Int("last-n", cfg.LastNTxn, "Size of the recent trend window")
	trend := fs.Bool("trend", false, "Add the first-vs-last trend columns")
	layout := fs.String("layout", cfg.TimeLayout, "Go time layout of created_date in CSV input")
	onBadRow := fs.String("on-bad-row", string(cfg.ParsePolicy), "abort or skip rows that cannot be parsed")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall deadline")
	fs.Parse(os.Args[2:])

	policy, err := domain.ParseBadRowPolicy(*onBadRow)
	if err != nil {
		log.Fatal().Err(err).Msg("Error: invalid --on-bad-row")
	}

	log = logger.WithFields(log, map[string]interface{}{
		"command": "featurize",
		"trend":   *trend,
	})
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	endpoints := &tableio.Endpoints{
		Options: tableio.Options{
			TimeLayout:     *layout,
			BadRows:        policy,
			DefaultProject: cfg.GCPProject,
		},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}

	if uses(tableio.KindGCS, *input, *output) {
		store, err := gcs.NewStore(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer store.Close()
		endpoints.Objects = store
	}
	if uses(tableio.KindBigQuery, *input, *output) {
		if cfg.GCPProject == "" {
			log.Fatal().Msg("Error: GCP_PROJECT is required for bq:// locations")
		}
		repo, err := infraBQ.NewRepository(ctx, cfg.GCPProject)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		endpoints.Warehouse = repo
	}

	log.Info().Str("input", *input).Str("output", *output).Msg("Starting feature build")

	txs, err := endpoints.Load(ctx, *input)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}

	ft, err := features.Build(ctx, features.NewTable(txs), features.Config{
		FirstNTxn:    *firstN,
		LastNTxn:     *lastN,
		IncludeTrend: *trend,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Feature build failed")
	}

	if err := endpoints.Save(ctx, *output, ft); err != nil {
		log.Fatal().Err(err).Msg("Failed to write features")
	}

	log.Info().Int("users", ft.Len()).Str("output", *output).Msg("Feature build completed")
}

func uses(kind tableio.Kind, locations ...string) bool {
	for _, l := range locations {
		if tableio.KindOf(l) == kind {
			return true
		}
	}
	return false
}

func runInitTable(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("init-table", flag.ExitOnError)
	project := fs.String("project", cfg.GCPProject, "GCP project ID")
	dataset := fs.String("dataset", cfg.FeaturesDataset, "BigQuery dataset ID")
	table := fs.String("table", cfg.FeaturesTable, "BigQuery table ID")
	fs.Parse(os.Args[2:])

	if *project == "" {
		log.Fatal().Msg("Error: --project (or GCP_PROJECT) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewRepository(ctx, *project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	ref := infraBQ.TableRef{ProjectID: *project, DatasetID: *dataset, TableID: *table}
	if err := repo.EnsureFeatures(ctx, ref); err != nil {
		log.Fatal().Err(err).Msg("Failed to create feature table")
	}

	fmt.Printf("Feature table %s is ready.\n", ref)
}

func runBand(log zerolog.Logger) {
	fs := flag.NewFlagSet("band", flag.ExitOnError)
	amount := fs.String("amount", "", "USD amount to place in a band")
	label := fs.String("label", "", "Band label to convert to its midpoint")
	list := fs.Bool("list", false, "Print every band label")
	fs.Parse(os.Args[2:])

	bands := dollarband.Default()

	switch {
	case *list:
		for i := 0; i < bands.Len(); i++ {
			fmt.Println(bands.At(i).Label())
		}
		fmt.Println(bands.OverflowLabel())

	case *amount != "":
		d, err := decimal.NewFromString(*amount)
		if err != nil {
			log.Fatal().Err(err).Str("amount", *amount).Msg("Error: invalid --amount")
		}
		b, err := bands.Bucket(d)
		if err != nil {
			log.Fatal().Err(err).Msg("Bucketing failed")
		}
		fmt.Println(b)

	case *label != "":
		mid, err := dollarband.Midpoint(*label)
		if err != nil {
			log.Fatal().Err(err).Msg("Midpoint failed")
		}
		fmt.Println(mid.String())

	default:
		log.Fatal().Msg("Usage: cli band -amount N | -label LO-HI | -list")
	}
}
