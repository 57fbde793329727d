package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/foodbank/services/donations/config"
	"example.com/foodbank/services/donations/internal/messaging"
	"example.com/foodbank/services/donations/internal/metrics"
	"example.com/foodbank/services/donations/internal/search"
	"example.com/foodbank/services/donations/internal/services"
	"example.com/foodbank/services/donations/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to process donation intake messages, reindex distributions and watch for expiring lots`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize database connection
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.DisabledTracer()
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize Azure Service Bus client. The worker cannot run without it,
	// intake messages are its main input.
	bus, err := messaging.NewServiceBus(cfg.Azure)
	if err != nil {
		return err
	}
	defer bus.Close()

	// Initialize services
	donationService := services.NewDonationService(db, metricsCollector, tracer)
	distributionService := services.NewDistributionService(db, elasticClient, bus, metricsCollector, tracer)
	inventoryService := services.NewInventoryService(db, bus, metricsCollector)

	// Start the intake queue processor
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.IntakeQueue).Msg("Starting donation intake processor")
		return bus.ProcessMessages(ctx, donationService.ProcessIntakeMessage)
	})

	// Start the housekeeping cron jobs
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Reindex distributions the API failed to index after commit
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Stock.ReconcileInterval),
			gocron.NewTask(func() {
				log.Info().Msg("Running distribution reindex fallback job")
				if err := distributionService.ReindexDistributions(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reindex distributions")
				}
			}),
		)
		if err != nil {
			return err
		}

		// Alert on lots close to their expiry date
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Stock.ExpiryScanInterval),
			gocron.NewTask(func() {
				log.Info().Int("days", cfg.Stock.ExpiryAlertDays).Msg("Scanning for expiring lots")
				if err := inventoryService.ScanExpiring(ctx, cfg.Stock.ExpiryAlertDays); err != nil {
					log.Error().Err(err).Msg("Failed to scan expiring lots")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
