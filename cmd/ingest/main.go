package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/stockdata/stock-data-service/internal/config"
	"github.com/stockdata/stock-data-service/internal/database"
	"github.com/stockdata/stock-data-service/internal/ingest"
	"github.com/stockdata/stock-data-service/internal/kafka"
	"github.com/stockdata/stock-data-service/internal/provider"
)

func main() {
	var (
		symbolsFlag    = flag.String("symbols", "", "comma-separated symbols (default: STOCK_SYMBOLS)")
		startFlag      = flag.String("start", "", "window start date YYYY-MM-DD (default: end minus window days)")
		endFlag        = flag.String("end", "", "window end date YYYY-MM-DD (default: today)")
		listen         = flag.Bool("listen", false, "consume ingest requests from Kafka instead of running once")
		publish        = flag.Bool("publish", false, "publish run summaries to Kafka")
		migrationsPath = flag.String("migrations", "db/migrations", "path to migration files")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(*migrationsPath); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	fetcher := provider.NewYahooFetcher(cfg.Provider.BaseURL,
		time.Duration(cfg.Provider.TimeoutSeconds)*time.Second)

	var publisher ingest.RunPublisher
	if *publish {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic)
		defer producer.Close()
		publisher = producer
	}

	coordinator := ingest.NewCoordinator(fetcher, db, publisher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	symbols := cfg.Ingest.Symbols
	if *symbolsFlag != "" {
		symbols = nil
		for _, s := range strings.Split(*symbolsFlag, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				symbols = append(symbols, strings.ToUpper(trimmed))
			}
		}
	}

	if *listen {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RequestTopic, cfg.Kafka.GroupID,
			coordinator, kafka.RunDefaults{Symbols: symbols, WindowDays: cfg.Ingest.WindowDays}, logger)
		defer consumer.Close()

		if err := consumer.Start(ctx); err != nil {
			logger.Error("consumer failed", "error", err)
			os.Exit(1)
		}
		return
	}

	endDate := time.Now().UTC().Truncate(24 * time.Hour)
	if *endFlag != "" {
		endDate, err = time.Parse("2006-01-02", *endFlag)
		if err != nil {
			logger.Error("invalid -end date", "error", err)
			os.Exit(1)
		}
	}
	startDate := endDate.AddDate(0, 0, -cfg.Ingest.WindowDays)
	if *startFlag != "" {
		startDate, err = time.Parse("2006-01-02", *startFlag)
		if err != nil {
			logger.Error("invalid -start date", "error", err)
			os.Exit(1)
		}
	}

	summary, err := coordinator.Run(ctx, symbols, startDate, endDate)
	if err != nil {
		logger.Error("ingestion run failed", "error", err)
		os.Exit(1)
	}

	for _, outcome := range summary.Outcomes {
		logger.Info("outcome",
			"symbol", outcome.Symbol,
			"status", outcome.Status,
			"written", outcome.Written,
		)
	}
	logger.Info("done", "total_written", summary.TotalWritten)
}
