package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/wa-campaign-sender/cmd/mainconfig"
	"github.com/wolfman30/wa-campaign-sender/internal/app/bootstrap"
	"github.com/wolfman30/wa-campaign-sender/internal/automation"
	"github.com/wolfman30/wa-campaign-sender/internal/browser"
	"github.com/wolfman30/wa-campaign-sender/internal/campaign"
	appconfig "github.com/wolfman30/wa-campaign-sender/internal/config"
	"github.com/wolfman30/wa-campaign-sender/internal/images"
	"github.com/wolfman30/wa-campaign-sender/internal/journal"
	"github.com/wolfman30/wa-campaign-sender/internal/notify"
	"github.com/wolfman30/wa-campaign-sender/internal/observability/metrics"
	"github.com/wolfman30/wa-campaign-sender/internal/recipients"
	"github.com/wolfman30/wa-campaign-sender/internal/status"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

const (
	exitOK        = 0
	exitSetup     = 1
	exitAborted   = 2
	exitInterrupt = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	file := flag.String("file", cfg.ContactsFile, "recipient spreadsheet (.xlsx, .xlsm or .csv)")
	start := flag.Int("start", cfg.StartFrom, "zero-based recipient index to start from")
	delay := flag.Duration("delay", cfg.Delay, "pause after each delivery attempt")
	textOnly := flag.Bool("text-only", cfg.TextOnly, "never attach images")
	resume := flag.Bool("resume", false, "continue from the last unfinished run recorded in the journal")
	flag.Parse()
	cfg.ContactsFile, cfg.StartFrom, cfg.Delay, cfg.TextOnly = *file, *start, *delay, *textOnly

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting whatsapp campaign sender", "env", cfg.Env, "file", cfg.ContactsFile)

	recs, report, err := recipients.Load(cfg.ContactsFile)
	if err != nil {
		logger.Error("failed to load recipients", "error", err)
		return exitSetup
	}
	logger.Info("recipients loaded",
		"count", len(recs),
		"header", report.HeaderFound,
		"skipped_rows", len(report.SkippedRows),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	setupCtx := context.WithoutCancel(ctx)

	redisClient := bootstrap.BuildRedisClient(setupCtx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	pool := bootstrap.BuildPostgresPool(setupCtx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}
	runJournal, pgJournal := bootstrap.BuildJournal(cfg, redisClient, pool, logger)

	if *resume {
		if next, ok := resumeIndex(setupCtx, pgJournal, journal.NewRedisJournal(redisClient, cfg.JournalTTL), logger); ok {
			cfg.StartFrom = next
		}
	}

	var (
		s3Client  images.S3API
		sesClient notify.SESAPI
	)
	needsS3 := cfg.UsesS3() || rowsUseS3(recs)
	if needsS3 || cfg.SESFromEmail != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(setupCtx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			return exitSetup
		}
		if needsS3 {
			s3Client = mainconfig.NewS3Client(awsCfg, cfg)
		}
		if cfg.SESFromEmail != "" {
			sesClient = mainconfig.NewSESClient(awsCfg, cfg)
		}
	}
	resolver := bootstrap.BuildImageResolver(cfg, cfg.ContactsFile, s3Client, logger)

	registry := prometheus.NewRegistry()
	observers := []campaign.Observer{
		campaign.NewMetricsObserver(metrics.NewCampaignMetrics(registry)),
	}
	tracker := status.NewTracker()
	observers = append(observers, tracker)
	if runJournal != nil {
		observers = append(observers, journal.NewObserver(runJournal, logger))
	}
	if strings.TrimSpace(cfg.NotifyEmail) != "" {
		sender := bootstrap.BuildEmailSender(cfg, sesClient, logger)
		observers = append(observers, notify.NewSummaryNotifier(sender, cfg.NotifyEmail, cfg.ContactsFile, logger))
	}

	if addr := strings.TrimSpace(cfg.StatusAddr); addr != "" {
		srv := status.NewServer(addr, status.NewRouter(tracker, registry, logger), logger)
		if err := srv.Start(); err != nil {
			logger.Error("failed to start status server", "error", err)
			return exitSetup
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	session, err := browser.Open(ctx,
		browser.WithLogger(logger),
		browser.WithURL(cfg.WhatsAppURL),
		browser.WithExecPath(cfg.ChromePath),
		browser.WithProfileDir(cfg.ChromeProfileDir),
		browser.WithHeadless(cfg.Headless),
		browser.WithLoginTimeout(cfg.LoginTimeout),
	)
	if err != nil {
		logger.Error("failed to open whatsapp web", "error", err)
		return exitSetup
	}
	defer session.Close(cfg.CloseGrace)

	dispatcher := automation.NewDispatcher(
		session.Driver(),
		automation.SystemClock{},
		automation.ScaledTimings(cfg.ActionTimeout),
		logger,
	).WithHomeURL(cfg.WhatsAppURL)

	runner := campaign.NewRunner(campaign.Config{
		StartIndex:    cfg.StartFrom,
		Delay:         cfg.Delay,
		ProgressEvery: cfg.ProgressEvery,
		TextOnly:      cfg.TextOnly,
	}, dispatcher, resolver, logger).WithObservers(observers...)

	summary, err := runner.Run(ctx, recs)
	printSummary(summary)

	switch {
	case err != nil:
		logger.Error("campaign aborted", "error", err, "next_index", summary.NextIndex)
		return exitAborted
	case summary.Interrupted:
		return exitInterrupt
	}
	return exitOK
}

// resumeIndex prefers the Postgres journal and falls back to Redis.
func resumeIndex(ctx context.Context, pg *journal.PostgresJournal, rj *journal.RedisJournal, logger *logging.Logger) (int, bool) {
	if pg != nil {
		runID, next, ok, err := pg.ResumePoint(ctx)
		if err != nil {
			logger.Warn("failed to read resume point", "store", "postgres", "error", err)
		} else if ok {
			logger.Info("resuming unfinished run", "run_id", runID, "start_index", next)
			return next, true
		}
	}
	if rj != nil {
		last, ok, err := rj.LastSummary(ctx)
		if err != nil {
			logger.Warn("failed to read resume point", "store", "redis", "error", err)
		} else if ok && !last.Complete() {
			logger.Info("resuming unfinished run", "run_id", last.RunID, "start_index", last.NextIndex)
			return last.NextIndex, true
		}
	}
	logger.Info("no unfinished run to resume, using configured start index")
	return 0, false
}

func rowsUseS3(recs []recipients.Record) bool {
	for _, rec := range recs {
		if strings.HasPrefix(rec.ImagePath, "s3://") {
			return true
		}
	}
	return false
}

func printSummary(s campaign.Summary) {
	fmt.Println()
	fmt.Printf("Run %s finished in %s\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	fmt.Printf("  Attempted:      %d of %d (from index %d)\n", s.Attempted, s.Total, s.StartIndex)
	fmt.Printf("  Succeeded:      %d\n", s.Succeeded)
	fmt.Printf("  Failed:         %d\n", s.Failed)
	fmt.Printf("  Images sent:    %d\n", s.ImagesSent)
	fmt.Printf("  Text fallbacks: %d\n", s.TextFallbacks)
	for _, f := range s.Failures {
		fmt.Printf("    #%d row %d %s: %s\n", f.Index, f.Row, f.Identifier, f.Reason)
	}
	if !s.Complete() {
		reason := "interrupted"
		if s.Aborted {
			reason = "aborted"
		}
		fmt.Printf("Run %s. Resume with: -start %d (or START_FROM=%d)\n", reason, s.NextIndex, s.NextIndex)
	}
}
