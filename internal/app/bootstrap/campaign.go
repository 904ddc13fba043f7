package bootstrap

import (
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/wa-campaign-sender/internal/config"
	"github.com/wolfman30/wa-campaign-sender/internal/images"
	"github.com/wolfman30/wa-campaign-sender/internal/journal"
	"github.com/wolfman30/wa-campaign-sender/internal/notify"
	"github.com/wolfman30/wa-campaign-sender/pkg/logging"
)

// BuildJournal combines whichever journals have a backing store. The returned
// PostgresJournal is non-nil when resume points can be read from the database.
func BuildJournal(cfg *appconfig.Config, redisClient *redis.Client, pool *pgxpool.Pool, logger *logging.Logger) (journal.Journal, *journal.PostgresJournal) {
	if logger == nil {
		logger = logging.Default()
	}
	var (
		journals journal.Multi
		pg       *journal.PostgresJournal
	)
	if rj := journal.NewRedisJournal(redisClient, cfg.JournalTTL); rj != nil {
		journals = append(journals, rj)
		logger.Info("outcome journal enabled", "store", "redis")
	}
	if pool != nil {
		pg = journal.NewPostgresJournal(pool)
		journals = append(journals, pg)
		logger.Info("outcome journal enabled", "store", "postgres")
	}
	if len(journals) == 0 {
		return nil, nil
	}
	return journals, pg
}

// BuildEmailSender picks the summary email provider from EMAIL_PROVIDER.
// sesClient may be nil when AWS is not configured.
func BuildEmailSender(cfg *appconfig.Config, sesClient notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	sendgrid := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)

	var ses *notify.SESSender
	if sesClient != nil {
		ses = notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	}
	return notify.ChooseSender(cfg.EmailProvider, sendgrid, ses, logger)
}

// BuildImageResolver resolves images relative to the recipient file. s3 is
// only consulted for s3:// references and may be nil otherwise.
func BuildImageResolver(cfg *appconfig.Config, contactsFile string, s3 images.S3API, logger *logging.Logger) *images.Resolver {
	opts := images.Options{
		BaseDir:      filepath.Dir(contactsFile),
		ImagesFolder: strings.TrimSpace(cfg.ImagesFolder),
		DefaultImage: strings.TrimSpace(cfg.DefaultImage),
		TextOnly:     cfg.TextOnly,
	}
	if s3 != nil {
		opts.Fetcher = images.NewS3Fetcher(s3, cfg.ImageCacheDir, logger)
	}
	return images.NewResolver(opts)
}
