package main

import (
	"context"
	"os"

	"catalog-scraper/config"
	"catalog-scraper/db"
	"catalog-scraper/notify"
	"catalog-scraper/persist"
	"catalog-scraper/sheets"

	"github.com/sirupsen/logrus"
)

// buildSinks assembles the file sink plus every optional sink the config
// enables. Optional sinks that fail to initialize are logged and skipped.
func buildSinks(ctx context.Context, cfg *config.Config, logger *logrus.Entry) (persist.Sink, func()) {
	format, _ := persist.ParseFormat(cfg.Output.Format)
	sinks := persist.Fanout{
		&persist.FileSink{
			Writer: persist.NewWriter(logger.WithField("sink", "file")),
			Dir:    cfg.Output.Dir,
			Format: format,
		},
	}
	var closers []func() error

	if cfg.Database.Enabled {
		database, err := db.NewDB(cfg.Database.URL, logger.WithField("sink", "db"))
		if err != nil {
			logger.WithError(err).Warn("database sink disabled")
		} else {
			sinks = append(sinks, db.NewStore(database, logger.WithField("sink", "db")))
			closers = append(closers, database.Close)
		}
	}

	if cfg.Sheets.SpreadsheetURL != "" {
		if id := sheets.ExtractSpreadsheetID(cfg.Sheets.SpreadsheetURL); id == "" {
			logger.WithField("url", cfg.Sheets.SpreadsheetURL).Warn("could not extract spreadsheet ID, sheets sink disabled")
		} else if writer, err := sheets.NewWriter(ctx, id, cfg.Sheets.CredentialsPath, logger.WithField("sink", "sheets")); err != nil {
			logger.WithError(err).Warn("sheets sink disabled")
		} else {
			sinks = append(sinks, writer)
		}
	}

	token := cfg.Telegram.Token
	if token == "" {
		token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	if token != "" {
		tg, err := notify.NewTelegram(token, cfg.Telegram.ChatID, logger.WithField("sink", "telegram"))
		if err != nil {
			logger.WithError(err).Warn("telegram notice disabled")
		} else {
			sinks = append(sinks, tg)
		}
	}

	return sinks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.WithError(err).Warn("failed to close sink")
			}
		}
	}
}
