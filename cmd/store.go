package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/expanders360/vendor-match/internal/store"
	"github.com/expanders360/vendor-match/pkg/mailer"
)

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "vendor-match.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newMailer returns the HTTP mail client, or a dry-run mailer that only
// logs deliveries when no API key is configured.
func newMailer() mailer.Client {
	if cfg.Mail.Key == "" {
		zap.L().Warn("no mail API key configured, using dry-run mailer")
		return mailer.NewDryRun()
	}
	return mailer.NewClient(cfg.Mail.Key, cfg.Mail.From, mailer.WithBaseURL(cfg.Mail.BaseURL))
}
