package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/directory"
	"github.com/sells-group/lead-pipeline/internal/pipeline"
	"github.com/sells-group/lead-pipeline/internal/resilience"
	"github.com/sells-group/lead-pipeline/internal/store"
	"github.com/sells-group/lead-pipeline/pkg/geocode"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadpipe.db"
		}
		s, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initCrawler() *directory.Crawler {
	retry := resilience.DefaultRetryConfig()
	if cfg.Directory.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.Directory.RetryAttempts
	}

	opts := []directory.Option{
		directory.WithPageDelay(time.Duration(cfg.Directory.PageDelayMs) * time.Millisecond),
		directory.WithRetry(retry),
	}
	if cfg.Directory.BaseURL != "" {
		opts = append(opts, directory.WithBaseURL(cfg.Directory.BaseURL))
	}
	if cfg.Directory.ProxyURL != "" {
		opts = append(opts, directory.WithRelays(cfg.Directory.ProxyURL, cfg.Directory.FallbackProxy))
	}
	if cfg.Directory.MaxPages > 0 {
		opts = append(opts, directory.WithMaxPages(cfg.Directory.MaxPages))
	}
	return directory.NewCrawler(opts...)
}

func initResolver(s store.Store) *geocode.Resolver {
	opts := []geocode.Option{}
	if cfg.Geocode.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	}
	if cfg.Geocode.UserAgent != "" {
		opts = append(opts, geocode.WithUserAgent(cfg.Geocode.UserAgent))
	}
	if cfg.Geocode.Country != "" {
		opts = append(opts, geocode.WithCountry(cfg.Geocode.Country))
	}
	if cfg.Geocode.RateLimit > 0 {
		opts = append(opts, geocode.WithRateLimit(cfg.Geocode.RateLimit))
	}
	return geocode.NewResolver(pipeline.NewStoreCache(s), opts...)
}

func initScanner(s store.Store) *pipeline.Scanner {
	pause := time.Duration(cfg.Directory.StreetPauseMs) * time.Millisecond
	return pipeline.NewScanner(s, initCrawler(), initResolver(s), pause)
}
