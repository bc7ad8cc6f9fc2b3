package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	outputcache "pwabuilder/internal/cache/output"
	"pwabuilder/internal/gateway/config"
	outputrepo "pwabuilder/internal/gateway/repository/output"
)

// initOutputStore picks the output backend: S3 when fully configured, else
// Postgres when DATABASE_URL is set, else disk when OUTPUT_DIR is set, else
// memory. The result is always wrapped in the read cache. The returned
// closer releases the database handle, if one was opened.
func initOutputStore(ctx context.Context, cfg *config.Config) (*outputcache.CachedStore, io.Closer, error) {
	origin, closer, err := chooseOutputOrigin(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return outputcache.NewCachedStore(origin, outputcache.DefaultCacheConfig()), closer, nil
}

func chooseOutputOrigin(ctx context.Context, cfg *config.Config) (outputrepo.Store, io.Closer, error) {
	if cfg.Output.CanUseS3() {
		s3Cfg := outputrepo.S3Config{
			Endpoint:  cfg.Output.Endpoint,
			Region:    cfg.Output.Region,
			AccessKey: cfg.Output.AccessKey,
			SecretKey: cfg.Output.SecretKey,
			Bucket:    cfg.Output.Bucket,
			UseSSL:    cfg.Output.UseSSL,
		}
		store, err := outputrepo.NewS3Store(s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize output s3 store: %w", err)
		}
		log.Printf("output store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return store, nopCloser{}, nil
	}
	if cfg.Output.Enabled {
		log.Printf("output store: s3 config incomplete, falling back")
	}

	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := outputrepo.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open output db: %w", err)
		}
		log.Printf("output store: postgres")
		return outputrepo.NewPostgresStore(db), db, nil
	}

	if dir := strings.TrimSpace(cfg.OutputDir); dir != "" {
		log.Printf("output store: disk root=%s", dir)
		return outputrepo.NewDiskStore(dir), nopCloser{}, nil
	}

	log.Printf("output store: in-memory")
	return outputrepo.NewMemoryStore(), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
