// Package console assembles the session and list components over the
// configured storage backend.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/opsconsole/internal/client/api"
	"github.com/atinyakov/opsconsole/internal/client/credential"
	"github.com/atinyakov/opsconsole/internal/client/listquery"
	"github.com/atinyakov/opsconsole/internal/client/profile"
	"github.com/atinyakov/opsconsole/internal/client/session"
	"github.com/atinyakov/opsconsole/internal/client/storage"
	"github.com/atinyakov/opsconsole/internal/clock"
	"github.com/atinyakov/opsconsole/internal/config"
	"github.com/atinyakov/opsconsole/internal/db"
	"github.com/atinyakov/opsconsole/internal/logger"
)

// Console holds the wired components. Close releases the storage
// backend.
type Console struct {
	Storage     storage.Storage
	Credentials *credential.Store
	Executor    *api.Executor
	Profiles    *profile.Cache
	Session     *session.Controller
	Payments    *listquery.Fetcher

	closer io.Closer
}

// Open builds a Console from options.
func Open(ctx context.Context, options *config.Options, log *zap.Logger) (*Console, error) {
	log = logger.OrNop(log)

	kv, closer, err := OpenStorage(ctx, options)
	if err != nil {
		return nil, err
	}

	client, err := api.NewHTTPClient(options.CAFile, options.Timeout.Duration)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("build http client: %w", err)
	}

	c := New(kv, options.APIURL, client, options.ProfileTTL.Duration, clock.Real(), log)
	c.closer = closer
	return c, nil
}

// New wires the components over kv for the API at baseURL.
func New(kv storage.Storage, baseURL string, client *http.Client, ttl time.Duration, clk clock.Clock, log *zap.Logger) *Console {
	log = logger.OrNop(log)
	creds := credential.NewStore(kv)
	exec := api.NewExecutor(baseURL, client, creds, creds, log.Named("api"))
	cache := profile.NewCache(kv, creds, exec,
		profile.WithClock(clk),
		profile.WithTTL(ttl),
		profile.WithLogger(log.Named("profile")),
	)
	return &Console{
		Storage:     kv,
		Credentials: creds,
		Executor:    exec,
		Profiles:    cache,
		Session:     session.NewController(creds, exec, cache, log.Named("session")),
		Payments:    listquery.NewPaymentsFetcher(exec),
	}
}

// Close releases the storage backend.
func (c *Console) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// OpenStorage opens the backend selected by options.Storage. The
// returned closer is nil for backends without resources.
func OpenStorage(ctx context.Context, options *config.Options) (storage.Storage, io.Closer, error) {
	switch options.Storage {
	case config.StorageFile, "":
		return storage.NewFileStorage(options.StateFile), nil, nil
	case config.StoragePostgres:
		sqlDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres storage: %w", err)
		}
		return storage.NewPostgresStorage(sqlDB), sqlDB, nil
	case config.StorageRedis:
		rs, err := storage.NewRedisStorage(options.RedisURL, storage.DefaultRedisPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("init redis storage: %w", err)
		}
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("init redis storage: %w", err)
		}
		return rs, rs, nil
	default:
		return nil, nil, errors.New("unknown storage " + options.Storage)
	}
}
