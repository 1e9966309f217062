package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/changefeed"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/watcher"
	"github.com/Adithya-Monish-Kumar-K/textindex/internal/source"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/metrics"
)

// app is one fully wired indexer with its optional side services.
type app struct {
	cfg     *config.Config
	src     *source.FS
	metrics *metrics.Metrics
	checker *health.Checker
	feed    *changefeed.Feed
	indexer *indexer.FileIndexer
	watcher *watcher.Watcher

	watchDone chan struct{}
	shutdown  []func(context.Context) error
}

func newApp(ctx context.Context, configPath string, watch bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if watch {
		cfg.Watch.Enabled = true
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	src, err := source.New(cfg.Source)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		src:     src,
		metrics: metrics.New(),
		checker: health.NewChecker(),
	}

	opts := []indexer.Option{
		indexer.WithConfig(cfg.Indexer),
		indexer.WithMetrics(a.metrics),
		indexer.WithLogger(slog.Default()),
	}
	if cfg.ChangeFeed.Enabled {
		feed, err := changefeed.FromConfig(ctx, cfg.ChangeFeed, changefeed.WithMetrics(a.metrics))
		if err != nil {
			return nil, fmt.Errorf("starting change feed: %w", err)
		}
		a.feed = feed
		feed.RegisterHealth(a.checker)
		opts = append(opts, indexer.WithNotifier(feed))
	}

	a.indexer = indexer.New(src, opts...)
	a.checker.Register("indexer", a.indexer.HealthCheck())

	if cfg.Watch.Enabled {
		w, err := watcher.New(a.indexer, src, cfg.Watch.Debounce, slog.Default())
		if err != nil {
			a.close()
			return nil, err
		}
		a.watcher = w
	}
	return a, nil
}

// start launches the background services. They stop when ctx is cancelled.
func (a *app) start(ctx context.Context) {
	if a.feed != nil {
		a.feed.Start(ctx)
	}
	if a.watcher != nil {
		a.watchDone = make(chan struct{})
		go func() {
			defer close(a.watchDone)
			if err := a.watcher.Run(ctx); err != nil {
				slog.Error("watcher stopped", "error", err)
			}
		}()
	}
	if a.cfg.Metrics.Enabled {
		a.shutdown = append(a.shutdown, metrics.StartServer(a.cfg.Metrics.Port, a.metrics, a.checker))
	}
}

// close stops the metrics server, waits for the watcher to release its
// handles and flushes the change feed. The context passed to start must be
// cancelled first.
func (a *app) close() {
	if a.watchDone != nil {
		<-a.watchDone
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}
	if a.feed != nil {
		if err := a.feed.Close(); err != nil {
			slog.Error("closing change feed", "error", err)
		}
	}
}
