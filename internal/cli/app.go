package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"github.com/yaoqinxue-cmd/BriStack/internal/cache"
	"github.com/yaoqinxue-cmd/BriStack/internal/content"
	"github.com/yaoqinxue-cmd/BriStack/internal/detect"
	"github.com/yaoqinxue-cmd/BriStack/internal/engagement"
	"github.com/yaoqinxue-cmd/BriStack/internal/fidelity"
	"github.com/yaoqinxue-cmd/BriStack/internal/llm"
	"github.com/yaoqinxue-cmd/BriStack/internal/metrics"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/storage"
	"github.com/yaoqinxue-cmd/BriStack/internal/track"
	"github.com/yaoqinxue-cmd/BriStack/internal/util"
	"github.com/yaoqinxue-cmd/BriStack/internal/worker"
)

// app wires the components shared by the commands
type app struct {
	cfg        *model.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	store      *storage.SQLStore
	classifier *detect.Classifier
	machine    *engagement.Machine
	robots     *util.RobotsPolicy
	recorder   *track.Recorder
}

// newApp loads the configuration and builds the classifier. The store and
// recorder are opened only when withStore is set.
func newApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   slog.Default(),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	a.classifier, err = detect.NewClassifierFromConfig(cfg.Detection)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	a.robots, err = util.NewRobotsPolicy(cfg.Robots)
	if err != nil {
		return nil, err
	}

	if !withStore {
		return a, nil
	}

	a.store, err = storage.Open(ctx, cfg.Storage, storage.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a.machine = engagement.NewMachine(a.store, cfg.Engagement,
		engagement.WithLogger(a.logger),
		engagement.WithMetrics(a.metrics),
	)

	if cfg.Privacy.HashSecret == "" {
		a.logger.Warn("privacy.hash_secret is not set; source hashes can be brute-forced")
	}

	a.recorder = track.NewRecorder(a.classifier, a.store, a.machine, track.NewSourceHasher(cfg.Privacy.HashSecret),
		track.WithLogger(a.logger),
		track.WithMetrics(a.metrics),
		track.WithRobotsPolicy(a.robots),
	)
	return a, nil
}

// assessor builds the fidelity scorer. A missing or unusable oracle
// configuration yields a disabled scorer, never an error.
func (a *app) assessor() *fidelity.Assessor {
	provider, err := llm.NewProvider(llm.ConfigFromModel(a.cfg.LLM))
	if err != nil {
		a.logger.Warn("fidelity scoring disabled", "error", err)
		provider = nil
	}

	return fidelity.NewAssessor(provider, a.cfg.Fidelity,
		fidelity.WithLimiter(worker.NewLimiterPerMinute(a.cfg.LLM.RequestsPerMinute)),
		fidelity.WithLogger(a.logger),
		fidelity.WithMetrics(a.metrics),
	)
}

// fetcher builds the issue fetcher, cached in memory and, when
// fetch.cache_dir is set, on disk
func (a *app) fetcher() *content.Fetcher {
	ttl := time.Duration(a.cfg.Fetch.CacheTTL) * time.Second

	var c cache.Cache = cache.NewMemoryCache(ttl, 2*ttl)
	if a.cfg.Fetch.CacheDir != "" {
		c = cache.NewLayeredCache(c, cache.NewDiskCache(a.cfg.Fetch.CacheDir, ttl))
	}

	return content.NewFetcher(a.cfg.Fetch,
		content.WithCache(c),
		content.WithFetchLogger(a.logger),
	)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close storage", "error", err)
		}
	}
}
