package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/brackethq/circuit-metrics/external/startgg"
	"github.com/brackethq/circuit-metrics/internal/config"
	"github.com/brackethq/circuit-metrics/internal/infrastructure/repository/sqlite"
	"github.com/brackethq/circuit-metrics/internal/interfaces/httpapi"
	"github.com/brackethq/circuit-metrics/internal/platform/cache"
	"github.com/brackethq/circuit-metrics/internal/platform/logging"
	"github.com/brackethq/circuit-metrics/internal/platform/resilience"
	"github.com/brackethq/circuit-metrics/internal/usecase"
)

// Application wires the persistent store, the remote client and the services
// on top of them. Both the API server and the batch CLI build one.
type Application struct {
	Config config.Config
	Logger *logging.Logger
	DB     *sqlx.DB

	Discovery *usecase.DiscoveryService
	Results   *usecase.ResultsService
	Metrics   *usecase.MetricsService
	Series    *usecase.SeriesService
	Pipeline  *usecase.PipelineService
}

func New(cfg config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := sqlite.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	tournamentRepo := sqlite.NewTournamentRepository(db)
	eventRepo := sqlite.NewEventRepository(db)
	metricsRepo := sqlite.NewMetricsRepository(db)
	seriesRepo := sqlite.NewSeriesRepository(db)

	var remote usecase.RemoteDataSource
	if cfg.RemoteEnabled {
		client, err := newStartggClient(cfg, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("build start.gg client: %w", err)
		}
		remote = client
	}

	discoverySvc := usecase.NewDiscoveryService(tournamentRepo, seriesRepo, remote, cfg.DiscoveryStaleAfter, logger)
	resultsSvc := usecase.NewResultsService(eventRepo, remote, cfg.BundleWorkers, logger)
	metricsSvc := usecase.NewMetricsService(metricsRepo, logger)
	seriesSvc := usecase.NewSeriesService(tournamentRepo, eventRepo, remote, logger)
	pipelineSvc := usecase.NewPipelineService(discoverySvc, resultsSvc, metricsSvc, seriesSvc, logger)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Discovery: discoverySvc,
		Results:   resultsSvc,
		Metrics:   metricsSvc,
		Series:    seriesSvc,
		Pipeline:  pipelineSvc,
	}, nil
}

func (a *Application) Close() error {
	return a.DB.Close()
}

// HTTPServer builds the API server over the wired services.
func (a *Application) HTTPServer() (*http.Server, error) {
	if a.Config.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(
		a.Discovery,
		a.Metrics,
		a.Series,
		a.Pipeline,
		cache.NewStore(a.Config.ReadCacheTTL),
		a.Logger,
	)
	router := httpapi.NewRouter(handler, a.Logger, httpapi.RouterConfig{
		CORSAllowedOrigins: a.Config.CORSAllowedOrigins,
		RateLimitRequests:  a.Config.RateLimitRequests,
		RateLimitWindow:    a.Config.RateLimitWindow,
	})

	return &http.Server{
		Addr:         a.Config.HTTPAddr,
		Handler:      router,
		ReadTimeout:  a.Config.ReadTimeout,
		WriteTimeout: a.Config.WriteTimeout,
	}, nil
}

func newStartggClient(cfg config.Config, logger *logging.Logger) (*startgg.Client, error) {
	var responseCache *startgg.ResponseCache
	if cfg.ResponseCacheDir != "" {
		var err error
		responseCache, err = startgg.NewResponseCache(cfg.ResponseCacheDir, cfg.ResponseCacheTTL)
		if err != nil {
			return nil, err
		}
	}

	retry := resilience.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.StartggMaxRetries

	return startgg.NewClient(startgg.ClientConfig{
		BaseURL: cfg.StartggBaseURL,
		Token:   cfg.StartggToken,
		Timeout: cfg.StartggTimeout,
		Retry:   retry,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.StartggCircuitEnabled,
			FailureThreshold: cfg.StartggCircuitFailures,
			OpenTimeout:      cfg.StartggCircuitOpenFor,
			HalfOpenMaxReq:   cfg.StartggCircuitHalfOpen,
		},
		ResponseCache: responseCache,
		Logger:        logger,
	})
}
