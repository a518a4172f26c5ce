package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	healthcheck "github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/health"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/metrics"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/service/reaper"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storefront"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/transport/httpapi"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/version"
)

// Run поднимает хранилище, реестр сессий, HTTP API, gRPC health и метрики.
// Возвращает ctx.Err() после остановки по сигналу.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	tp, err := initTracerProvider(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to init tracing, continuing without it")
	}
	defer shutdownTracer(tp, logger)

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if deps.closeFn != nil {
		defer func() {
			if err := deps.closeFn(); err != nil {
				logger.WithError(err).Warn("failed to close storage")
			}
		}()
	}

	// Ошибка Kafka не останавливает сервис: события оплаты просто не публикуются.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafkaProducer(producer, logger)

	storefrontMetrics := metrics.NewStorefrontMetrics()
	var publisher domain.PaymentEventPublisher
	if producer != nil {
		publisher = producer
	}
	registry := newRegistry(cfg, deps, publisher, storefrontMetrics, logger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.CloseAll(closeCtx); err != nil {
			logger.WithError(err).Warn("failed to close storefront sessions")
		}
	}()

	sessionReaper := reaper.NewWorker(registry,
		reaper.WithLogger(logger.WithField("component", "session-reaper")),
		reaper.WithIdleTTL(cfg.SessionIdleTTL),
		reaper.WithInterval(cfg.SessionSweepInterval),
	)
	go sessionReaper.Run(ctx)

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
	)
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	healthHandler.RegisterOptional("session_reaper",
		healthcheck.NewHeartbeatChecker("session_reaper", sessionReaper.LastRun, 3*sessionReaper.Interval()))
	logger.WithField("checks", healthHandler.Names()).Debug("health checks registered")

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}
	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	apiSrv := &http.Server{
		Handler:           httpapi.NewServer(registry, logger.WithField("layer", "http")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.Shutdown()
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		healthServer.Shutdown()
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newRegistry собирает реестр сессий. publisher может быть nil.
func newRegistry(cfg Config, deps runtimeDependencies, publisher domain.PaymentEventPublisher, m *metrics.StorefrontMetrics, logger *log.Entry) *storefront.Registry {
	opts := []storefront.Option{
		storefront.WithNotifier(notify.NewLogNotifier(logger.WithField("component", "notifier"), m)),
		storefront.WithTimeline(deps.timeline),
		storefront.WithCoupons(pricing.NewCouponBook(cfg.Coupons...)),
		storefront.WithLogger(logger.WithField("component", "storefront")),
		storefront.WithMetrics(m),
	}
	if publisher != nil {
		opts = append(opts, storefront.WithPublisher(publisher))
	}

	return storefront.NewRegistry(storefront.Config{
		KeyPrefix: cfg.KeyPrefix,
		Currency:  cfg.Currency,
		TaxRate:   cfg.TaxRate,
		Shipping:  cfg.shippingRule(),
	}, deps.store, newAPIFactory(cfg, logger), opts...)
}

// stopGRPC пытается остановить сервер аккуратно и обрывает соединения по таймауту.
func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(5 * time.Second):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчики /metrics и health checks.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
