package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/app"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/version"
)

const (
	envLogLevel            = "STOREFRONT_LOG_LEVEL"
	envGRPCAddr            = "STOREFRONT_GRPC_ADDR"
	envMetricsAddr         = "STOREFRONT_METRICS_ADDR"
	envHTTPAddr            = "STOREFRONT_HTTP_ADDR"
	envStorageDriver       = "STOREFRONT_STORAGE_DRIVER"
	envPostgresDSN         = "STOREFRONT_POSTGRES_DSN"
	envPostgresAutoMigrate = "STOREFRONT_POSTGRES_AUTO_MIGRATE"
	envRedisAddr           = "STOREFRONT_REDIS_ADDR"
	envAPIURL              = "STOREFRONT_API_URL"
	envAPITimeout          = "STOREFRONT_API_TIMEOUT"
	envKeyPrefix           = "STOREFRONT_KEY_PREFIX"
	envCurrency            = "STOREFRONT_CURRENCY"
	envTaxRate             = "STOREFRONT_TAX_RATE"
	envShippingFee         = "STOREFRONT_SHIPPING_FEE"
	envFreeShippingAbove   = "STOREFRONT_FREE_SHIPPING_ABOVE"
	envCoupons             = "STOREFRONT_COUPONS"
	envMockPaymentDelay    = "STOREFRONT_MOCK_PAYMENT_DELAY"
	envSessionIdleTTL      = "STOREFRONT_SESSION_IDLE_TTL"
	envSessionSweep        = "STOREFRONT_SESSION_SWEEP_INTERVAL"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envOTLPEndpoint        = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	if raw, ok := nonEmpty(lookup, envLogLevel); ok {
		level, err := log.ParseLevel(raw)
		if err != nil {
			log.WithError(err).Warnf("%s: некорректный уровень, используется info", envLogLevel)
			return
		}
		log.SetLevel(level)
	}
}

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения пропускаются и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v, используется значение по умолчанию", key, err))
	}

	setString := func(key string, dst *string) {
		if v, ok := nonEmpty(lookup, key); ok {
			*dst = v
		}
	}
	setString(envGRPCAddr, &cfg.GRPCAddr)
	setString(envMetricsAddr, &cfg.MetricsAddr)
	setString(envHTTPAddr, &cfg.HTTPAddr)
	setString(envPostgresDSN, &cfg.PostgresDSN)
	setString(envRedisAddr, &cfg.RedisAddr)
	setString(envAPIURL, &cfg.APIURL)
	setString(envKeyPrefix, &cfg.KeyPrefix)
	setString(envOTLPEndpoint, &cfg.OTLPEndpoint)

	if v, ok := nonEmpty(lookup, envCurrency); ok {
		cfg.Currency = strings.ToUpper(v)
	}
	if v, ok := nonEmpty(lookup, envStorageDriver); ok {
		cfg.StorageDriver = app.StorageDriver(strings.ToLower(v))
	}

	if v, ok := nonEmpty(lookup, envPostgresAutoMigrate); ok {
		if parsed, err := parseBool(v); err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{envAPITimeout, &cfg.APITimeout},
		{envMockPaymentDelay, &cfg.MockPaymentDelay},
	}
	for _, d := range durations {
		v, ok := nonEmpty(lookup, d.key)
		if !ok {
			continue
		}
		parsed, err := parseDuration(v, func(v time.Duration) bool { return v >= 0 }, "must be >= 0")
		if err != nil {
			warn(d.key, err)
			continue
		}
		*d.dst = parsed
	}

	positive := []struct {
		key string
		dst *time.Duration
	}{
		{envSessionIdleTTL, &cfg.SessionIdleTTL},
		{envSessionSweep, &cfg.SessionSweepInterval},
	}
	for _, d := range positive {
		v, ok := nonEmpty(lookup, d.key)
		if !ok {
			continue
		}
		parsed, err := parseDuration(v, func(v time.Duration) bool { return v > 0 }, "must be > 0")
		if err != nil {
			warn(d.key, err)
			continue
		}
		*d.dst = parsed
	}

	amounts := []struct {
		key string
		dst *decimal.Decimal
	}{
		{envTaxRate, &cfg.TaxRate},
		{envShippingFee, &cfg.ShippingFee},
		{envFreeShippingAbove, &cfg.FreeShippingAbove},
	}
	for _, a := range amounts {
		v, ok := nonEmpty(lookup, a.key)
		if !ok {
			continue
		}
		parsed, err := parseAmount(v)
		if err != nil {
			warn(a.key, err)
			continue
		}
		*a.dst = parsed
	}

	if v, ok := nonEmpty(lookup, envCoupons); ok {
		coupons, err := parseCoupons(v)
		if err != nil {
			warn(envCoupons, err)
		} else {
			cfg.Coupons = coupons
		}
	}

	if v, ok := nonEmpty(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitList(v)
	}

	return cfg, warnings
}

func nonEmpty(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, fmt.Errorf("invalid duration %s: %s", value, rule)
	}
	return value, nil
}

// parseAmount разбирает неотрицательную денежную сумму или ставку.
func parseAmount(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", raw)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid amount %s: must be >= 0", value)
	}
	return value, nil
}

// parseCoupons разбирает список вида "CODE:percentage:10[:minSubtotal],CODE2:fixed:200".
func parseCoupons(raw string) ([]pricing.Coupon, error) {
	var coupons []pricing.Coupon
	for _, item := range splitList(raw) {
		parts := strings.Split(item, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("invalid coupon %q", item)
		}
		value, err := parseAmount(parts[2])
		if err != nil {
			return nil, fmt.Errorf("coupon %s: %w", parts[0], err)
		}
		coupon := pricing.Coupon{
			Code:  strings.TrimSpace(parts[0]),
			Type:  pricing.CouponType(strings.ToLower(strings.TrimSpace(parts[1]))),
			Value: value,
		}
		if len(parts) == 4 {
			if coupon.MinSubtotal, err = parseAmount(parts[3]); err != nil {
				return nil, fmt.Errorf("coupon %s: %w", coupon.Code, err)
			}
		}
		if err := coupon.Validate(); err != nil {
			return nil, fmt.Errorf("coupon %s: %w", coupon.Code, err)
		}
		coupons = append(coupons, coupon)
	}
	return coupons, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	setupLogger(os.LookupEnv)
	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, w := range warnings {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":        version.GetVersion(),
		"grpc_addr":      cfg.GRPCAddr,
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
