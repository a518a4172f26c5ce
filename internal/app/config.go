package app

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/pricing"
)

// StorageDriver определяет хранилище для сохранения корзины.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverRedis    StorageDriver = "redis"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string
	MetricsAddr string
	HTTPAddr    string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool
	RedisAddr           string

	// APIURL пустой: корзина и избранное живут в памяти, заказы обслуживает заглушка.
	APIURL     string
	APITimeout time.Duration

	KeyPrefix         string
	Currency          string
	TaxRate           decimal.Decimal
	ShippingFee       decimal.Decimal
	FreeShippingAbove decimal.Decimal
	Coupons           []pricing.Coupon

	MockPaymentDelay time.Duration

	// SessionIdleTTL задаёт простой, после которого сессия закрывается с сохранением корзины.
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	KafkaBrokers []string
	OTLPEndpoint string
}

// DefaultConfig возвращает базовые адреса и in-memory хранилище.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:             ":50051",
		MetricsAddr:          ":9090",
		HTTPAddr:             ":8080",
		StorageDriver:        StorageDriverMemory,
		PostgresAutoMigrate:  true,
		RedisAddr:            "localhost:6379",
		APITimeout:           10 * time.Second,
		KeyPrefix:            "tishyaa",
		Currency:             pricing.DefaultCurrency,
		MockPaymentDelay:     300 * time.Millisecond,
		SessionIdleTTL:       30 * time.Minute,
		SessionSweepInterval: time.Minute,
	}
}

func (c Config) shippingRule() pricing.ShippingRule {
	return pricing.ShippingRule{FlatFee: c.ShippingFee, FreeAbove: c.FreeShippingAbove}
}
