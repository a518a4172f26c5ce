package app

import (
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/remote"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/service/payment"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storage/memory"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storefront"
)

const (
	breakerMaxFailures  = 5
	breakerResetTimeout = 30 * time.Second
)

// newAPIFactory выбирает источник корзины, избранного и заказов.
// NOTE: без APIURL заказы обслуживает MockService; для production нужен адрес backend-а.
func newAPIFactory(cfg Config, logger *log.Entry) storefront.APIFactory {
	baseURL := strings.TrimSpace(cfg.APIURL)
	if baseURL == "" {
		logger.Warn("STOREFRONT_API_URL не задан, используется in-memory backend и заглушка оплаты")
		return storefront.MemoryAPIs{
			Backend: memory.NewBackend(),
			Orders:  payment.NewMockService(cfg.MockPaymentDelay),
		}
	}

	clientLogger := logger.WithField("component", "remote")
	client := remote.NewClient(baseURL,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
		remote.WithRetry(remote.DefaultRetryConfig()),
		remote.WithCircuitBreaker(remote.NewCircuitBreaker(breakerMaxFailures, breakerResetTimeout, clientLogger)),
		remote.WithLogger(clientLogger),
	)
	logger.WithField("api_url", baseURL).Info("используется удалённое API магазина")
	return storefront.RemoteAPIs{Client: client}
}
