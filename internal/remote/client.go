package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/version"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
	tracerName     = "github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/remote"
)

// TokenSource отдаёт bearer-токен текущего пользователя. Пустая строка означает запрос без авторизации.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken — TokenSource с фиксированным значением.
type StaticToken string

// Token возвращает значение токена.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Client — JSON-клиент REST API магазина.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	retry   RetryConfig
	breaker *CircuitBreaker
	logger  *log.Entry
	tracer  trace.Tracer
}

// Option настраивает Client.
type Option func(*Client)

// WithHTTPClient подменяет http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource включает авторизацию запросов.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithRetry задаёт политику повторов для GET-запросов.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		if cfg.MaxAttempts < 1 {
			cfg.MaxAttempts = 1
		}
		c.retry = cfg
	}
}

// WithCircuitBreaker включает circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient создаёт клиента для baseURL (например, https://api.example.com/v1).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		retry:   DefaultRetryConfig(),
		logger:  log.New().WithField("component", "remote-client"),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken возвращает копию клиента с другим источником токена (для сессии пользователя).
func (c *Client) WithToken(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// Get выполняет GET и декодирует ответ в out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post выполняет POST.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

// Put выполняет PUT.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

// Delete выполняет DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do выполняет запрос. Повторяются только GET-запросы при сетевых ошибках и ответах 5xx/429.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "remote "+method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	attempts := 1
	if method == http.MethodGet {
		attempts = c.retry.MaxAttempts
	}
	delay := c.retry.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = c.once(ctx, method, path, payload, out)
		if lastErr == nil {
			if attempt > 1 {
				c.logger.WithFields(log.Fields{
					"method":  method,
					"path":    path,
					"attempt": attempt,
				}).Info("request succeeded after retry")
			}
			return nil
		}
		if attempt == attempts || !shouldRetry(lastErr) {
			break
		}

		c.logger.WithError(lastErr).WithFields(log.Fields{
			"method":  method,
			"path":    path,
			"attempt": attempt,
			"delay":   delay.String(),
		}).Warn("request failed, retrying")
		if err := sleepContext(ctx, delay); err != nil {
			lastErr = err
			break
		}
		delay = c.retry.next(delay)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	if c.breaker != nil {
		if err := c.breaker.Allow(path); err != nil {
			return err
		}
	}

	err := c.roundTrip(ctx, method, path, payload, out)
	if c.breaker != nil {
		c.breaker.Record(path, err != nil && shouldRetry(err))
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("get auth token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeAPIError(method, path, resp.StatusCode, body)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
