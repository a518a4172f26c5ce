package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
)

// Status — итог проверки компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check описывает результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	// Optional выставлен для компонентов, без которых магазин продолжает работать.
	Optional bool `json:"optional,omitempty"`
}

// Response — тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check() Check
}

type registration struct {
	checker  Checker
	optional bool
}

// Handler собирает проверки хранилища и фоновых компонентов магазина.
// Отказ обязательной проверки делает сервис unhealthy и не готовым,
// отказ необязательной только переводит его в degraded.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]registration
	version   string
	startTime time.Time
}

// NewHandler создаёт обработчик health checks.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]registration),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker регистрирует обязательную проверку.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.register(name, checker, false)
}

// RegisterOptional регистрирует проверку, отказ которой не влияет на готовность.
func (h *Handler) RegisterOptional(name string, checker Checker) {
	h.register(name, checker, true)
}

func (h *Handler) register(name string, checker Checker, optional bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = registration{checker: checker, optional: optional}
}

// Names возвращает имена зарегистрированных проверок по алфавиту.
func (h *Handler) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// evaluate выполняет все проверки параллельно и сводит их в общий статус.
func (h *Handler) evaluate() (Status, map[string]Check) {
	h.mu.RLock()
	regs := make(map[string]registration, len(h.checkers))
	for name, reg := range h.checkers {
		regs[name] = reg
	}
	h.mu.RUnlock()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]Check, len(regs))
	)
	for name, reg := range regs {
		wg.Add(1)
		go func(name string, reg registration) {
			defer wg.Done()
			check := reg.checker.Check()
			if reg.optional {
				check.Optional = true
				if check.Status == StatusUnhealthy {
					check.Status = StatusDegraded
				}
			}
			mu.Lock()
			checks[name] = check
			mu.Unlock()
		}(name, reg)
	}
	wg.Wait()

	overall := StatusHealthy
	for _, check := range checks {
		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}
	return overall, checks
}

// ServeHTTP отдаёт JSON со всеми проверками. Unhealthy отвечает 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status, checks := h.evaluate()

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{
		Status:        status,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// LivenessHandler всегда отвечает 200: процесс жив, пока обслуживает запросы.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, пока не проходит хотя бы одна обязательная проверка.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if status, _ := h.evaluate(); status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// SimpleChecker превращает функцию в Checker.
type SimpleChecker struct {
	name    string
	checkFn func() error
}

// NewSimpleChecker создаёт проверку из функции.
func NewSimpleChecker(name string, checkFn func() error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn}
}

// Check вызывает функцию и замеряет время.
func (c *SimpleChecker) Check() Check {
	start := time.Now()
	err := c.checkFn()

	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// PingChecker проверяет доступность хранилища корзин через Ping с таймаутом.
type PingChecker struct {
	name    string
	pinger  domain.Pinger
	timeout time.Duration
}

// NewPingChecker создаёт проверку хранилища. timeout <= 0 заменяется на 2 секунды.
func NewPingChecker(name string, pinger domain.Pinger, timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &PingChecker{name: name, pinger: pinger, timeout: timeout}
}

// Check выполняет Ping.
func (c *PingChecker) Check() Check {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	return NewSimpleChecker(c.name, func() error {
		return c.pinger.Ping(ctx)
	}).Check()
}

// HeartbeatChecker считает фоновый компонент зависшим, если его последний
// проход был раньше, чем maxAge назад.
type HeartbeatChecker struct {
	name     string
	lastBeat func() time.Time
	maxAge   time.Duration
	now      func() time.Time
}

// NewHeartbeatChecker создаёт проверку по времени последнего прохода.
func NewHeartbeatChecker(name string, lastBeat func() time.Time, maxAge time.Duration) *HeartbeatChecker {
	return &HeartbeatChecker{name: name, lastBeat: lastBeat, maxAge: maxAge, now: time.Now}
}

// Check сравнивает время последнего прохода с maxAge.
func (c *HeartbeatChecker) Check() Check {
	return NewSimpleChecker(c.name, func() error {
		last := c.lastBeat()
		if last.IsZero() {
			return fmt.Errorf("%s has not started", c.name)
		}
		if age := c.now().Sub(last); age > c.maxAge {
			return fmt.Errorf("%s last ran %s ago", c.name, age.Truncate(time.Second))
		}
		return nil
	}).Check()
}
