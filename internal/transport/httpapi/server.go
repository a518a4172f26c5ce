package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/domain"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/notify"
	"github.com/rohit-kumar1999/Tishyaa-app-sub001/internal/storefront"
)

const maxBodyBytes = 1 << 20

// Server — JSON API поверх сессий storefront.
type Server struct {
	registry *storefront.Registry
	logger   *log.Entry
}

// NewServer создаёт API. logger может быть nil.
func NewServer(registry *storefront.Registry, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.New().WithField("component", "http-api")
	}
	return &Server{registry: registry, logger: logger}
}

// Handler возвращает маршрутизатор со всеми эндпоинтами.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, decisionFromQuery)

	u := r.PathPrefix("/v1/users/{userID}").Subrouter()
	u.HandleFunc("/session", s.openSession).Methods(http.MethodPost)
	u.HandleFunc("/session", s.closeSession).Methods(http.MethodDelete)

	u.HandleFunc("/cart", s.withSession(s.getCart)).Methods(http.MethodGet)
	u.HandleFunc("/cart", s.withSession(s.clearCart)).Methods(http.MethodDelete)
	u.HandleFunc("/cart/lines", s.withSession(s.addLine)).Methods(http.MethodPost)
	u.HandleFunc("/cart/lines/{lineID}", s.withSession(s.updateLine)).Methods(http.MethodPut)
	u.HandleFunc("/cart/lines/{lineID}", s.withSession(s.removeLine)).Methods(http.MethodDelete)
	u.HandleFunc("/cart/discount", s.withSession(s.applyDiscount)).Methods(http.MethodPost)
	u.HandleFunc("/cart/coupon", s.withSession(s.applyCoupon)).Methods(http.MethodPost)
	u.HandleFunc("/cart/shipping", s.withSession(s.setShipping)).Methods(http.MethodPost)
	u.HandleFunc("/cart/tax", s.withSession(s.setTax)).Methods(http.MethodPost)

	u.HandleFunc("/wishlist", s.withSession(s.getWishlist)).Methods(http.MethodGet)
	u.HandleFunc("/wishlist/{productID}/toggle", s.withSession(s.toggleWishlist)).Methods(http.MethodPost)

	u.HandleFunc("/payments", s.withSession(s.processPayment)).Methods(http.MethodPost)
	u.HandleFunc("/payments/step", s.withSession(s.paymentStep)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// envelope — общий формат ответа. Notifications содержит уведомления,
// появившиеся при обработке запроса.
type envelope struct {
	OK            *bool                 `json:"ok,omitempty"`
	Data          any                   `json:"data,omitempty"`
	Error         string                `json:"error,omitempty"`
	Notifications []domain.Notification `json:"notifications"`
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sf *storefront.Storefront)

// withSession находит открытую сессию пользователя из пути и заводит
// Recorder для уведомлений этого запроса.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]
		sf, ok := s.registry.Get(userID)
		if !ok {
			writeError(w, http.StatusNotFound, domain.ErrSessionNotFound.Error())
			return
		}
		r = r.WithContext(notify.WithRecorder(r.Context(), sf.Notes.Fork()))
		h(w, r, sf)
	}
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	sf, err := s.registry.Open(r.Context(), userID, bearerToken(r))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrNotSignedIn) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeResult(w, r, http.StatusOK, nil, cartViewOf(sf))
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if err := s.registry.Close(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.WithError(err).WithField("user_id", userID).Warn("session closed with error")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ok := true
	writeJSON(w, http.StatusOK, envelope{OK: &ok, Notifications: []domain.Notification{}})
}

// logRequests пишет в лог метод, путь, статус и длительность запроса.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.logger.WithFields(log.Fields{
			"method":      r.Method,
			"route":       route,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// decisionFromQuery переносит ?confirm=true|false в контекст для диалогов подтверждения.
func decisionFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("confirm"); raw != "" {
			if accept, err := strconv.ParseBool(raw); err == nil {
				r = r.WithContext(notify.WithDecision(r.Context(), accept))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeResult отдаёт результат действия вместе с уведомлениями, появившимися в этом запросе.
func writeResult(w http.ResponseWriter, r *http.Request, status int, ok *bool, data any) {
	notes := []domain.Notification{}
	if rec := notify.RecorderFrom(r.Context()); rec != nil {
		notes = rec.Drain()
	}
	writeJSON(w, status, envelope{
		OK:            ok,
		Data:          data,
		Notifications: notes,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Error: message, Notifications: []domain.Notification{}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// detach отвязывает удалённые вызовы от отмены запроса клиентом: начатое действие
// должно завершиться и снять флаги обработки.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
