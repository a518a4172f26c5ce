package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericErrorMessage показывается пользователю, если сервер не вернул понятного сообщения.
const GenericErrorMessage = "Something went wrong. Please try again."

// ErrCircuitOpen возвращается, пока circuit breaker не пропускает запросы.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// APIError — ответ сервера с кодом не из диапазона 2xx.
type APIError struct {
	StatusCode int
	// Message содержит человекочитаемое сообщение из тела ответа, может быть пустым.
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary сообщает, имеет ли смысл повторить запрос.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// UserMessage возвращает сообщение для уведомления: текст от сервера либо общий текст.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return GenericErrorMessage
}

// decodeAPIError разбирает тело ответа вида {"message": "..."} или {"error": "..."}.
func decodeAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Method: method, Path: path}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
	}
	return apiErr
}
