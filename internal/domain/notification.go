package domain

// NotificationVariant задаёт оформление уведомления.
type NotificationVariant string

const (
	NotificationDefault     NotificationVariant = "default"
	NotificationSuccess     NotificationVariant = "success"
	NotificationDestructive NotificationVariant = "destructive"
)

// Notification — сообщение для пользователя (toast/alert).
type Notification struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Variant     NotificationVariant `json:"variant"`
}

// PromptStyle задаёт оформление кнопки диалога подтверждения.
type PromptStyle string

const (
	PromptStyleDefault     PromptStyle = "default"
	PromptStyleCancel      PromptStyle = "cancel"
	PromptStyleDestructive PromptStyle = "destructive"
)

// PromptOption — вариант ответа в диалоге подтверждения.
type PromptOption struct {
	Label    string
	Style    PromptStyle
	OnSelect func()
}

// Prompt — диалог подтверждения с набором вариантов.
type Prompt struct {
	Title   string
	Message string
	Options []PromptOption
}

// Option возвращает вариант с указанным стилем.
func (p Prompt) Option(style PromptStyle) (PromptOption, bool) {
	for _, opt := range p.Options {
		if opt.Style == style {
			return opt, true
		}
	}
	return PromptOption{}, false
}
